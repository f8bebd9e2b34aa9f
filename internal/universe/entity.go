package universe

import (
	"time"

	"multiverse/internal/errors"
	"multiverse/internal/ports"
	"multiverse/internal/stat7"
)

// Enrichment is a single append-only narrative record on an entity.
type Enrichment struct {
	Type      StoryElement           `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

// Entity is an addressable inhabitant of a realm. Enrichments are
// append-only; the address mutates only through AdvanceToOrbit.
type Entity struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Address         stat7.Address          `json:"stat7"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Enrichments     []Enrichment           `json:"enrichments"`
	EnrichmentCount int                    `json:"enrichment_count"`

	clock ports.Clock
}

// NewEntity creates an entity at the given address. A nil clock falls back
// to the system clock.
func NewEntity(id, entityType string, addr stat7.Address, clock ports.Clock) (*Entity, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Entity{
		ID:       id,
		Type:     entityType,
		Address:  addr,
		Metadata: map[string]interface{}{},
		clock:    clock,
	}, nil
}

// Enrich appends a narrative record. Unknown types are rejected and leave
// the entity unchanged.
func (e *Entity) Enrich(elem StoryElement, data map[string]interface{}) error {
	if !elem.Valid() {
		return errors.New(errors.CodeInvalidEnrichment, "enrichment type %q not in story element set", elem)
	}
	clock := e.clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	e.Enrichments = append(e.Enrichments, Enrichment{
		Type:      elem,
		Data:      data,
		Timestamp: clock.Now().UTC().Format(time.RFC3339),
	})
	e.EnrichmentCount = len(e.Enrichments)
	return nil
}

// AdvanceToOrbit replaces the entity address for a new orbit. Lineage must
// be monotonically nondecreasing.
func (e *Entity) AdvanceToOrbit(newOrbit int, addr stat7.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	if addr.Lineage < e.Address.Lineage {
		return errors.New(errors.CodeInvalidAddress,
			"lineage must not decrease: %d -> %d", e.Address.Lineage, addr.Lineage)
	}
	e.Address = addr
	return nil
}

// EnrichmentTypes returns the ordered sequence of enrichment type labels.
func (e *Entity) EnrichmentTypes() []StoryElement {
	out := make([]StoryElement, len(e.Enrichments))
	for i, r := range e.Enrichments {
		out[i] = r.Type
	}
	return out
}

// LastEnrichment returns the most recent record, or nil.
func (e *Entity) LastEnrichment() *Enrichment {
	if len(e.Enrichments) == 0 {
		return nil
	}
	return &e.Enrichments[len(e.Enrichments)-1]
}
