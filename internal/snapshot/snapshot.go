// Package snapshot serializes universes into a canonical, replayable form
// and computes the deterministic universe hash used for replay validation.
// Canonical means: sorted keys, ISO-8601 timestamps, enum names as
// strings, no cyclic references.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"multiverse/internal/ports"
	"multiverse/internal/stat7"
	"multiverse/internal/tier"
	"multiverse/internal/universe"
)

// EntityExport is the canonical serialized form of one entity.
type EntityExport struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Stat7           stat7.Address          `json:"stat7"`
	EnrichmentCount int                    `json:"enrichment_count"`
	Enrichments     []universe.Enrichment  `json:"enrichments,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// RealmExport is the canonical serialized form of one realm.
type RealmExport struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Orbit    int            `json:"orbit"`
	Lineage  int            `json:"lineage"`
	Entities []EntityExport `json:"entities"`
}

// Snapshot is the canonical over-the-wire representation of a universe at
// a point in time.
type Snapshot struct {
	Seed                   int64                      `json:"seed"`
	UniverseID             string                     `json:"universe_id"`
	UniverseHash           string                     `json:"universe_hash"`
	TierAssignments        map[string]tier.Assignment `json:"tier_assignments,omitempty"`
	Realms                 []RealmExport              `json:"realms"`
	TierAlignment          map[string][]string        `json:"tier_alignment,omitempty"`
	AuditTrail             []universe.CycleRecord     `json:"audit_trail,omitempty"`
	OrchestratorConfig     map[string]interface{}     `json:"orchestrator_config,omitempty"`
	UniverseSpecifications map[string]interface{}     `json:"universe_specifications,omitempty"`
	ExportTimestamp        string                     `json:"export_timestamp"`
}

// ExportOptions selects optional snapshot sections.
type ExportOptions struct {
	IncludeEnrichments bool
	IncludeAuditTrail  bool
	IncludeGovernance  bool
	Clock              ports.Clock
}

// Export builds a snapshot of the universe under the tier perspective.
func Export(u *universe.Universe, assignments map[string]tier.Assignment, cfg map[string]interface{}, opts ExportOptions) *Snapshot {
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	realmIDs := u.RealmIDs()
	sort.Strings(realmIDs)

	realms := make([]RealmExport, 0, len(realmIDs))
	for _, realmID := range realmIDs {
		realm := u.Realm(realmID)
		export := RealmExport{
			ID:      realm.ID,
			Type:    string(realm.Type),
			Orbit:   realm.Orbit,
			Lineage: realm.Lineage,
		}
		entityIDs := make([]string, 0, len(realm.Entities))
		for _, e := range realm.Entities {
			entityIDs = append(entityIDs, e.ID)
		}
		sort.Strings(entityIDs)
		for _, entityID := range entityIDs {
			e := realm.EntityByID(entityID)
			entityExport := EntityExport{
				ID:              e.ID,
				Type:            e.Type,
				Stat7:           e.Address,
				EnrichmentCount: e.EnrichmentCount,
			}
			if opts.IncludeEnrichments {
				entityExport.Enrichments = append([]universe.Enrichment(nil), e.Enrichments...)
				entityExport.Metadata = e.Metadata
			}
			export.Entities = append(export.Entities, entityExport)
		}
		realms = append(realms, export)
	}

	snap := &Snapshot{
		Seed:            u.Seed,
		UniverseID:      u.ID,
		UniverseHash:    ComputeUniverseHash(u, assignments),
		Realms:          realms,
		ExportTimestamp: clock.Now().UTC().Format(time.RFC3339),
	}
	if opts.IncludeGovernance {
		snap.TierAssignments = assignments
		snap.TierAlignment = alignmentIndex(assignments)
		snap.OrchestratorConfig = cfg
		snap.UniverseSpecifications = map[string]interface{}{
			"realm_count":  len(realmIDs),
			"entity_count": u.EntityCount(),
			"orbit":        u.CurrentOrbit,
		}
	}
	if opts.IncludeAuditTrail {
		snap.AuditTrail = append([]universe.CycleRecord(nil), u.CycleHistory...)
	}
	return snap
}

func alignmentIndex(assignments map[string]tier.Assignment) map[string][]string {
	index := map[string][]string{}
	realmIDs := make([]string, 0, len(assignments))
	for id := range assignments {
		realmIDs = append(realmIDs, id)
	}
	sort.Strings(realmIDs)
	for _, id := range realmIDs {
		a := assignments[id]
		index[string(a.Tier)] = append(index[string(a.Tier)], id)
	}
	return index
}

// hash input shapes: explicit structs keep the byte layout fixed.

type hashEntity struct {
	ID          string   `json:"id"`
	Stat7       [7]int   `json:"stat7"`
	Enrichments []string `json:"enrichments"`
}

type hashRealm struct {
	ID       string       `json:"id"`
	Entities []hashEntity `json:"entities"`
}

type hashAssignment struct {
	RealmID string `json:"realm_id"`
	Tier    string `json:"tier"`
	Theme   string `json:"theme"`
	Depth   int    `json:"depth"`
}

type hashInput struct {
	Seed        int64            `json:"seed"`
	Realms      []hashRealm      `json:"realms"`
	Assignments []hashAssignment `json:"assignments"`
}

// ComputeUniverseHash fingerprints the universe deterministically: equal
// inputs always produce equal hashes. The input covers the seed, sorted
// realm and entity ids, STAT7 tuples, enrichment type sequences, and tier
// assignments; timestamps deliberately stay out so replayed universes
// compare equal.
func ComputeUniverseHash(u *universe.Universe, assignments map[string]tier.Assignment) string {
	realmIDs := u.RealmIDs()
	sort.Strings(realmIDs)

	input := hashInput{Seed: u.Seed}
	for _, realmID := range realmIDs {
		realm := u.Realm(realmID)
		hr := hashRealm{ID: realmID}
		entityIDs := make([]string, 0, len(realm.Entities))
		for _, e := range realm.Entities {
			entityIDs = append(entityIDs, e.ID)
		}
		sort.Strings(entityIDs)
		for _, entityID := range entityIDs {
			e := realm.EntityByID(entityID)
			types := make([]string, 0, len(e.Enrichments))
			for _, r := range e.Enrichments {
				types = append(types, string(r.Type))
			}
			hr.Entities = append(hr.Entities, hashEntity{
				ID:          entityID,
				Stat7:       e.Address.Tuple(),
				Enrichments: types,
			})
		}
		input.Realms = append(input.Realms, hr)
	}

	assignmentIDs := make([]string, 0, len(assignments))
	for id := range assignments {
		assignmentIDs = append(assignmentIDs, id)
	}
	sort.Strings(assignmentIDs)
	for _, id := range assignmentIDs {
		a := assignments[id]
		input.Assignments = append(input.Assignments, hashAssignment{
			RealmID: id,
			Tier:    string(a.Tier),
			Theme:   string(a.Theme),
			Depth:   a.TierDepth,
		})
	}

	// json.Marshal of explicit structs is deterministic: field order is
	// declaration order and all map content has been flattened above.
	data, err := json.Marshal(input)
	if err != nil {
		// hashInput contains only marshalable types
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
