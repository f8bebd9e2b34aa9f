package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"multiverse/internal/errors"
	"multiverse/internal/ports"
)

// CycleRecord documents one completed torus cycle.
type CycleRecord struct {
	Orbit           int            `json:"orbit"`
	RealmsUpdated   []string       `json:"realms_updated"`
	EnrichmentTypes []StoryElement `json:"enrichment_types"`
	CompletedAt     string         `json:"completed_at"`
}

// Universe owns all realms and the orbit counter. Orbit advancement is the
// single serialized mutation point; readers outside a cycle observe a
// quiescent universe.
type Universe struct {
	ID                   string
	Seed                 int64
	CurrentOrbit         int
	CycleHistory         []CycleRecord
	Hash                 string
	InitializationTimeMS float64

	realms     map[string]*Realm
	realmOrder []string
	lock       *semaphore.Weighted
	clock      ports.Clock
}

// New creates an empty universe for the given seed.
func New(seed int64, clock ports.Clock) *Universe {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Universe{
		ID:     fmt.Sprintf("uni_%s", uuid.NewString()),
		Seed:   seed,
		realms: map[string]*Realm{},
		lock:   semaphore.NewWeighted(1),
		clock:  clock,
	}
}

// AttachRealm adds a realm. Realm ids are unique within a universe.
func (u *Universe) AttachRealm(r *Realm) error {
	if _, exists := u.realms[r.ID]; exists {
		return errors.New(errors.CodeUnknownRealm, "realm %q already attached", r.ID)
	}
	r.Orbit = u.CurrentOrbit
	u.realms[r.ID] = r
	u.realmOrder = append(u.realmOrder, r.ID)
	return nil
}

// Realm looks up a realm by id, or nil.
func (u *Universe) Realm(id string) *Realm {
	return u.realms[id]
}

// Realms returns all realms in attachment order.
func (u *Universe) Realms() []*Realm {
	out := make([]*Realm, 0, len(u.realmOrder))
	for _, id := range u.realmOrder {
		out = append(out, u.realms[id])
	}
	return out
}

// RealmIDs returns realm ids in attachment order.
func (u *Universe) RealmIDs() []string {
	out := make([]string, len(u.realmOrder))
	copy(out, u.realmOrder)
	return out
}

// EntityCount totals entities across realms.
func (u *Universe) EntityCount() int {
	total := 0
	for _, r := range u.realms {
		total += len(r.Entities)
	}
	return total
}

// Acquire takes the universe lock, suspending until it is free or ctx is
// cancelled.
func (u *Universe) Acquire(ctx context.Context) error {
	return u.lock.Acquire(ctx, 1)
}

// Release frees the universe lock.
func (u *Universe) Release() {
	u.lock.Release(1)
}

// AdvanceOrbit increments the orbit counter, then advances every realm and
// every entity address. The universe lock serializes callers.
func (u *Universe) AdvanceOrbit(ctx context.Context) error {
	if err := u.Acquire(ctx); err != nil {
		return err
	}
	defer u.Release()
	u.advanceOrbitLocked()
	return nil
}

// AdvanceOrbitLocked performs the advance for a caller that already holds
// the universe lock (the torus engine holds it across a whole cycle).
func (u *Universe) AdvanceOrbitLocked() {
	u.advanceOrbitLocked()
}

func (u *Universe) advanceOrbitLocked() {
	u.CurrentOrbit++
	for _, id := range u.realmOrder {
		r := u.realms[id]
		r.Orbit = u.CurrentOrbit
		r.Lineage++
		for _, e := range r.Entities {
			// Address validation cannot fail here: AdvanceOrbit only
			// increments lineage, which is unbounded above.
			_ = e.AdvanceToOrbit(u.CurrentOrbit, e.Address.AdvanceOrbit())
		}
	}
}

// RecordCycle appends a cycle record to the append-only history.
func (u *Universe) RecordCycle(realmsUpdated []string, types []StoryElement) {
	u.CycleHistory = append(u.CycleHistory, CycleRecord{
		Orbit:           u.CurrentOrbit,
		RealmsUpdated:   realmsUpdated,
		EnrichmentTypes: types,
		CompletedAt:     u.clock.Now().UTC().Format(time.RFC3339),
	})
}
