// Package torus implements the enrichment cycle engine: one cycle applies
// a set of story-element handlers across every realm, then advances the
// universe orbit. Cycles on one engine are serialized; entity invariants
// keep a failed cycle from corrupting state.
package torus

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"

	"multiverse/internal/errors"
	"multiverse/internal/observability"
	"multiverse/internal/ports"
	"multiverse/internal/universe"
)

// SemanticRefresher re-projects semantic context for enriched entities.
// The phase-3 adapter implements it; the engine only knows the port.
type SemanticRefresher interface {
	RefreshSemanticContext(ctx context.Context, u *universe.Universe) error
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	Orbit           int
	RealmsUpdated   []string
	EnrichmentTypes []universe.StoryElement
	Applied         int
}

type handlerFunc func(ctx context.Context, u *universe.Universe, r *universe.Realm) (int, error)

// Engine runs torus cycles over a universe.
type Engine struct {
	lock      *semaphore.Weighted
	logger    ports.Logger
	refresher SemanticRefresher
	handlers  map[universe.StoryElement]handlerFunc
}

// Config captures engine dependencies.
type Config struct {
	Logger    ports.Logger
	Refresher SemanticRefresher
}

// New creates a cycle engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	e := &Engine{
		lock:      semaphore.NewWeighted(1),
		logger:    logger,
		refresher: cfg.Refresher,
	}
	e.handlers = map[universe.StoryElement]handlerFunc{
		universe.StoryDialogue:        e.handleDialogue,
		universe.StoryNPCHistory:      e.handleNPCHistory,
		universe.StoryQuest:           e.handleQuest,
		universe.StoryContradiction:   e.handleContradiction,
		universe.StorySemanticContext: e.handleSemanticContext,
	}
	return e
}

// SetRefresher installs the semantic refresher after construction. The
// orchestrator wires it this way because the phase-3 adapter is built
// after the engine.
func (e *Engine) SetRefresher(r SemanticRefresher) {
	e.refresher = r
}

// ExecuteTorusCycle applies every requested enrichment type across all
// realms, then advances the orbit and appends a cycle record. Handler
// errors fail the cycle as a unit; the universe stays at the pre-cycle
// orbit because advancement is the last step.
func (e *Engine) ExecuteTorusCycle(ctx context.Context, u *universe.Universe, types []universe.StoryElement) (*CycleResult, error) {
	ctx, span := otel.Tracer("multiverse/torus").Start(ctx, "torus.execute_cycle")
	defer span.End()

	if err := e.lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.lock.Release(1)

	// The universe lock is held across the whole cycle so adapters and
	// readers observe a quiescent universe.
	if err := u.Acquire(ctx); err != nil {
		return nil, err
	}
	defer u.Release()

	for _, elem := range types {
		if !elem.Valid() {
			return nil, errors.New(errors.CodeCycleFailed, "unknown enrichment type %q", elem)
		}
	}

	applied := 0
	realmsUpdated := make([]string, 0, len(u.Realms()))
	for _, elem := range types {
		handler := e.handlers[elem]
		for _, realm := range u.Realms() {
			n, err := handler(ctx, u, realm)
			if err != nil {
				e.logger.Error("cycle handler %s failed in realm %s: %v", elem, realm.ID, err)
				return nil, errors.Wrap(errors.CodeCycleFailed, err, "handler %s in realm %s", elem, realm.ID)
			}
			applied += n
			observability.EnrichmentsApplied.WithLabelValues(string(elem)).Add(float64(n))
		}
	}
	for _, realm := range u.Realms() {
		realmsUpdated = append(realmsUpdated, realm.ID)
	}

	u.AdvanceOrbitLocked()
	u.RecordCycle(realmsUpdated, types)
	observability.CyclesTotal.Inc()

	result := &CycleResult{
		Orbit:           u.CurrentOrbit,
		RealmsUpdated:   realmsUpdated,
		EnrichmentTypes: types,
		Applied:         applied,
	}
	e.logger.Info("torus cycle complete: orbit=%d realms=%d enrichments=%d", result.Orbit, len(realmsUpdated), applied)
	return result, nil
}

func (e *Engine) handleDialogue(_ context.Context, u *universe.Universe, r *universe.Realm) (int, error) {
	applied := 0
	for _, npc := range r.NPCs() {
		err := npc.Enrich(universe.StoryDialogue, map[string]interface{}{
			"topic": fmt.Sprintf("orbit_%d_exchange", u.CurrentOrbit),
			"orbit": u.CurrentOrbit,
			"realm": r.ID,
		})
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (e *Engine) handleNPCHistory(_ context.Context, u *universe.Universe, r *universe.Realm) (int, error) {
	applied := 0
	for _, npc := range r.NPCs() {
		err := npc.Enrich(universe.StoryNPCHistory, map[string]interface{}{
			"event": fmt.Sprintf("chronicle_entry_orbit_%d", u.CurrentOrbit),
			"orbit": u.CurrentOrbit,
		})
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// handleQuest assigns the cycle's quest hook to the first npc in the realm.
// Realms without npcs are skipped, never failed.
func (e *Engine) handleQuest(_ context.Context, u *universe.Universe, r *universe.Realm) (int, error) {
	npcs := r.NPCs()
	if len(npcs) == 0 {
		e.logger.Debug("realm %s has no npc entities, skipping quest enrichment", r.ID)
		return 0, nil
	}
	giver := npcs[0]
	err := giver.Enrich(universe.StoryQuest, map[string]interface{}{
		"quest_id": fmt.Sprintf("quest_%s_orbit_%d", r.ID, u.CurrentOrbit),
		"giver":    giver.ID,
		"orbit":    u.CurrentOrbit,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (e *Engine) handleContradiction(_ context.Context, u *universe.Universe, r *universe.Realm) (int, error) {
	applied := 0
	for _, entity := range r.Entities {
		if _, ok := entity.Metadata["contradictions"]; !ok {
			continue
		}
		err := entity.Enrich(universe.StoryContradiction, map[string]interface{}{
			"resolution":       "timeline_reconciliation",
			"resolution_orbit": u.CurrentOrbit,
		})
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (e *Engine) handleSemanticContext(ctx context.Context, u *universe.Universe, r *universe.Realm) (int, error) {
	if e.refresher == nil {
		e.logger.Debug("no semantic refresher attached, skipping semantic context for realm %s", r.ID)
		return 0, nil
	}
	applied := 0
	for _, entity := range r.Entities {
		if entity.EnrichmentCount == 0 {
			continue
		}
		err := entity.Enrich(universe.StorySemanticContext, map[string]interface{}{
			"refreshed_orbit": u.CurrentOrbit,
			"source_count":    entity.EnrichmentCount,
		})
		if err != nil {
			return applied, err
		}
		applied++
	}
	if err := e.refresher.RefreshSemanticContext(ctx, u); err != nil {
		return applied, err
	}
	return applied, nil
}
