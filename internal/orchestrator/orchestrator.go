// Package orchestrator is the single entrypoint wiring bigbang, the torus
// engine, the tier perspective, and the adapters into one demo run. All
// state belongs to the universe or to component instances; an orchestrator
// is constructed per run and owns its wiring.
package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"

	"multiverse/internal/adapters"
	"multiverse/internal/bigbang"
	"multiverse/internal/config"
	"multiverse/internal/errors"
	"multiverse/internal/observability"
	"multiverse/internal/ports"
	"multiverse/internal/providers"
	"multiverse/internal/snapshot"
	"multiverse/internal/tier"
	"multiverse/internal/torus"
	"multiverse/internal/universe"
)

// knownRealm couples a realm id with its content family and tier default.
type knownRealm struct {
	realmType universe.RealmType
	tier      tier.Tier
	theme     tier.Theme
	anchors   []string
}

// knownRealms enumerates the realm ids the orchestrator can launch.
var knownRealms = map[string]knownRealm{
	"overworld":   {universe.RealmMetvan3D, tier.Terran, tier.ThemeCityState, []string{"market"}},
	"frontier":    {universe.RealmMetvan3D, tier.Terran, tier.ThemeFrontier, []string{"trailhead"}},
	"tavern":      {universe.RealmCustom, tier.Terran, tier.ThemeCityState, []string{"hearth"}},
	"dungeon":     {universe.RealmCustom, tier.Subterran, tier.ThemeUnderdark, []string{"gate"}},
	"skyhold":     {universe.RealmMetvan3D, tier.Celestial, tier.ThemeAether, []string{"stormglass"}},
	"arcade_rift": {universe.RealmArcade2D, tier.Celestial, tier.ThemeAether, []string{"cabinet"}},
}

// customBlueprints back the curated realms served by the custom provider.
var customBlueprints = map[string]providers.Blueprint{
	"tavern":  {NPCRoles: []string{"innkeeper", "bard", "cook"}, Districts: []string{"common_room"}},
	"dungeon": {NPCRoles: []string{"warden", "captive_scholar"}, Districts: []string{"gatehouse", "deep_cells"}},
}

// Metadata is the launch summary emitted to callers.
type Metadata struct {
	Seed                 int64          `json:"seed"`
	UniverseID           string         `json:"universe_id"`
	UniverseHash         string         `json:"universe_hash"`
	Realms               map[string]int `json:"realms"`
	TotalEntities        int            `json:"total_entities"`
	TotalOrbitsCompleted int            `json:"total_orbits_completed"`
	InitializationTimeMS float64        `json:"initialization_time_ms"`
}

// Orchestrator owns one universe run end to end.
type Orchestrator struct {
	opts       config.Options
	bang       *bigbang.BigBang
	engine     *torus.Engine
	tiers      *tier.Registry
	integrator *adapters.Integrator
	uni        *universe.Universe
	logger     ports.Logger
	clock      ports.Clock
}

// Config captures orchestrator dependencies.
type Config struct {
	Options config.Options
	Logger  ports.Logger
	Clock   ports.Clock
}

// New constructs an orchestrator with the standard provider registry:
// custom blueprints win over procedural generation for the realms they
// curate, then procedural 3D, then the arcade provider.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	bang := bigbang.New(bigbang.Config{Logger: logger, Clock: clock})
	bang.RegisterProvider(providers.NewCustom(clock, customBlueprints), 20)
	bang.RegisterProvider(providers.NewProcedural3D(clock), 10)
	bang.RegisterProvider(providers.NewArcade2D(clock), 10)

	tiers := tier.NewRegistry()
	npcs := adapters.NewNPCAdapter(tiers)
	semantics := adapters.NewSemanticAdapter()
	dialogues := adapters.NewDialogueAdapter()
	integrator := adapters.NewIntegrator(npcs, semantics, dialogues, logger)

	engine := torus.New(torus.Config{Logger: logger, Refresher: semantics})

	return &Orchestrator{
		opts:       cfg.Options,
		bang:       bang,
		engine:     engine,
		tiers:      tiers,
		integrator: integrator,
		logger:     logger,
		clock:      clock,
	}, nil
}

// Universe returns the launched universe, or nil before LaunchDemo.
func (o *Orchestrator) Universe() *universe.Universe {
	return o.uni
}

// Tiers returns the tier registry.
func (o *Orchestrator) Tiers() *tier.Registry {
	return o.tiers
}

// Adapters returns the integrator holding the three projection adapters.
func (o *Orchestrator) Adapters() *adapters.Integrator {
	return o.integrator
}

// Options returns the options this orchestrator was built with.
func (o *Orchestrator) Options() config.Options {
	return o.opts
}

// realmSpecs maps configured realm ids onto specs, rejecting unknown ids.
func (o *Orchestrator) realmSpecs() ([]providers.RealmSpec, error) {
	specs := make([]providers.RealmSpec, 0, len(o.opts.Realms))
	for _, id := range o.opts.Realms {
		known, ok := knownRealms[id]
		if !ok {
			return nil, errors.New(errors.CodeUnknownRealm, "realm %q is not a known realm id", id)
		}
		specs = append(specs, providers.RealmSpec{ID: id, Type: known.realmType})
	}
	return specs, nil
}

// LaunchDemo runs bigbang, the configured torus cycles, and integration,
// returning the run metadata.
func (o *Orchestrator) LaunchDemo(ctx context.Context) (*Metadata, error) {
	ctx, span := otel.Tracer("multiverse/orchestrator").Start(ctx, "orchestrator.launch_demo")
	defer span.End()

	specs, err := o.realmSpecs()
	if err != nil {
		return nil, err
	}

	start := o.clock.Now()
	u, err := o.bang.InitializeMultiverse(ctx, bigbang.UniverseSpec{Seed: o.opts.Seed, Realms: specs})
	if err != nil {
		return nil, err
	}
	observability.BigBangDuration.Observe(o.clock.Now().Sub(start).Seconds())
	o.uni = u

	for _, id := range o.opts.Realms {
		known := knownRealms[id]
		if err := o.tiers.Assign(tier.Assignment{
			RealmID: id,
			Tier:    known.tier,
			Theme:   known.theme,
			Anchors: known.anchors,
		}); err != nil {
			return nil, err
		}
	}

	for i := 0; i < o.opts.Orbits; i++ {
		if _, err := o.engine.ExecuteTorusCycle(ctx, u, o.opts.EnrichmentTypes); err != nil {
			return nil, err
		}
	}

	if _, err := o.integrator.IntegrateUniverse(ctx, u); err != nil {
		return nil, err
	}

	realmCounts := make(map[string]int, len(u.Realms()))
	for _, realm := range u.Realms() {
		realmCounts[realm.ID] = len(realm.Entities)
	}

	hash := snapshot.ComputeUniverseHash(u, o.tiers.Assignments())
	u.Hash = hash

	meta := &Metadata{
		Seed:                 o.opts.Seed,
		UniverseID:           u.ID,
		UniverseHash:         hash,
		Realms:               realmCounts,
		TotalEntities:        u.EntityCount(),
		TotalOrbitsCompleted: u.CurrentOrbit,
		InitializationTimeMS: u.InitializationTimeMS,
	}
	o.logger.Info("demo launched: universe=%s orbits=%d entities=%d hash=%s",
		u.ID, meta.TotalOrbitsCompleted, meta.TotalEntities, hash[:12])
	return meta, nil
}
