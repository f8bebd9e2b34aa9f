// Package bigbang performs atomic universe initialization: provider
// selection by priority, realm generation, and all-or-nothing attachment.
package bigbang

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"

	"multiverse/internal/errors"
	"multiverse/internal/ports"
	"multiverse/internal/providers"
	"multiverse/internal/universe"
)

// UniverseSpec describes a whole universe to initialize.
type UniverseSpec struct {
	Seed   int64                 `json:"seed"`
	Realms []providers.RealmSpec `json:"realms"`
}

type registration struct {
	provider providers.Provider
	priority int
	order    int
}

// BigBang selects providers and initializes universes.
type BigBang struct {
	registrations []registration
	logger        ports.Logger
	clock         ports.Clock
}

// Config captures BigBang dependencies.
type Config struct {
	Logger ports.Logger
	Clock  ports.Clock
}

// New creates a BigBang with no providers registered.
func New(cfg Config) *BigBang {
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &BigBang{logger: logger, clock: clock}
}

// RegisterProvider adds a provider at the given priority. Higher priority
// wins; ties break by registration order.
func (b *BigBang) RegisterProvider(p providers.Provider, priority int) {
	b.registrations = append(b.registrations, registration{
		provider: p,
		priority: priority,
		order:    len(b.registrations),
	})
	sort.SliceStable(b.registrations, func(i, j int) bool {
		if b.registrations[i].priority != b.registrations[j].priority {
			return b.registrations[i].priority > b.registrations[j].priority
		}
		return b.registrations[i].order < b.registrations[j].order
	})
}

// selectProvider returns the highest-priority provider claiming the spec.
func (b *BigBang) selectProvider(spec providers.RealmSpec) (providers.Provider, error) {
	for _, reg := range b.registrations {
		if reg.provider.CanGenerateRealm(spec) {
			return reg.provider, nil
		}
	}
	return nil, errors.New(errors.CodeNoProvider, "no provider can generate realm %q (type %s)", spec.ID, spec.Type)
}

// InitializeMultiverse builds the whole universe or nothing. Realms are
// generated into a staging slice and only attached once every spec
// succeeded, so a caller never observes a partial universe.
func (b *BigBang) InitializeMultiverse(ctx context.Context, spec UniverseSpec) (*universe.Universe, error) {
	ctx, span := otel.Tracer("multiverse/bigbang").Start(ctx, "bigbang.initialize_multiverse")
	defer span.End()

	start := b.clock.Now()

	staged := make([]*universe.Realm, 0, len(spec.Realms))
	for i, realmSpec := range spec.Realms {
		realmSpec.Seed = spec.Seed
		realmSpec.Index = i

		provider, err := b.selectProvider(realmSpec)
		if err != nil {
			return nil, errors.Wrap(errors.CodeBigBangFailed, err, "initializing realm %q", realmSpec.ID)
		}

		realm, err := provider.GenerateRealmContent(ctx, realmSpec)
		if err != nil {
			return nil, errors.Wrap(errors.CodeBigBangFailed, err, "provider %q failed on realm %q", provider.Name(), realmSpec.ID)
		}
		if len(realm.Entities) == 0 {
			return nil, errors.New(errors.CodeBigBangFailed, "provider %q returned empty realm %q", provider.Name(), realmSpec.ID)
		}

		b.logger.Debug("realm %q generated by %q with %d entities", realmSpec.ID, provider.Name(), len(realm.Entities))
		staged = append(staged, realm)
	}

	u := universe.New(spec.Seed, b.clock)
	for _, realm := range staged {
		if err := u.AttachRealm(realm); err != nil {
			return nil, errors.Wrap(errors.CodeBigBangFailed, err, "attaching realm %q", realm.ID)
		}
	}

	u.InitializationTimeMS = float64(b.clock.Now().Sub(start).Microseconds()) / 1000.0
	b.logger.Info("multiverse initialized: %d realms, %d entities in %.2fms",
		len(spec.Realms), u.EntityCount(), u.InitializationTimeMS)
	return u, nil
}
