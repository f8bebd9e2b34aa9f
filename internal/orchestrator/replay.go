package orchestrator

import (
	"context"

	"multiverse/internal/config"
	"multiverse/internal/errors"
	"multiverse/internal/ports"
	"multiverse/internal/snapshot"
)

// ReplayFromSeed reconstructs a universe from a seed and configuration by
// running a fresh orchestrator end to end. When validateHash is non-empty
// the replayed universe hash must match or the replay is rejected — a
// rejected universe is never returned.
func ReplayFromSeed(ctx context.Context, seed int64, opts config.Options, validateHash string, logger ports.Logger, clock ports.Clock) (*Orchestrator, *Metadata, error) {
	opts.Seed = seed
	o, err := New(Config{Options: opts, Logger: logger, Clock: clock})
	if err != nil {
		return nil, nil, err
	}
	meta, err := o.LaunchDemo(ctx)
	if err != nil {
		return nil, nil, err
	}
	if validateHash != "" && meta.UniverseHash != validateHash {
		return nil, nil, errors.New(errors.CodeReplayValidationError,
			"replayed hash %s does not match expected %s", meta.UniverseHash, validateHash)
	}
	return o, meta, nil
}

// ExportSnapshot captures the orchestrator's universe in canonical form.
func (o *Orchestrator) ExportSnapshot(opts snapshot.ExportOptions) (*snapshot.Snapshot, error) {
	if o.uni == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "no universe launched yet")
	}
	cfg := map[string]interface{}{
		"seed":             o.opts.Seed,
		"orbits":           o.opts.Orbits,
		"realms":           o.opts.Realms,
		"enrichment_types": o.opts.EnrichmentTypes,
	}
	return snapshot.Export(o.uni, o.tiers.Assignments(), cfg, opts), nil
}
