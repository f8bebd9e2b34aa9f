// Package providers implements pluggable realm content generation. A
// provider is anything honoring the capability pair CanGenerateRealm /
// GenerateRealmContent; selection happens by priority in the bigbang
// package, never by concrete type.
package providers

import (
	"context"
	"hash/fnv"

	"multiverse/internal/errors"
	"multiverse/internal/universe"
)

// RealmSpec describes one realm to be generated.
type RealmSpec struct {
	ID      string                 `json:"id"`
	Type    universe.RealmType     `json:"type"`
	Seed    int64                  `json:"seed"`
	Index   int                    `json:"index"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Provider generates realm content for specs it recognizes.
type Provider interface {
	Name() string
	CanGenerateRealm(spec RealmSpec) bool
	GenerateRealmContent(ctx context.Context, spec RealmSpec) (*universe.Realm, error)
}

// realmSeed derives a per-realm random source seed from the spec seed and
// realm id, so realms generate independently but reproducibly.
func realmSeed(spec RealmSpec) int64 {
	h := fnv.New64a()
	h.Write([]byte(spec.ID))
	return spec.Seed ^ int64(h.Sum64())
}

// validateRealm enforces the non-empty contract shared by all providers.
func validateRealm(providerName string, spec RealmSpec, r *universe.Realm) error {
	if r == nil || len(r.Entities) == 0 {
		return errors.New(errors.CodeProviderEmpty,
			"provider %q produced no entities for realm %q", providerName, spec.ID)
	}
	return nil
}

func intOption(spec RealmSpec, key string, fallback int) int {
	if spec.Options == nil {
		return fallback
	}
	switch v := spec.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
