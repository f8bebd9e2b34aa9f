// Package config defines the orchestrator's recognized options and the
// reputation threshold structure. Unknown option keys are rejected at the
// boundary; nothing downstream sees unvalidated configuration.
package config

import (
	"sort"

	"multiverse/internal/errors"
	"multiverse/internal/pack"
	"multiverse/internal/universe"
)

// Defaults for the recognized options.
const (
	DefaultEmbeddingDim       = 384
	DefaultEmbeddingBatchSize = 32
	DefaultSessionIdleSeconds = 300
)

// ReputationThresholds maps numeric reputation onto the five tiers. The
// mapping is monotone and total: score >= Revered is revered, >= Trusted is
// trusted, > Suspicious is neutral, > Hostile is suspicious, anything else
// hostile.
type ReputationThresholds struct {
	Revered    int `json:"revered" yaml:"revered"`
	Trusted    int `json:"trusted" yaml:"trusted"`
	Suspicious int `json:"suspicious" yaml:"suspicious"`
	Hostile    int `json:"hostile" yaml:"hostile"`
}

// DefaultThresholds returns the standard tier boundaries.
func DefaultThresholds() ReputationThresholds {
	return ReputationThresholds{Revered: 500, Trusted: 200, Suspicious: -200, Hostile: -500}
}

// Validate rejects overlapping or inverted boundaries.
func (t ReputationThresholds) Validate() error {
	if !(t.Hostile < t.Suspicious && t.Suspicious < t.Trusted && t.Trusted <= t.Revered) {
		return errors.New(errors.CodeInvalidConfig,
			"thresholds must satisfy hostile < suspicious < trusted <= revered, got %+v", t)
	}
	return nil
}

// TierFor maps a reputation score onto its tier.
func (t ReputationThresholds) TierFor(score int) pack.ReputationTier {
	switch {
	case score >= t.Revered:
		return pack.TierRevered
	case score >= t.Trusted:
		return pack.TierTrusted
	case score > t.Suspicious:
		return pack.TierNeutral
	case score > t.Hostile:
		return pack.TierSuspicious
	}
	return pack.TierHostile
}

// Options is the full set of recognized orchestrator configuration.
type Options struct {
	Seed                      int64                   `json:"seed" yaml:"seed"`
	Orbits                    int                     `json:"orbits" yaml:"orbits"`
	Realms                    []string                `json:"realms" yaml:"realms"`
	EnrichmentTypes           []universe.StoryElement `json:"enrichment_types" yaml:"enrichment_types"`
	EmbeddingDim              int                     `json:"embedding_dim" yaml:"embedding_dim"`
	EmbeddingBatchSize        int                     `json:"embedding_batch_size" yaml:"embedding_batch_size"`
	WeightSemantic            float64                 `json:"weight_semantic" yaml:"weight_semantic"`
	SessionIdleTimeoutSeconds int                     `json:"session_idle_timeout_seconds" yaml:"session_idle_timeout_seconds"`
	DefaultFallbackTemplateID string                  `json:"default_fallback_template_id" yaml:"default_fallback_template_id"`
	MaxTurnsPerNPC            int                     `json:"max_turns_per_npc" yaml:"max_turns_per_npc"`
	Thresholds                ReputationThresholds    `json:"reputation_thresholds" yaml:"reputation_thresholds"`
}

// Default returns options with every default filled in.
func Default() Options {
	return Options{
		Orbits:                    2,
		Realms:                    []string{"overworld"},
		EnrichmentTypes:           []universe.StoryElement{universe.StoryDialogue, universe.StoryNPCHistory},
		EmbeddingDim:              DefaultEmbeddingDim,
		EmbeddingBatchSize:        DefaultEmbeddingBatchSize,
		WeightSemantic:            1.0,
		SessionIdleTimeoutSeconds: DefaultSessionIdleSeconds,
		Thresholds:                DefaultThresholds(),
	}
}

// WeightStat7 is the hybrid-scoring complement of WeightSemantic.
func (o Options) WeightStat7() float64 {
	return 1 - o.WeightSemantic
}

// Validate checks ranges after parsing or decoding.
func (o Options) Validate() error {
	if o.Orbits < 0 {
		return errors.New(errors.CodeInvalidConfig, "orbits must be >= 0, got %d", o.Orbits)
	}
	if o.EmbeddingDim <= 0 {
		return errors.New(errors.CodeInvalidConfig, "embedding_dim must be positive, got %d", o.EmbeddingDim)
	}
	if o.EmbeddingBatchSize <= 0 {
		return errors.New(errors.CodeInvalidConfig, "embedding_batch_size must be positive, got %d", o.EmbeddingBatchSize)
	}
	if o.WeightSemantic < 0 || o.WeightSemantic > 1 {
		return errors.New(errors.CodeInvalidConfig, "weight_semantic must be in [0,1], got %f", o.WeightSemantic)
	}
	if o.SessionIdleTimeoutSeconds <= 0 {
		return errors.New(errors.CodeInvalidConfig, "session_idle_timeout_seconds must be positive, got %d", o.SessionIdleTimeoutSeconds)
	}
	if o.MaxTurnsPerNPC < 0 {
		return errors.New(errors.CodeInvalidConfig, "max_turns_per_npc must be >= 0, got %d", o.MaxTurnsPerNPC)
	}
	for _, elem := range o.EnrichmentTypes {
		if !elem.Valid() {
			return errors.New(errors.CodeInvalidConfig, "unknown enrichment type %q", elem)
		}
	}
	return o.Thresholds.Validate()
}

var recognizedKeys = map[string]bool{
	"seed":                         true,
	"orbits":                       true,
	"realms":                       true,
	"enrichment_types":             true,
	"embedding_dim":                true,
	"embedding_batch_size":         true,
	"weight_semantic":              true,
	"session_idle_timeout_seconds": true,
	"default_fallback_template_id": true,
	"max_turns_per_npc":            true,
	"reputation_thresholds":        true,
}

// ParseOptions builds Options from a loosely-typed mapping, starting from
// defaults. Unknown keys fail with InvalidConfig.
func ParseOptions(raw map[string]interface{}) (Options, error) {
	opts := Default()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !recognizedKeys[k] {
			return Options{}, errors.New(errors.CodeInvalidConfig, "unknown option %q", k)
		}
	}

	var err error
	if v, ok := raw["seed"]; ok {
		if opts.Seed, err = toInt64(v, "seed"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["orbits"]; ok {
		if opts.Orbits, err = toInt(v, "orbits"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["realms"]; ok {
		if opts.Realms, err = toStrings(v, "realms"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["enrichment_types"]; ok {
		names, err := toStrings(v, "enrichment_types")
		if err != nil {
			return Options{}, err
		}
		opts.EnrichmentTypes = opts.EnrichmentTypes[:0]
		for _, name := range names {
			elem, err := universe.ParseStoryElement(name)
			if err != nil {
				return Options{}, errors.Wrap(errors.CodeInvalidConfig, err, "enrichment_types")
			}
			opts.EnrichmentTypes = append(opts.EnrichmentTypes, elem)
		}
	}
	if v, ok := raw["embedding_dim"]; ok {
		if opts.EmbeddingDim, err = toInt(v, "embedding_dim"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["embedding_batch_size"]; ok {
		if opts.EmbeddingBatchSize, err = toInt(v, "embedding_batch_size"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["weight_semantic"]; ok {
		if opts.WeightSemantic, err = toFloat(v, "weight_semantic"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["session_idle_timeout_seconds"]; ok {
		if opts.SessionIdleTimeoutSeconds, err = toInt(v, "session_idle_timeout_seconds"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["default_fallback_template_id"]; ok {
		s, sok := v.(string)
		if !sok {
			return Options{}, errors.New(errors.CodeInvalidConfig, "default_fallback_template_id must be a string")
		}
		opts.DefaultFallbackTemplateID = s
	}
	if v, ok := raw["max_turns_per_npc"]; ok {
		if opts.MaxTurnsPerNPC, err = toInt(v, "max_turns_per_npc"); err != nil {
			return Options{}, err
		}
	}
	if v, ok := raw["reputation_thresholds"]; ok {
		m, mok := v.(map[string]interface{})
		if !mok {
			return Options{}, errors.New(errors.CodeInvalidConfig, "reputation_thresholds must be a mapping")
		}
		for key, val := range m {
			n, err := toInt(val, "reputation_thresholds."+key)
			if err != nil {
				return Options{}, err
			}
			switch key {
			case "revered":
				opts.Thresholds.Revered = n
			case "trusted":
				opts.Thresholds.Trusted = n
			case "suspicious":
				opts.Thresholds.Suspicious = n
			case "hostile":
				opts.Thresholds.Hostile = n
			default:
				return Options{}, errors.New(errors.CodeInvalidConfig, "unknown threshold %q", key)
			}
		}
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func toInt(v interface{}, key string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, errors.New(errors.CodeInvalidConfig, "%s must be an integer, got %T", key, v)
}

func toInt64(v interface{}, key string) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, errors.New(errors.CodeInvalidConfig, "%s must be an integer, got %T", key, v)
}

func toFloat(v interface{}, key string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, errors.New(errors.CodeInvalidConfig, "%s must be a number, got %T", key, v)
}

func toStrings(v interface{}, key string) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.CodeInvalidConfig, "%s must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errors.New(errors.CodeInvalidConfig, "%s must be a list of strings, got %T", key, v)
}
