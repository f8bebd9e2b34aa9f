package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiverse/internal/errors"
	"multiverse/internal/pack"
	"multiverse/internal/universe"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingDim, opts.EmbeddingDim)
	assert.Equal(t, DefaultEmbeddingBatchSize, opts.EmbeddingBatchSize)
	assert.Equal(t, DefaultSessionIdleSeconds, opts.SessionIdleTimeoutSeconds)
	assert.Equal(t, 1.0, opts.WeightSemantic)
	assert.Equal(t, 0.0, opts.WeightStat7())
}

func TestParseOptionsUnknownKey(t *testing.T) {
	_, err := ParseOptions(map[string]interface{}{"warp_factor": 9})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
}

func TestParseOptionsFullSet(t *testing.T) {
	opts, err := ParseOptions(map[string]interface{}{
		"seed":                         int64(42),
		"orbits":                       3,
		"realms":                       []interface{}{"overworld", "tavern"},
		"enrichment_types":             []interface{}{"dialogue", "quest"},
		"embedding_dim":                128,
		"embedding_batch_size":         8,
		"weight_semantic":              0.7,
		"session_idle_timeout_seconds": 60,
		"default_fallback_template_id": "fallback",
		"max_turns_per_npc":            3,
		"reputation_thresholds": map[string]interface{}{
			"revered": 600, "trusted": 250, "suspicious": -100, "hostile": -400,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, []string{"overworld", "tavern"}, opts.Realms)
	assert.Equal(t, []universe.StoryElement{universe.StoryDialogue, universe.StoryQuest}, opts.EnrichmentTypes)
	assert.InDelta(t, 0.3, opts.WeightStat7(), 1e-9)
	assert.Equal(t, 3, opts.MaxTurnsPerNPC)
	assert.Equal(t, 600, opts.Thresholds.Revered)
}

func TestParseOptionsRejectsBadValues(t *testing.T) {
	cases := []map[string]interface{}{
		{"orbits": -1},
		{"weight_semantic": 1.5},
		{"enrichment_types": []interface{}{"prophecy"}},
		{"embedding_dim": 0},
		{"max_turns_per_npc": -2},
		{"reputation_thresholds": map[string]interface{}{"revered": 0, "trusted": 100, "suspicious": -100, "hostile": -200}},
	}
	for _, raw := range cases {
		_, err := ParseOptions(raw)
		require.Error(t, err, "should reject %v", raw)
		assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
	}
}

func TestThresholdsTotalAndMonotone(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())

	cases := []struct {
		score int
		tier  pack.ReputationTier
	}{
		{1000, pack.TierRevered},
		{500, pack.TierRevered},
		{499, pack.TierTrusted},
		{200, pack.TierTrusted},
		{199, pack.TierNeutral},
		{0, pack.TierNeutral},
		{-199, pack.TierNeutral},
		{-200, pack.TierSuspicious},
		{-499, pack.TierSuspicious},
		{-500, pack.TierHostile},
		{-9999, pack.TierHostile},
	}
	prev := pack.TierRevered
	rank := map[pack.ReputationTier]int{
		pack.TierRevered: 4, pack.TierTrusted: 3, pack.TierNeutral: 2,
		pack.TierSuspicious: 1, pack.TierHostile: 0,
	}
	for _, tc := range cases {
		got := th.TierFor(tc.score)
		assert.Equal(t, tc.tier, got, "score %d", tc.score)
		assert.LessOrEqual(t, rank[got], rank[prev], "mapping must be monotone at score %d", tc.score)
		prev = got
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 42
orbits: 2
realms:
  - overworld
  - tavern
enrichment_types:
  - dialogue
  - npc_history
`), 0o644))

	opts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, 2, opts.Orbits)
	assert.Len(t, opts.Realms, 2)
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warp_factor: 9\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
}
