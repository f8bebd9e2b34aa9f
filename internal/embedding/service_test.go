package embedding

import (
	"context"
	"path/filepath"
	"testing"

	"multiverse/internal/errors"
	"multiverse/internal/pack"
)

func testTemplates() []*pack.Record {
	return []*pack.Record{
		{ID: "greeting_neutral", Content: "greetings traveler welcome to the market", Tags: []string{"greeting"}, ReputationTiers: []pack.ReputationTier{pack.TierNeutral}},
		{ID: "greeting_revered", Content: "greetings honored champion the market celebrates you", Tags: []string{"greeting"}, ReputationTiers: []pack.ReputationTier{pack.TierRevered}},
		{ID: "trade_open", Content: "trade wares coin barter goods exchange", Tags: []string{"trade_inquiry"}},
		{ID: "farewell", Content: "farewell safe travels on the road", Tags: []string{"farewell"}},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(Config{Encoder: NewHashEncoder(64)})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := s.AddTemplates(context.Background(), testTemplates()); err != nil {
		t.Fatalf("add templates: %v", err)
	}
	return s
}

func TestHashEncoderDeterministic(t *testing.T) {
	enc := NewHashEncoder(128)
	a, err := enc.Embed(context.Background(), []string{"hello world"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _ := enc.Embed(context.Background(), []string{"hello world"})
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("same text must produce the identical vector")
		}
	}
}

func TestHashEncoderUnitNorm(t *testing.T) {
	enc := NewHashEncoder(128)
	vecs, _ := enc.Embed(context.Background(), []string{"the quick brown fox", ""})
	for _, vec := range vecs {
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm < 0.999 || norm > 1.001 {
			t.Fatalf("vector not unit-normalized: %f", norm)
		}
	}
}

func TestSearchRanksSharedVocabularyFirst(t *testing.T) {
	s := newTestService(t)
	results, err := s.Search(context.Background(), "trade goods coin", 2, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 || results[0].TemplateID != "trade_open" {
		t.Fatalf("expected trade_open first, got %+v", results)
	}
	for _, r := range results {
		if r.Similarity < 0 || r.Similarity > 1 {
			t.Fatalf("similarity out of [0,1]: %f", r.Similarity)
		}
	}
}

func TestSearchDeterministicRanking(t *testing.T) {
	s := newTestService(t)
	first, err := s.Search(context.Background(), "greetings traveler", 4, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := s.Search(context.Background(), "greetings traveler", 4, "")
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(again) != len(first) {
			t.Fatal("ranked list length changed between runs")
		}
		for j := range again {
			if again[j].TemplateID != first[j].TemplateID {
				t.Fatalf("ranking changed between runs: %+v vs %+v", again, first)
			}
		}
	}
}

func TestReputationFilterAppliedAfterRetrieval(t *testing.T) {
	s := newTestService(t)
	results, err := s.Search(context.Background(), "greetings market", 3, pack.TierNeutral)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.TemplateID == "greeting_revered" {
			t.Fatal("revered-only template must never surface for neutral tier")
		}
	}
}

func TestSearchFewerSurvivorsNoPadding(t *testing.T) {
	s := newTestService(t)
	// Only one template admits the revered tier plus the two unrestricted
	// ones; asking for 10 returns at most those survivors.
	results, err := s.Search(context.Background(), "greetings market trade farewell", 10, pack.TierRevered)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) > 3 {
		t.Fatalf("padding detected: %d results", len(results))
	}
	for _, r := range results {
		if r.TemplateID == "greeting_neutral" {
			t.Fatal("neutral-only template leaked into revered search")
		}
	}
}

func TestAddTemplatesIdempotent(t *testing.T) {
	s := newTestService(t)
	if err := s.AddTemplates(context.Background(), testTemplates()); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if s.Count() != 4 {
		t.Fatalf("re-adding must not grow the index: %d", s.Count())
	}
}

func TestSaveAndLoadIndex(t *testing.T) {
	s := newTestService(t)
	path := filepath.Join(t.TempDir(), "index.json")
	if err := s.SaveIndex(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh, err := NewService(Config{Encoder: NewHashEncoder(64)})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := fresh.LoadIndex(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.Count() != 4 {
		t.Fatalf("expected 4 templates after load, got %d", fresh.Count())
	}

	results, err := fresh.Search(context.Background(), "trade goods coin", 1, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].TemplateID != "trade_open" {
		t.Fatalf("loaded index search broken: %+v", results)
	}
}

func TestLoadIndexDimensionMismatch(t *testing.T) {
	s := newTestService(t)
	path := filepath.Join(t.TempDir(), "index.json")
	if err := s.SaveIndex(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	other, err := NewService(Config{Encoder: NewHashEncoder(128)})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	loadErr := other.LoadIndex(context.Background(), path)
	if !errors.IsCode(loadErr, errors.CodeIndexMismatch) {
		t.Fatalf("expected IndexMismatch, got %v", loadErr)
	}
	if other.Count() != 0 {
		t.Fatal("failed load must not mutate the index")
	}
}

func TestEmbedTextsBatchesAndCaches(t *testing.T) {
	s, err := NewService(Config{Encoder: NewHashEncoder(32), BatchSize: 2})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	texts := []string{"one", "two", "three", "four", "five"}
	vecs, err := s.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}

	again, err := s.EmbedTexts(context.Background(), []string{"three"})
	if err != nil {
		t.Fatalf("embed cached: %v", err)
	}
	for i := range again[0] {
		if again[0][i] != vecs[2][i] {
			t.Fatal("cached vector must match the original encoding")
		}
	}
}
