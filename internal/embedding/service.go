// Package embedding adapts a dense-vector encoder onto an in-memory
// nearest-neighbor index over pack templates. Searches run shared-read;
// index mutation takes the exclusive write lock.
package embedding

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"multiverse/internal/errors"
	"multiverse/internal/pack"
	"multiverse/internal/ports"
)

// DefaultBatchSize bounds one encoder call.
const DefaultBatchSize = 32

const cacheSize = 2048

// SearchResult is one ranked retrieval hit. Similarity is in [0,1].
type SearchResult struct {
	TemplateID string
	Similarity float64
}

type indexEntry struct {
	ID      string                `json:"id"`
	Content string                `json:"content"`
	Tags    []string              `json:"tags,omitempty"`
	Tiers   []pack.ReputationTier `json:"reputation_tier,omitempty"`
	Vector  []float32             `json:"vector"`
}

// Service owns the vector index and references templates by id.
type Service struct {
	encoder   ports.Encoder
	batchSize int
	logger    ports.Logger

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	entries    []indexEntry
	byID       map[string]int
	cache      *lru.Cache[string, []float32]
}

// Config captures service dependencies.
type Config struct {
	Encoder   ports.Encoder
	BatchSize int
	Logger    ports.Logger
}

// NewService creates an empty index over the encoder.
func NewService(cfg Config) (*Service, error) {
	if cfg.Encoder == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "embedding service requires an encoder")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, err
	}
	s := &Service{
		encoder:   cfg.Encoder,
		batchSize: batchSize,
		logger:    logger,
		byID:      map[string]int{},
		cache:     cache,
	}
	if err := s.resetCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) resetCollection() error {
	s.db = chromem.NewDB()
	collection, err := s.db.CreateCollection("templates", nil, func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := s.encoder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	})
	if err != nil {
		return err
	}
	s.collection = collection
	return nil
}

// Dimensions reports the index vector width.
func (s *Service) Dimensions() int {
	return s.encoder.Dimensions()
}

// Count reports the number of indexed templates.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EmbedTexts encodes texts in batches, serving repeats from the LRU cache.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := s.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	batches := (len(missTexts) + s.batchSize - 1) / s.batchSize
	results := make([][][]float32, batches)
	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < batches; b++ {
		start := b * s.batchSize
		end := start + s.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		g.Go(func() error {
			vecs, err := s.encoder.Embed(gctx, missTexts[start:end])
			if err != nil {
				return err
			}
			results[start/s.batchSize] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flat := make([][]float32, 0, len(missTexts))
	for _, batch := range results {
		flat = append(flat, batch...)
	}
	for j, i := range missIdx {
		out[i] = flat[j]
		s.cache.Add(missTexts[j], flat[j])
	}
	return out, nil
}

// AddTemplates encodes and indexes templates. Already-indexed ids are
// skipped, making repeated builds idempotent.
func (s *Service) AddTemplates(ctx context.Context, templates []*pack.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []*pack.Record
	for _, t := range templates {
		if _, exists := s.byID[t.ID]; exists {
			continue
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return nil
	}

	texts := make([]string, len(fresh))
	for i, t := range fresh {
		texts[i] = t.Content
	}
	vectors, err := s.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(fresh))
	for i, t := range fresh {
		docs[i] = chromem.Document{
			ID:        t.ID,
			Content:   t.Content,
			Embedding: vectors[i],
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return err
	}
	for i, t := range fresh {
		s.byID[t.ID] = len(s.entries)
		s.entries = append(s.entries, indexEntry{
			ID:      t.ID,
			Content: t.Content,
			Tags:    append([]string(nil), t.Tags...),
			Tiers:   append([]pack.ReputationTier(nil), t.ReputationTiers...),
			Vector:  vectors[i],
		})
	}
	s.logger.Debug("indexed %d templates (total %d)", len(fresh), len(s.entries))
	return nil
}

// BuildEmbeddings indexes every template a loader holds. Safe to call
// repeatedly; already-indexed templates are skipped.
func (s *Service) BuildEmbeddings(ctx context.Context, loader *pack.Loader) error {
	return s.AddTemplates(ctx, loader.Templates())
}

// Search returns the top-k templates for the query, most similar first.
// When a reputation tier is given, filtering happens after retrieval over a
// 2k candidate pool; fewer than k survivors are returned without padding.
func (s *Service) Search(ctx context.Context, query string, k int, tier pack.ReputationTier) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}

	queryVecs, err := s.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	pool := k * 2
	if pool > len(s.entries) {
		pool = len(s.entries)
	}
	hits, err := s.collection.QueryEmbedding(ctx, queryVecs[0], pool, nil, nil)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		entry := s.entries[s.byID[hit.ID]]
		if tier != "" {
			allowed := len(entry.Tiers) == 0
			for _, t := range entry.Tiers {
				if t == tier {
					allowed = true
					break
				}
			}
			if !allowed {
				continue
			}
		}
		results = append(results, SearchResult{
			TemplateID: hit.ID,
			Similarity: (float64(hit.Similarity) + 1) / 2,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

type indexFile struct {
	Dimension int          `json:"dimension"`
	Count     int          `json:"count"`
	Entries   []indexEntry `json:"entries"`
}

// SaveIndex writes the index to disk for cold-start reuse.
func (s *Service) SaveIndex(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.Marshal(indexFile{
		Dimension: s.encoder.Dimensions(),
		Count:     len(s.entries),
		Entries:   s.entries,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadIndex replaces the index with a saved one. Dimension or count
// mismatches fail with IndexMismatch before any vector is accepted.
func (s *Service) LoadIndex(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.CodeIndexMismatch, err, "reading index %q", path)
	}
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(errors.CodeIndexMismatch, err, "decoding index %q", path)
	}
	if file.Dimension != s.encoder.Dimensions() {
		return errors.New(errors.CodeIndexMismatch,
			"index dimension %d does not match encoder dimension %d", file.Dimension, s.encoder.Dimensions())
	}
	if file.Count != len(file.Entries) {
		return errors.New(errors.CodeIndexMismatch,
			"index declares %d templates but holds %d", file.Count, len(file.Entries))
	}
	for _, entry := range file.Entries {
		if len(entry.Vector) != file.Dimension {
			return errors.New(errors.CodeIndexMismatch,
				"template %q vector has %d dimensions, want %d", entry.ID, len(entry.Vector), file.Dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.resetCollection(); err != nil {
		return err
	}
	docs := make([]chromem.Document, len(file.Entries))
	for i, entry := range file.Entries {
		docs[i] = chromem.Document{ID: entry.ID, Content: entry.Content, Embedding: entry.Vector}
	}
	if len(docs) > 0 {
		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			return err
		}
	}
	s.entries = file.Entries
	s.byID = make(map[string]int, len(file.Entries))
	for i, entry := range file.Entries {
		s.byID[entry.ID] = i
	}
	s.logger.Info("loaded index from %q: %d templates, dim %d", path, file.Count, file.Dimension)
	return nil
}
