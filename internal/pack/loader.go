package pack

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"multiverse/internal/errors"
	"multiverse/internal/ports"
)

// Stats summarizes loaded pack content.
type Stats struct {
	TemplateCount  int            `json:"template_count"`
	DocumentCounts map[string]int `json:"document_counts"`
	TagCounts      map[string]int `json:"tag_counts"`
}

type templateFile struct {
	Templates []struct {
		ID             string   `yaml:"id"`
		Content        string   `yaml:"content"`
		Tags           []string `yaml:"tags"`
		ReputationTier []string `yaml:"reputation_tier"`
	} `yaml:"templates"`
}

type documentLine struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Loader owns the template store and document sources. The template store
// is immutable after LoadAllPacks.
type Loader struct {
	templatesDir    string
	documentSources map[string]string

	templates []*Record
	byID      map[string]*Record
	documents map[string][]*Record
	loaded    bool
	logger    ports.Logger
}

// Config captures loader inputs.
type Config struct {
	TemplatesDir    string
	DocumentSources map[string]string // source id -> jsonl path
	Logger          ports.Logger
}

// NewLoader creates a loader over the given content sources.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	sources := cfg.DocumentSources
	if sources == nil {
		sources = map[string]string{}
	}
	return &Loader{
		templatesDir:    cfg.TemplatesDir,
		documentSources: sources,
		byID:            map[string]*Record{},
		documents:       map[string][]*Record{},
		logger:          logger,
	}
}

// AddTemplates registers templates programmatically, validating the same
// way file ingestion does. Used by tests and embedded packs.
func (l *Loader) AddTemplates(records []Record) error {
	if l.loaded {
		return errors.New(errors.CodeInvalidConfig, "template store is immutable after load_all_packs")
	}
	for _, r := range records {
		if err := l.addTemplate(r); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) addTemplate(r Record) error {
	if r.ID == "" {
		return errors.New(errors.CodeInvalidConfig, "template with empty id")
	}
	if _, dup := l.byID[r.ID]; dup {
		return errors.New(errors.CodeInvalidConfig, "duplicate template id %q", r.ID)
	}
	if err := validateContent(r.ID, r.Content); err != nil {
		return err
	}
	for _, tier := range r.ReputationTiers {
		if !tier.Valid() {
			return errors.New(errors.CodeInvalidConfig, "template %q names unknown reputation tier %q", r.ID, tier)
		}
	}
	r.Kind = KindTemplate
	stored := r
	l.templates = append(l.templates, &stored)
	l.byID[r.ID] = &stored
	return nil
}

// LoadAllPacks ingests every template file in the templates directory in
// sorted filename order, then freezes the store.
func (l *Loader) LoadAllPacks() error {
	if l.loaded {
		return nil
	}
	if l.templatesDir != "" {
		entries, err := os.ReadDir(l.templatesDir)
		if err != nil {
			return errors.Wrap(errors.CodeInvalidConfig, err, "reading templates dir %q", l.templatesDir)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext == ".yaml" || ext == ".yml" {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if err := l.loadTemplateFile(filepath.Join(l.templatesDir, name)); err != nil {
				return err
			}
		}
	}
	l.loaded = true
	l.logger.Info("pack load complete: %d templates from %q", len(l.templates), l.templatesDir)
	return nil
}

func (l *Loader) loadTemplateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.CodeInvalidConfig, err, "reading %q", path)
	}
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(errors.CodeInvalidConfig, err, "decoding %q", path)
	}
	for _, t := range file.Templates {
		tiers := make([]ReputationTier, len(t.ReputationTier))
		for i, raw := range t.ReputationTier {
			tiers[i] = ReputationTier(raw)
		}
		if err := l.addTemplate(Record{
			ID:              t.ID,
			Content:         t.Content,
			Tags:            t.Tags,
			ReputationTiers: tiers,
			SourceID:        filepath.Base(path),
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoadDocuments ingests a newline-delimited JSON source. Results are cached
// per source id.
func (l *Loader) LoadDocuments(sourceID string) ([]*Record, error) {
	if docs, ok := l.documents[sourceID]; ok {
		return docs, nil
	}
	path, ok := l.documentSources[sourceID]
	if !ok {
		return nil, errors.New(errors.CodeInvalidConfig, "unknown document source %q", sourceID)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidConfig, err, "opening document source %q", sourceID)
	}
	defer f.Close()

	var docs []*Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc documentLine
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, errors.Wrap(errors.CodeInvalidConfig, err, "source %q line %d", sourceID, lineNo)
		}
		if doc.ID == "" {
			return nil, errors.New(errors.CodeInvalidConfig, "source %q line %d has empty id", sourceID, lineNo)
		}
		docs = append(docs, &Record{
			Kind:     KindDocument,
			ID:       doc.ID,
			Content:  doc.Content,
			Tags:     doc.Tags,
			SourceID: sourceID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidConfig, err, "scanning source %q", sourceID)
	}
	l.documents[sourceID] = docs
	l.logger.Info("loaded %d documents from source %q", len(docs), sourceID)
	return docs, nil
}

// Templates returns the ordered template store.
func (l *Loader) Templates() []*Record {
	return l.templates
}

// TemplateByID looks up a template, or nil.
func (l *Loader) TemplateByID(id string) *Record {
	return l.byID[id]
}

// GetStats summarizes loaded content.
func (l *Loader) GetStats() Stats {
	stats := Stats{
		TemplateCount:  len(l.templates),
		DocumentCounts: map[string]int{},
		TagCounts:      map[string]int{},
	}
	for source, docs := range l.documents {
		stats.DocumentCounts[source] = len(docs)
	}
	for _, t := range l.templates {
		for _, tag := range t.Tags {
			stats.TagCounts[tag]++
		}
	}
	return stats
}
