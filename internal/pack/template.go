// Package pack ingests dialogue content: curated templates from YAML files
// and bulk documents from JSONL sources. Templates and documents are two
// variants of one record type discriminated by Kind; the embedding pathway
// is parametric over the variant.
package pack

import (
	"regexp"
	"strings"

	"multiverse/internal/errors"
)

// ReputationTier is the coarse standing used to gate templates.
type ReputationTier string

const (
	TierRevered    ReputationTier = "revered"
	TierTrusted    ReputationTier = "trusted"
	TierNeutral    ReputationTier = "neutral"
	TierSuspicious ReputationTier = "suspicious"
	TierHostile    ReputationTier = "hostile"
)

// AllReputationTiers lists the closed set from best to worst standing.
var AllReputationTiers = []ReputationTier{TierRevered, TierTrusted, TierNeutral, TierSuspicious, TierHostile}

// Valid reports membership in the closed tier set.
func (rt ReputationTier) Valid() bool {
	switch rt {
	case TierRevered, TierTrusted, TierNeutral, TierSuspicious, TierHostile:
		return true
	}
	return false
}

// Kind discriminates the two record variants.
type Kind string

const (
	KindTemplate Kind = "template"
	KindDocument Kind = "document"
)

// Record is a loaded content unit. Templates carry slot placeholders and an
// optional reputation whitelist; documents are free text.
type Record struct {
	Kind            Kind             `json:"kind"`
	ID              string           `json:"id"`
	Content         string           `json:"content"`
	Tags            []string         `json:"tags,omitempty"`
	ReputationTiers []ReputationTier `json:"reputation_tier,omitempty"`
	SourceID        string           `json:"source_id,omitempty"`
}

// AllowsTier reports whether the record's whitelist admits the tier. An
// absent whitelist admits every tier.
func (r *Record) AllowsTier(tier ReputationTier) bool {
	if len(r.ReputationTiers) == 0 {
		return true
	}
	for _, allowed := range r.ReputationTiers {
		if allowed == tier {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the record carries at least one of the tags.
func (r *Record) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

var (
	slotPattern     = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)
	leftoverPattern = regexp.MustCompile(`\{\{[^}]*\}\}|\{\{`)
)

// validateContent rejects malformed placeholder syntax at ingest time.
func validateContent(id, content string) error {
	stripped := slotPattern.ReplaceAllString(content, "")
	if idx := strings.Index(stripped, "{{"); idx >= 0 {
		return errors.New(errors.CodeInvalidConfig, "template %q has an unclosed placeholder at offset %d", id, idx)
	}
	return nil
}

// SlotNames extracts the placeholder names referenced by content, in order
// of first occurrence.
func SlotNames(content string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range slotPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// FillSlots substitutes {{slot}} placeholders from context. A placeholder
// with no context value fails with UnfilledSlot and names the slot.
func FillSlots(content string, context map[string]string) (string, error) {
	var missing string
	filled := slotPattern.ReplaceAllStringFunc(content, func(m string) string {
		name := slotPattern.FindStringSubmatch(m)[1]
		if v, ok := context[name]; ok && v != "" {
			return v
		}
		if missing == "" {
			missing = name
		}
		return m
	})
	if missing != "" {
		return "", errors.New(errors.CodeUnfilledSlot, "slot %q has no value in context", missing)
	}
	if leftoverPattern.MatchString(filled) {
		return "", errors.New(errors.CodeUnfilledSlot, "unresolved placeholder remains after filling")
	}
	return filled, nil
}

// FallbackContent is the minimal safe response used when even the default
// template cannot be filled.
const FallbackContent = "I have nothing to say about that."
