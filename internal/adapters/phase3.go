package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"multiverse/internal/universe"
)

// SemanticContext is the phase-3 view of an entity's narrative state.
type SemanticContext struct {
	EntityID          string   `json:"entity_id"`
	RealmID           string   `json:"realm_id"`
	PrimaryTopic      string   `json:"primary_topic"`
	RelatedTopics     []string `json:"related_topics"`
	NarrativeArc      []string `json:"narrative_arc"`
	EnrichmentDensity float64  `json:"enrichment_density"`
	AuditTrailDepth   int      `json:"audit_trail_depth"`
	SemanticKeywords  []string `json:"semantic_keywords"`
}

// densityWindow normalizes enrichment counts into a density gauge.
const densityWindow = 7

// SemanticAdapter extracts and indexes phase-3 contexts.
type SemanticAdapter struct {
	byEntity  map[string]*SemanticContext // key realmID::entityID
	byTopic   map[string][]string
	byKeyword map[string][]string
	byRealm   map[string][]string
}

// NewSemanticAdapter creates the adapter.
func NewSemanticAdapter() *SemanticAdapter {
	return &SemanticAdapter{
		byEntity:  map[string]*SemanticContext{},
		byTopic:   map[string][]string{},
		byKeyword: map[string][]string{},
		byRealm:   map[string][]string{},
	}
}

func contextKey(realmID, entityID string) string {
	return realmID + "::" + entityID
}

// ExtractSemanticContext computes the semantic view of one entity and
// indexes it. Re-extraction replaces the stored context; indices stay
// stable in first-registration order.
func (a *SemanticAdapter) ExtractSemanticContext(entity *universe.Entity, realmID string) *SemanticContext {
	counts := map[string]int{}
	var firstSeen []string
	arc := make([]string, 0, len(entity.Enrichments))
	for _, r := range entity.Enrichments {
		label := string(r.Type)
		if counts[label] == 0 {
			firstSeen = append(firstSeen, label)
		}
		counts[label]++
		arc = append(arc, fmt.Sprintf("%s: %s", label, briefData(r.Data)))
	}

	primary := ""
	for label, n := range counts {
		if primary == "" || n > counts[primary] || (n == counts[primary] && label < primary) {
			primary = label
		}
	}

	var related []string
	for _, label := range firstSeen {
		if label != primary {
			related = append(related, label)
		}
	}

	prefix := entity.Type
	if idx := strings.Index(prefix, "_"); idx > 0 {
		prefix = prefix[:idx]
	}
	keywords := make([]string, 0, len(firstSeen)+2)
	keywords = append(keywords, firstSeen...)
	keywords = append(keywords, "realm_"+realmID, "entity_"+prefix)

	sc := &SemanticContext{
		EntityID:          entity.ID,
		RealmID:           realmID,
		PrimaryTopic:      primary,
		RelatedTopics:     related,
		NarrativeArc:      arc,
		EnrichmentDensity: float64(entity.EnrichmentCount) / densityWindow,
		AuditTrailDepth:   entity.EnrichmentCount,
		SemanticKeywords:  keywords,
	}

	key := contextKey(realmID, entity.ID)
	if prior, exists := a.byEntity[key]; exists {
		a.unindex(prior, sc)
		*prior = *sc
		sc = prior
	} else {
		a.byEntity[key] = sc
	}
	a.index(sc)
	return sc
}

func (a *SemanticAdapter) index(sc *SemanticContext) {
	if sc.PrimaryTopic != "" {
		a.byTopic[sc.PrimaryTopic] = appendUnique(a.byTopic[sc.PrimaryTopic], sc.EntityID)
	}
	for _, topic := range sc.RelatedTopics {
		a.byTopic[topic] = appendUnique(a.byTopic[topic], sc.EntityID)
	}
	for _, kw := range sc.SemanticKeywords {
		a.byKeyword[kw] = appendUnique(a.byKeyword[kw], sc.EntityID)
	}
	a.byRealm[sc.RealmID] = appendUnique(a.byRealm[sc.RealmID], sc.EntityID)
}

// unindex drops sc's entity only from the topic and keyword lists that next
// no longer carries, so lists it stays in keep their registration order.
func (a *SemanticAdapter) unindex(sc, next *SemanticContext) {
	keepTopic := map[string]bool{next.PrimaryTopic: true}
	for _, topic := range next.RelatedTopics {
		keepTopic[topic] = true
	}
	keepKeyword := map[string]bool{}
	for _, kw := range next.SemanticKeywords {
		keepKeyword[kw] = true
	}
	if sc.PrimaryTopic != "" && !keepTopic[sc.PrimaryTopic] {
		a.byTopic[sc.PrimaryTopic] = removeID(a.byTopic[sc.PrimaryTopic], sc.EntityID)
	}
	for _, topic := range sc.RelatedTopics {
		if !keepTopic[topic] {
			a.byTopic[topic] = removeID(a.byTopic[topic], sc.EntityID)
		}
	}
	for _, kw := range sc.SemanticKeywords {
		if !keepKeyword[kw] {
			a.byKeyword[kw] = removeID(a.byKeyword[kw], sc.EntityID)
		}
	}
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func removeID(list []string, id string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func briefData(data map[string]interface{}) string {
	if len(data) == 0 {
		return "(no detail)"
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s=%v", keys[0], data[keys[0]])
}

// GetContext returns the stored context for an entity, or nil.
func (a *SemanticAdapter) GetContext(realmID, entityID string) *SemanticContext {
	return a.byEntity[contextKey(realmID, entityID)]
}

// SearchByTopic returns entity ids whose primary or related topics include
// topic, in first-registration order.
func (a *SemanticAdapter) SearchByTopic(topic string) []string {
	return append([]string(nil), a.byTopic[topic]...)
}

// SearchByKeyword returns entity ids carrying the keyword.
func (a *SemanticAdapter) SearchByKeyword(keyword string) []string {
	return append([]string(nil), a.byKeyword[keyword]...)
}

// RealmEntities returns entity ids indexed for the realm.
func (a *SemanticAdapter) RealmEntities(realmID string) []string {
	return append([]string(nil), a.byRealm[realmID]...)
}

// Count reports stored contexts.
func (a *SemanticAdapter) Count() int {
	return len(a.byEntity)
}

// RefreshSemanticContext implements the torus engine's refresher port:
// every entity's semantic view is re-extracted against current state.
func (a *SemanticAdapter) RefreshSemanticContext(ctx context.Context, u *universe.Universe) error {
	for _, realm := range u.Realms() {
		for _, entity := range realm.Entities {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.ExtractSemanticContext(entity, realm.ID)
		}
	}
	return nil
}
