// Package adapters projects enriched universe state into the three views
// the dialogue subsystem consumes: NPC registrations (phase 2), semantic
// contexts (phase 3), and dialogue states (phase 4). Adapters hold
// non-owning references keyed by id; projections are derived data and safe
// to re-run.
package adapters

import (
	"fmt"
	"hash/fnv"
	"strings"

	"multiverse/internal/tier"
	"multiverse/internal/universe"
)

// NPCRegistration is the phase-2 view of an npc entity.
type NPCRegistration struct {
	NPCID             string                 `json:"npc_id"`
	NPCName           string                 `json:"npc_name"`
	RealmID           string                 `json:"realm_id"`
	EntityID          string                 `json:"entity_id"`
	EntityType        string                 `json:"entity_type"`
	Stat7             map[string]int         `json:"stat7"`
	PersonalityTraits map[string]interface{} `json:"personality_traits"`
	EnrichmentHistory []universe.Enrichment  `json:"enrichment_history"`
}

// realm-flavored given-name pools; selection is seeded by realm, entity and
// lineage so a name is stable for a given universe state.
var namePools = map[string][]string{
	"default": {"Theron", "Maela", "Garrick", "Isolde", "Bren", "Caspia", "Oren", "Lyra"},
	"tavern":  {"Brindle", "Hapworth", "Sella", "Odo", "Greta", "Finch"},
	"dungeon": {"Vesk", "Morwynn", "Skarn", "Ashka", "Derrow"},
}

var archetypePriority = []struct {
	elem      universe.StoryElement
	archetype string
}{
	{universe.StoryContradiction, "mysterious"},
	{universe.StoryQuest, "vigilant"},
	{universe.StoryNPCHistory, "experienced"},
	{universe.StoryDialogue, "talkative"},
}

// NPCAdapter builds and indexes phase-2 registrations.
type NPCAdapter struct {
	tiers   *tier.Registry
	byNPCID map[string]*NPCRegistration
	byRealm map[string][]*NPCRegistration
}

// NewNPCAdapter creates the adapter. The tier registry is optional; when
// present it contributes curated personality traits.
func NewNPCAdapter(tiers *tier.Registry) *NPCAdapter {
	return &NPCAdapter{
		tiers:   tiers,
		byNPCID: map[string]*NPCRegistration{},
		byRealm: map[string][]*NPCRegistration{},
	}
}

// GenerateNPCName derives a stable name from realm, entity and lineage.
func GenerateNPCName(realmID, entityID string, lineage int) string {
	pool := namePools["default"]
	for key, candidates := range namePools {
		if key != "default" && strings.Contains(realmID, key) {
			pool = candidates
			break
		}
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%s::%s::%d", realmID, entityID, lineage)
	return pool[int(h.Sum32())%len(pool)]
}

// RegisterEntityAsNPC projects an entity into a registration. overrideName
// wins over generated names when non-empty. Re-registering an npc_id
// replaces the prior registration in place.
func (a *NPCAdapter) RegisterEntityAsNPC(entity *universe.Entity, realmID, overrideName string) (*NPCRegistration, error) {
	stat7Map, err := entity.Address.Map()
	if err != nil {
		return nil, err
	}

	name := overrideName
	if name == "" {
		name = GenerateNPCName(realmID, entity.ID, entity.Address.Lineage)
	}

	observed := map[universe.StoryElement]bool{}
	var dimensions []string
	for _, elem := range entity.EnrichmentTypes() {
		if !observed[elem] {
			observed[elem] = true
			dimensions = append(dimensions, string(elem))
		}
	}

	archetype := "neutral"
	for _, rule := range archetypePriority {
		if observed[rule.elem] {
			archetype = rule.archetype
			break
		}
	}

	traits := map[string]interface{}{
		"archetype":           archetype,
		"enriched_dimensions": dimensions,
		"interaction_count":   entity.EnrichmentCount,
	}
	if a.tiers != nil {
		if assignment := a.tiers.Get(realmID); assignment != nil {
			p := tier.GeneratePersonality(assignment.Tier, assignment.Theme, entity.ID)
			traits["trait"] = p.Trait
			traits["dialogue_seed"] = p.DialogueSeed
		}
	}

	reg := &NPCRegistration{
		NPCID:             fmt.Sprintf("npc_%s_%s", realmID, entity.ID),
		NPCName:           name,
		RealmID:           realmID,
		EntityID:          entity.ID,
		EntityType:        entity.Type,
		Stat7:             stat7Map,
		PersonalityTraits: traits,
		EnrichmentHistory: append([]universe.Enrichment(nil), entity.Enrichments...),
	}

	if prior, exists := a.byNPCID[reg.NPCID]; exists {
		*prior = *reg
		return prior, nil
	}
	a.byNPCID[reg.NPCID] = reg
	a.byRealm[realmID] = append(a.byRealm[realmID], reg)
	return reg, nil
}

// GetNPC looks up a registration by npc_id, or nil.
func (a *NPCAdapter) GetNPC(npcID string) *NPCRegistration {
	return a.byNPCID[npcID]
}

// GetRealmNPCs returns registrations for a realm in registration order.
func (a *NPCAdapter) GetRealmNPCs(realmID string) []*NPCRegistration {
	return a.byRealm[realmID]
}

// Count reports registered npcs.
func (a *NPCAdapter) Count() int {
	return len(a.byNPCID)
}
