package adapters

import (
	"strings"

	"multiverse/internal/errors"
	"multiverse/internal/universe"
)

// DialogueState is the phase-4 view backing a conversation with an npc.
type DialogueState struct {
	EntityID              string                 `json:"entity_id"`
	NPCName               string                 `json:"npc_name"`
	RealmID               string                 `json:"realm_id"`
	CurrentOrbitAtInit    int                    `json:"current_orbit_at_init"`
	DialogueTurn          int                    `json:"dialogue_turn"`
	EnrichmentProgression []string               `json:"enrichment_progression"`
	NarrativePhase        string                 `json:"narrative_phase"`
	LocationContext       map[string]interface{} `json:"location_context"`
	NPCMood               string                 `json:"npc_mood"`
	TimeOfDay             string                 `json:"time_of_day"`
}

// orbitTimes maps orbit mod 7 onto the day cycle.
var orbitTimes = []string{"dawn", "morning", "noon", "afternoon", "evening", "dusk", "night"}

// TimeOfDay returns the day-cycle label for an orbit.
func TimeOfDay(orbit int) string {
	return orbitTimes[orbit%len(orbitTimes)]
}

// LocationType derives a coarse location class from the realm id.
func LocationType(realmID string) string {
	switch {
	case strings.Contains(realmID, "tavern"):
		return "tavern"
	case strings.Contains(realmID, "dungeon"):
		return "dungeon"
	case strings.Contains(realmID, "market"):
		return "market"
	}
	return "neutral_ground"
}

// moodFor maps the most recent enrichment onto an npc mood.
func moodFor(entity *universe.Entity) string {
	last := entity.LastEnrichment()
	if last == nil {
		return "neutral"
	}
	switch last.Type {
	case universe.StoryDialogue:
		return "talkative"
	case universe.StoryNPCHistory:
		return "experienced"
	case universe.StoryQuest:
		return "engaged"
	case universe.StoryContradiction:
		return "conflicted"
	}
	return "neutral"
}

// narrativePhaseFor maps enrichment depth onto the conversation arc.
func narrativePhaseFor(count int) string {
	switch {
	case count == 0:
		return "introduction"
	case count <= 2:
		return "context"
	case count <= 4:
		return "deepening"
	}
	return "resolution"
}

// DialogueAdapter builds and tracks phase-4 dialogue states.
type DialogueAdapter struct {
	states map[string]*DialogueState // key realmID::entityID
}

// NewDialogueAdapter creates the adapter.
func NewDialogueAdapter() *DialogueAdapter {
	return &DialogueAdapter{states: map[string]*DialogueState{}}
}

// InitializeDialogueState projects an entity into a fresh dialogue state.
// Re-initializing resets the turn counter; derived fields recompute from
// current entity state.
func (a *DialogueAdapter) InitializeDialogueState(entity *universe.Entity, npcName, realmID string, currentOrbit int) *DialogueState {
	progression := make([]string, 0, entity.EnrichmentCount)
	for _, elem := range entity.EnrichmentTypes() {
		progression = append(progression, string(elem))
	}

	state := &DialogueState{
		EntityID:              entity.ID,
		NPCName:               npcName,
		RealmID:               realmID,
		CurrentOrbitAtInit:    currentOrbit,
		DialogueTurn:          0,
		EnrichmentProgression: progression,
		NarrativePhase:        narrativePhaseFor(entity.EnrichmentCount),
		LocationContext: map[string]interface{}{
			"stat7_signature": entity.Address.Signature(),
			"location_type":   LocationType(realmID),
		},
		NPCMood:   moodFor(entity),
		TimeOfDay: TimeOfDay(currentOrbit),
	}
	a.states[contextKey(realmID, entity.ID)] = state
	return state
}

// GetDialogueState returns the stored state, or nil.
func (a *DialogueAdapter) GetDialogueState(entityID, realmID string) *DialogueState {
	return a.states[contextKey(realmID, entityID)]
}

// GetDialogueContext returns the state as a slot-friendly view for the
// given orbit; time_of_day reflects the queried orbit, not the init orbit.
func (a *DialogueAdapter) GetDialogueContext(entityID, realmID string, orbit int) (map[string]interface{}, error) {
	state := a.GetDialogueState(entityID, realmID)
	if state == nil {
		return nil, errors.New(errors.CodeUnknownRealm, "no dialogue state for entity %q in realm %q", entityID, realmID)
	}
	return map[string]interface{}{
		"entity_id":       state.EntityID,
		"npc_name":        state.NPCName,
		"realm_id":        state.RealmID,
		"dialogue_turn":   state.DialogueTurn,
		"narrative_phase": state.NarrativePhase,
		"location_type":   state.LocationContext["location_type"],
		"stat7_signature": state.LocationContext["stat7_signature"],
		"npc_mood":        state.NPCMood,
		"time_of_day":     TimeOfDay(orbit),
	}, nil
}

// AdvanceDialogueTurn increments and returns the stored turn counter.
func (a *DialogueAdapter) AdvanceDialogueTurn(entityID, realmID string) (int, error) {
	state := a.GetDialogueState(entityID, realmID)
	if state == nil {
		return 0, errors.New(errors.CodeUnknownRealm, "no dialogue state for entity %q in realm %q", entityID, realmID)
	}
	state.DialogueTurn++
	return state.DialogueTurn, nil
}

// Count reports tracked dialogue states.
func (a *DialogueAdapter) Count() int {
	return len(a.states)
}
