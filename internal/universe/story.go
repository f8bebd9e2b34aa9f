package universe

import "multiverse/internal/errors"

// StoryElement is the closed set of enrichment types an entity may accrue.
type StoryElement string

const (
	StoryDialogue        StoryElement = "dialogue"
	StoryNPCHistory      StoryElement = "npc_history"
	StoryQuest           StoryElement = "quest"
	StoryContradiction   StoryElement = "contradiction"
	StorySemanticContext StoryElement = "semantic_context"
)

// AllStoryElements lists the closed set in canonical order.
var AllStoryElements = []StoryElement{
	StoryDialogue,
	StoryNPCHistory,
	StoryQuest,
	StoryContradiction,
	StorySemanticContext,
}

// Valid reports whether s is a member of the closed set.
func (s StoryElement) Valid() bool {
	switch s {
	case StoryDialogue, StoryNPCHistory, StoryQuest, StoryContradiction, StorySemanticContext:
		return true
	}
	return false
}

func (s StoryElement) String() string {
	return string(s)
}

// ParseStoryElement converts a config string into a StoryElement.
func ParseStoryElement(raw string) (StoryElement, error) {
	s := StoryElement(raw)
	if !s.Valid() {
		return "", errors.New(errors.CodeInvalidEnrichment, "unknown enrichment type %q", raw)
	}
	return s, nil
}
