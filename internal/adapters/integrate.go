package adapters

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"multiverse/internal/ports"
	"multiverse/internal/universe"
)

// IntegrationResult summarizes one integrate_universe run.
type IntegrationResult struct {
	RealmsIntegrated int      `json:"realms_integrated"`
	NPCsRegistered   int      `json:"npcs_registered"`
	SemanticContexts int      `json:"semantic_contexts"`
	DialogueSessions int      `json:"dialogue_sessions"`
	Errors           []string `json:"errors,omitempty"`
}

// Integrator runs the three adapters over a whole universe.
type Integrator struct {
	NPCs      *NPCAdapter
	Semantics *SemanticAdapter
	Dialogues *DialogueAdapter
	logger    ports.Logger
}

// NewIntegrator wires the three adapters together.
func NewIntegrator(npcs *NPCAdapter, semantics *SemanticAdapter, dialogues *DialogueAdapter, logger ports.Logger) *Integrator {
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	return &Integrator{NPCs: npcs, Semantics: semantics, Dialogues: dialogues, logger: logger}
}

// IntegrateUniverse projects every entity through the adapters in phase
// order. Per-entity failures are collected, not fatal: projections are
// derived data and a re-run can always repair them.
func (i *Integrator) IntegrateUniverse(ctx context.Context, u *universe.Universe) (*IntegrationResult, error) {
	ctx, span := otel.Tracer("multiverse/adapters").Start(ctx, "adapters.integrate_universe")
	defer span.End()

	result := &IntegrationResult{}
	for _, realm := range u.Realms() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, entity := range realm.Entities {
			isNPC := strings.HasPrefix(entity.Type, "npc_")

			var npcName string
			if isNPC {
				reg, err := i.NPCs.RegisterEntityAsNPC(entity, realm.ID, "")
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("phase2 %s/%s: %v", realm.ID, entity.ID, err))
					continue
				}
				npcName = reg.NPCName
				result.NPCsRegistered++
			}

			i.Semantics.ExtractSemanticContext(entity, realm.ID)
			result.SemanticContexts++

			if isNPC {
				i.Dialogues.InitializeDialogueState(entity, npcName, realm.ID, u.CurrentOrbit)
				result.DialogueSessions++
			}
		}
		result.RealmsIntegrated++
	}

	if len(result.Errors) > 0 {
		i.logger.Warn("integration finished with %d per-entity errors", len(result.Errors))
	}
	i.logger.Info("integrated %d realms: %d npcs, %d semantic contexts, %d dialogue sessions",
		result.RealmsIntegrated, result.NPCsRegistered, result.SemanticContexts, result.DialogueSessions)
	return result, nil
}
