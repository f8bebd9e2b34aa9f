// Package query answers per-turn NPC dialogue queries: reputation tier
// resolution, semantic or keyword template retrieval, slot filling, and
// per-(player,npc) conversation sessions.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"multiverse/internal/adapters"
	"multiverse/internal/config"
	"multiverse/internal/embedding"
	"multiverse/internal/errors"
	"multiverse/internal/observability"
	"multiverse/internal/pack"
	"multiverse/internal/ports"
	"multiverse/internal/universe"
)

const semanticK = 5

// Response is the per-turn answer returned to the caller. It never
// contains an unresolved placeholder.
type Response struct {
	NPCResponse  string              `json:"npc_response"`
	TemplateID   string              `json:"template_id"`
	Similarity   *float64            `json:"similarity,omitempty"`
	Tier         pack.ReputationTier `json:"tier"`
	Turn         int                 `json:"turn"`
	Path         string              `json:"path"`
	SlotSnapshot map[string]string   `json:"slot_snapshot"`
}

// Service resolves npc queries against pack content and adapter state.
type Service struct {
	packs      *pack.Loader
	embeddings *embedding.Service
	reputation ports.ReputationStore
	players    ports.PlayerStore
	npcs       *adapters.NPCAdapter
	dialogues  *adapters.DialogueAdapter
	universe   *universe.Universe
	opts       config.Options
	sessions   *sessionManager
	logger     ports.Logger
	clock      ports.Clock
}

// Config captures service dependencies. Embeddings is optional; everything
// else is required.
type Config struct {
	Packs      *pack.Loader
	Embeddings *embedding.Service
	Reputation ports.ReputationStore
	Players    ports.PlayerStore
	NPCs       *adapters.NPCAdapter
	Dialogues  *adapters.DialogueAdapter
	Universe   *universe.Universe
	Options    config.Options
	Logger     ports.Logger
	Clock      ports.Clock
}

// NewService wires the query service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Packs == nil || cfg.Reputation == nil || cfg.Players == nil || cfg.NPCs == nil || cfg.Dialogues == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "query service missing a required dependency")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	idle := time.Duration(cfg.Options.SessionIdleTimeoutSeconds) * time.Second
	if idle <= 0 {
		idle = config.DefaultSessionIdleSeconds * time.Second
	}
	sessions, err := newSessionManager(idle, clock)
	if err != nil {
		return nil, err
	}
	return &Service{
		packs:      cfg.Packs,
		embeddings: cfg.Embeddings,
		reputation: cfg.Reputation,
		players:    cfg.Players,
		npcs:       cfg.NPCs,
		dialogues:  cfg.Dialogues,
		universe:   cfg.Universe,
		opts:       cfg.Options,
		sessions:   sessions,
		logger:     logger,
		clock:      clock,
	}, nil
}

// FactionOf derives the faction an npc answers to from its realm.
func FactionOf(realmID string) string {
	return "faction_" + realmID
}

// Session returns a copy of the live session for a pair, or nil.
func (s *Service) Session(playerID, npcID string) *Session {
	return s.sessions.peek(playerID, npcID)
}

// QueryNPC resolves one conversation turn.
func (s *Service) QueryNPC(ctx context.Context, playerID, npcID, userInput, realmID string) (*Response, error) {
	ctx, span := otel.Tracer("multiverse/query").Start(ctx, "query.query_npc")
	defer span.End()

	registration := s.npcs.GetNPC(npcID)
	if registration == nil || registration.RealmID != realmID {
		return nil, errors.New(errors.CodeUnknownRealm, "npc %q not registered in realm %q", npcID, realmID)
	}

	score, err := s.reputation.GetReputation(ctx, playerID, FactionOf(realmID))
	if err != nil {
		return nil, err
	}
	tier := s.opts.Thresholds.TierFor(score)

	entry := s.sessions.checkout(playerID, npcID)
	defer entry.mu.Unlock()

	if s.opts.MaxTurnsPerNPC > 0 && entry.session.TurnCount >= s.opts.MaxTurnsPerNPC {
		s.logger.Debug("npc %s reached turn cap %d for player %s", npcID, s.opts.MaxTurnsPerNPC, playerID)
		return s.cappedResponse(registration, tier, entry.session.TurnCount)
	}

	slots, err := s.buildSlotContext(ctx, playerID, registration, tier)
	if err != nil {
		return nil, err
	}

	intents := DeriveIntents(userInput)
	response := s.resolveTemplate(ctx, userInput, intents, tier, slots)
	response.Tier = tier

	now := s.clock.Now()
	entry.session.TurnCount++
	entry.session.LastIntent = intents[0]
	entry.session.LastActivity = now
	entry.session.History = append(entry.session.History, MemoryEntry{
		Turn:       entry.session.TurnCount,
		Intent:     intents[0],
		Input:      userInput,
		TemplateID: response.TemplateID,
		Timestamp:  now.UTC().Format(time.RFC3339),
	})
	response.Turn = entry.session.TurnCount

	observability.QueriesTotal.WithLabelValues(response.Path).Inc()
	return response, nil
}

// resolveTemplate walks the fallback chain semantic -> keyword -> default
// -> minimal safe response, always producing a fully-filled answer.
func (s *Service) resolveTemplate(ctx context.Context, userInput string, intents []string, tier pack.ReputationTier, slots map[string]string) *Response {
	if s.embeddings != nil {
		results, err := s.embeddings.Search(ctx, userInput, semanticK, tier)
		if err != nil {
			s.logger.Warn("semantic search failed, falling back to keyword path: %v", err)
		} else {
			for _, hit := range results {
				template := s.packs.TemplateByID(hit.TemplateID)
				if template == nil {
					continue
				}
				filled, fillErr := pack.FillSlots(template.Content, slots)
				if fillErr != nil {
					s.logger.Debug("template %s skipped: %v", template.ID, fillErr)
					continue
				}
				similarity := hit.Similarity
				return &Response{
					NPCResponse:  filled,
					TemplateID:   template.ID,
					Similarity:   &similarity,
					Path:         "semantic",
					SlotSnapshot: slots,
				}
			}
		}
	}

	for _, template := range s.packs.Templates() {
		if !template.HasAnyTag(intents) || !template.AllowsTier(tier) {
			continue
		}
		filled, fillErr := pack.FillSlots(template.Content, slots)
		if fillErr != nil {
			s.logger.Debug("template %s skipped: %v", template.ID, fillErr)
			continue
		}
		return &Response{
			NPCResponse:  filled,
			TemplateID:   template.ID,
			Path:         "keyword",
			SlotSnapshot: slots,
		}
	}

	observability.QueryFallbacks.Inc()
	if s.opts.DefaultFallbackTemplateID != "" {
		if template := s.packs.TemplateByID(s.opts.DefaultFallbackTemplateID); template != nil {
			if filled, fillErr := pack.FillSlots(template.Content, slots); fillErr == nil {
				return &Response{
					NPCResponse:  filled,
					TemplateID:   template.ID,
					Path:         "default",
					SlotSnapshot: slots,
				}
			}
		}
	}

	// Last resort: a minimally safe answer plus a structured operator log.
	s.logger.Error("query fallback exhausted: no template could answer (intents=%v tier=%s)", intents, tier)
	return &Response{
		NPCResponse:  pack.FallbackContent,
		TemplateID:   "",
		Path:         "minimal",
		SlotSnapshot: slots,
	}
}

func (s *Service) cappedResponse(registration *adapters.NPCRegistration, tier pack.ReputationTier, turn int) (*Response, error) {
	content := pack.FallbackContent
	templateID := ""
	if s.opts.DefaultFallbackTemplateID != "" {
		if template := s.packs.TemplateByID(s.opts.DefaultFallbackTemplateID); template != nil {
			if filled, err := pack.FillSlots(template.Content, map[string]string{"npc_name": registration.NPCName}); err == nil {
				content = filled
				templateID = template.ID
			}
		}
	}
	return &Response{
		NPCResponse: content,
		TemplateID:  templateID,
		Tier:        tier,
		Turn:        turn,
		Path:        "capped",
	}, nil
}

// buildSlotContext assembles the slot mapping from player state, the npc
// registration, and the phase-4 dialogue context.
func (s *Service) buildSlotContext(ctx context.Context, playerID string, registration *adapters.NPCRegistration, tier pack.ReputationTier) (map[string]string, error) {
	player, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	orbit := 0
	if s.universe != nil {
		orbit = s.universe.CurrentOrbit
	}
	dialogue, err := s.dialogues.GetDialogueContext(registration.EntityID, registration.RealmID, orbit)
	if err != nil {
		return nil, err
	}

	role := strings.TrimPrefix(registration.EntityType, "npc_")
	itemTypes := "traveling goods"
	if role == "merchant" || role == "innkeeper" {
		itemTypes = "wares and provisions"
	}

	npcHistory := fmt.Sprintf("tales spanning %d orbits", len(registration.EnrichmentHistory))
	for i := len(registration.EnrichmentHistory) - 1; i >= 0; i-- {
		if registration.EnrichmentHistory[i].Type == universe.StoryNPCHistory {
			if event, ok := registration.EnrichmentHistory[i].Data["event"].(string); ok {
				npcHistory = event
			}
			break
		}
	}

	questContext := player.QuestContext
	if questContext == "" {
		questContext = "no open quests"
	}
	inventory := player.InventorySummary
	if inventory == "" {
		inventory = "an empty pack"
	}

	return map[string]string{
		"user_name":         player.Name,
		"user_title":        player.Title,
		"npc_name":          registration.NPCName,
		"npc_role":          role,
		"item_types":        itemTypes,
		"location":          registration.RealmID,
		"time_of_day":       fmt.Sprintf("%v", dialogue["time_of_day"]),
		"npc_mood":          fmt.Sprintf("%v", dialogue["npc_mood"]),
		"narrative_phase":   fmt.Sprintf("%v", dialogue["narrative_phase"]),
		"inventory_summary": inventory,
		"faction_standing":  string(tier),
		"quest_context":     questContext,
		"npc_history":       npcHistory,
	}, nil
}
