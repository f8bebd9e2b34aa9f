package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"multiverse/internal/adapters"
	"multiverse/internal/config"
	"multiverse/internal/embedding"
	"multiverse/internal/errors"
	"multiverse/internal/pack"
	"multiverse/internal/ports"
	"multiverse/internal/stat7"
	"multiverse/internal/universe"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	service    *Service
	reputation *MemoryReputationStore
	clock      *testClock
	npcID      string
}

func testTemplates() []pack.Record {
	return []pack.Record{
		{ID: "greeting_revered", Content: "The halls brighten when {{user_name}} arrives, {{user_title}}!",
			Tags: []string{"greeting"}, ReputationTiers: []pack.ReputationTier{pack.TierRevered}},
		{ID: "greeting_neutral", Content: "Good day, {{user_title}}. I am {{npc_name}}, {{npc_role}}.",
			Tags: []string{"greeting"}, ReputationTiers: []pack.ReputationTier{pack.TierNeutral, pack.TierSuspicious}},
		{ID: "trade_open", Content: "Looking to trade {{item_types}}, {{user_name}}? My {{npc_mood}} mood favors you.",
			Tags: []string{"trade_inquiry"}},
		{ID: "needs_missing_slot", Content: "This wants {{undefined_slot}} badly.",
			Tags: []string{"help_request"}},
		{ID: "help_general", Content: "Ask around {{location}} at {{time_of_day}}; someone will know.",
			Tags: []string{"help_request"}},
		{ID: "fallback_default", Content: "Hmm. {{npc_name}} ponders your words.",
			Tags: []string{"fallback"}},
	}
}

func newFixture(t *testing.T, withEmbeddings bool, mutate func(*config.Options)) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	u := universe.New(42, ports.ClockFunc(clock.Now))
	realm := universe.NewRealm("tavern", universe.RealmCustom)
	addr, err := stat7.New(0, 0, 1000, 1, 55, 40, 70)
	if err != nil {
		t.Fatal(err)
	}
	npc, err := universe.NewEntity("npc_tavern_0", "npc_merchant", addr, ports.ClockFunc(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	if err := npc.Enrich(universe.StoryDialogue, map[string]interface{}{"orbit": 0}); err != nil {
		t.Fatal(err)
	}
	if err := realm.AddEntity(npc); err != nil {
		t.Fatal(err)
	}
	if err := u.AttachRealm(realm); err != nil {
		t.Fatal(err)
	}

	npcs := adapters.NewNPCAdapter(nil)
	dialogues := adapters.NewDialogueAdapter()
	integrator := adapters.NewIntegrator(npcs, adapters.NewSemanticAdapter(), dialogues, nil)
	if _, err := integrator.IntegrateUniverse(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	loader := pack.NewLoader(pack.Config{})
	if err := loader.AddTemplates(testTemplates()); err != nil {
		t.Fatal(err)
	}
	if err := loader.LoadAllPacks(); err != nil {
		t.Fatal(err)
	}

	var embeddings *embedding.Service
	if withEmbeddings {
		embeddings, err = embedding.NewService(embedding.Config{Encoder: embedding.NewHashEncoder(64)})
		if err != nil {
			t.Fatal(err)
		}
		if err := embeddings.AddTemplates(context.Background(), loader.Templates()); err != nil {
			t.Fatal(err)
		}
	}

	players := NewMemoryPlayerStore()
	players.Put("player_a", ports.PlayerProfile{
		Name: "Aria", Title: "Renowned Adventurer", FactionID: FactionOf("tavern"),
		InventorySummary: "a sturdy pack", QuestContext: "seeking the lost ledger",
	})

	opts := config.Default()
	opts.DefaultFallbackTemplateID = "fallback_default"
	if mutate != nil {
		mutate(&opts)
	}

	reputation := NewMemoryReputationStore()
	service, err := NewService(Config{
		Packs:      loader,
		Embeddings: embeddings,
		Reputation: reputation,
		Players:    players,
		NPCs:       npcs,
		Dialogues:  dialogues,
		Universe:   u,
		Options:    opts,
		Clock:      ports.ClockFunc(clock.Now),
	})
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{
		service:    service,
		reputation: reputation,
		clock:      clock,
		npcID:      "npc_tavern_npc_tavern_0",
	}
}

func TestKeywordPathGreeting(t *testing.T) {
	f := newFixture(t, false, nil)
	resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, "hello there", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.TemplateID != "greeting_neutral" {
		t.Fatalf("neutral player should get the neutral greeting, got %s", resp.TemplateID)
	}
	if resp.Path != "keyword" {
		t.Fatalf("no embeddings attached, path must be keyword: %s", resp.Path)
	}
	if resp.NPCResponse != "Good day, Renowned Adventurer. I am "+resp.SlotSnapshot["npc_name"]+", merchant." {
		t.Fatalf("slot filling wrong: %q", resp.NPCResponse)
	}
}

func TestSemanticPathSelectedWhenAttached(t *testing.T) {
	f := newFixture(t, true, nil)
	resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, "trade wares goods coin", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.Path != "semantic" {
		t.Fatalf("embeddings attached, path must be semantic: %s", resp.Path)
	}
	if resp.Similarity == nil {
		t.Fatal("semantic responses must report similarity")
	}
}

func TestReputationSwitchedResponse(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	neutral, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if neutral.Tier != pack.TierNeutral || neutral.TemplateID != "greeting_neutral" {
		t.Fatalf("expected neutral tier greeting, got %s/%s", neutral.Tier, neutral.TemplateID)
	}

	if _, err := f.reputation.ModifyReputation(ctx, "player_a", FactionOf("tavern"), 600); err != nil {
		t.Fatal(err)
	}

	revered, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if revered.Tier != pack.TierRevered {
		t.Fatalf("tier should be revered after +600, got %s", revered.Tier)
	}
	if revered.TemplateID == neutral.TemplateID {
		t.Fatal("revered response must select a different template")
	}
	if revered.NPCResponse == neutral.NPCResponse {
		t.Fatal("response text must differ across tiers")
	}
}

func TestNoUnresolvedPlaceholders(t *testing.T) {
	f := newFixture(t, true, nil)
	inputs := []string{"hello", "help me please", "trade?", "what of the prophecy", "goodbye"}
	for _, input := range inputs {
		resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, input, "tavern")
		if err != nil {
			t.Fatalf("query %q: %v", input, err)
		}
		if strings.Contains(resp.NPCResponse, "{{") {
			t.Fatalf("unresolved placeholder in response to %q: %q", input, resp.NPCResponse)
		}
	}
}

func TestUnfilledSlotFallsBackToNextCandidate(t *testing.T) {
	f := newFixture(t, false, nil)
	resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, "help me", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// needs_missing_slot comes first in insertion order but cannot fill.
	if resp.TemplateID != "help_general" {
		t.Fatalf("expected fallback to the next matching template, got %s", resp.TemplateID)
	}
}

func TestDefaultFallbackForUnmatchedIntent(t *testing.T) {
	f := newFixture(t, false, nil)
	resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, "ponder the void", "tavern")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.TemplateID != "fallback_default" || resp.Path != "default" {
		t.Fatalf("expected default fallback, got %s via %s", resp.TemplateID, resp.Path)
	}
}

func TestTurnCounterStrictlyIncreasing(t *testing.T) {
	f := newFixture(t, false, nil)
	for want := 1; want <= 4; want++ {
		resp, err := f.service.QueryNPC(context.Background(), "player_a", f.npcID, "hello", "tavern")
		if err != nil {
			t.Fatal(err)
		}
		if resp.Turn != want {
			t.Fatalf("expected turn %d, got %d", want, resp.Turn)
		}
	}
}

func TestIdleTimeoutResetsSession(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	if _, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello again", "tavern"); err != nil {
		t.Fatal(err)
	}

	f.clock.advance(6 * time.Minute)

	resp, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello once more", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Turn != 1 {
		t.Fatalf("idle timeout must silently reset the session, got turn %d", resp.Turn)
	}
}

func TestSessionsIsolatedPerPair(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()

	players := f.service.players.(*MemoryPlayerStore)
	players.Put("player_b", ports.PlayerProfile{Name: "Borin", Title: "Wanderer"})

	if _, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern"); err != nil {
		t.Fatal(err)
	}
	resp, err := f.service.QueryNPC(ctx, "player_b", f.npcID, "hello", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Turn != 1 {
		t.Fatalf("player_b session must be independent, got turn %d", resp.Turn)
	}
}

func TestTurnCapReturnsFallback(t *testing.T) {
	f := newFixture(t, false, func(o *config.Options) { o.MaxTurnsPerNPC = 2 })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern"); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := f.service.QueryNPC(ctx, "player_a", f.npcID, "hello", "tavern")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Path != "capped" {
		t.Fatalf("capped conversation should answer via the capped path, got %s", resp.Path)
	}
	if resp.Turn != 2 {
		t.Fatalf("capped response must not advance the turn, got %d", resp.Turn)
	}
}

func TestUnknownNPCRejected(t *testing.T) {
	f := newFixture(t, false, nil)
	_, err := f.service.QueryNPC(context.Background(), "player_a", "npc_ghost", "hello", "tavern")
	if !errors.IsCode(err, errors.CodeUnknownRealm) {
		t.Fatalf("expected UnknownRealm, got %v", err)
	}
}

func TestDeriveIntents(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Hello there!", IntentGreeting},
		{"I want to BUY some goods", IntentTradeInquiry},
		{"can you help me", IntentHelpRequest},
		{"goodbye friend", IntentFarewell},
		{"I will attack you", IntentHostile},
		{"the weather is nice", IntentGeneral},
	}
	for _, tc := range cases {
		intents := DeriveIntents(tc.input)
		if intents[0] != tc.want {
			t.Fatalf("input %q: expected %s, got %v", tc.input, tc.want, intents)
		}
	}
}

func TestDeriveIntentsWholeWordOnly(t *testing.T) {
	// "hill" contains "hi" but must not match greeting
	intents := DeriveIntents("the hill is steep")
	if intents[0] != IntentGeneral {
		t.Fatalf("substring must not match an intent keyword: %v", intents)
	}
}

func TestDefaultResonance(t *testing.T) {
	a, _ := stat7.New(0, 0, 0, 0, 50, 50, 50)
	if got := DefaultResonance(a, a); got != 1 {
		t.Fatalf("identical addresses should resonate at 1, got %f", got)
	}
	b, _ := stat7.New(0, 0, 0, 0, 0, 0, 0)
	c, _ := stat7.New(0, 0, 0, 0, 100, 100, 100)
	if got := DefaultResonance(b, c); got != 0 {
		t.Fatalf("opposite gauges should resonate at 0, got %f", got)
	}
}

func TestHybridScore(t *testing.T) {
	if got := HybridScore(0.7, 1.0, 0.0); got < 0.699 || got > 0.701 {
		t.Fatalf("expected 0.7, got %f", got)
	}
	if got := HybridScore(1.0, 0.5, 0.9); got != 0.5 {
		t.Fatalf("weight_semantic=1 must ignore resonance, got %f", got)
	}
}
