package torus

import (
	"context"
	"sync"
	"testing"
	"time"

	"multiverse/internal/bigbang"
	"multiverse/internal/errors"
	"multiverse/internal/ports"
	"multiverse/internal/providers"
	"multiverse/internal/stat7"
	"multiverse/internal/universe"
)

var testClock = ports.ClockFunc(func() time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
})

func buildUniverse(t *testing.T, realms ...providers.RealmSpec) *universe.Universe {
	t.Helper()
	b := bigbang.New(bigbang.Config{Clock: testClock})
	b.RegisterProvider(providers.NewProcedural3D(testClock), 10)
	u, err := b.InitializeMultiverse(context.Background(), bigbang.UniverseSpec{Seed: 42, Realms: realms})
	if err != nil {
		t.Fatalf("bigbang: %v", err)
	}
	return u
}

func TestCycleEnrichesAndAdvances(t *testing.T) {
	u := buildUniverse(t, providers.RealmSpec{ID: "overworld", Type: universe.RealmMetvan3D})
	engine := New(Config{})

	result, err := engine.ExecuteTorusCycle(context.Background(), u,
		[]universe.StoryElement{universe.StoryDialogue, universe.StoryNPCHistory})
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if u.CurrentOrbit != 1 || result.Orbit != 1 {
		t.Fatalf("orbit should advance to 1, got %d", u.CurrentOrbit)
	}
	for _, npc := range u.Realm("overworld").NPCs() {
		types := npc.EnrichmentTypes()
		if len(types) != 2 || types[0] != universe.StoryDialogue || types[1] != universe.StoryNPCHistory {
			t.Fatalf("npc %s enrichment sequence wrong: %v", npc.ID, types)
		}
		if npc.Address.Lineage != 1 {
			t.Fatalf("npc %s lineage should be 1, got %d", npc.ID, npc.Address.Lineage)
		}
	}
	for _, d := range u.Realm("overworld").EntitiesByTypePrefix("district_") {
		if d.EnrichmentCount != 0 {
			t.Fatalf("district %s should not receive dialogue enrichments", d.ID)
		}
	}
}

func TestQuestTargetsFirstNPCDeterministically(t *testing.T) {
	u := buildUniverse(t, providers.RealmSpec{ID: "overworld", Type: universe.RealmMetvan3D})
	engine := New(Config{})

	if _, err := engine.ExecuteTorusCycle(context.Background(), u, []universe.StoryElement{universe.StoryQuest}); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	npcs := u.Realm("overworld").NPCs()
	if npcs[0].EnrichmentCount != 1 {
		t.Fatal("first npc should carry the quest")
	}
	for _, npc := range npcs[1:] {
		if npc.EnrichmentCount != 0 {
			t.Fatalf("only the first npc gets the quest, %s has %d", npc.ID, npc.EnrichmentCount)
		}
	}
}

func TestQuestSkipsRealmWithoutNPCs(t *testing.T) {
	u := universe.New(1, testClock)
	r := universe.NewRealm("empty_fields", universe.RealmCustom)
	addr, _ := stat7.New(0, 0, 0, 0, 50, 50, 50)
	e, _ := universe.NewEntity("district_0", "district_fields", addr, testClock)
	if err := r.AddEntity(e); err != nil {
		t.Fatal(err)
	}
	if err := u.AttachRealm(r); err != nil {
		t.Fatal(err)
	}

	engine := New(Config{})
	result, err := engine.ExecuteTorusCycle(context.Background(), u, []universe.StoryElement{universe.StoryQuest})
	if err != nil {
		t.Fatalf("quest handler must skip, not fail: %v", err)
	}
	if result.Applied != 0 {
		t.Fatalf("nothing should be applied, got %d", result.Applied)
	}
	if u.CurrentOrbit != 1 {
		t.Fatal("orbit still advances on an applied-nothing cycle")
	}
}

func TestContradictionHandlerScansMetadata(t *testing.T) {
	u := buildUniverse(t, providers.RealmSpec{
		ID: "overworld", Type: universe.RealmMetvan3D,
		Options: map[string]interface{}{"npcs": 6},
	})
	engine := New(Config{})

	result, err := engine.ExecuteTorusCycle(context.Background(), u, []universe.StoryElement{universe.StoryContradiction})
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("expected 2 contradiction enrichments (seeded npcs), got %d", result.Applied)
	}
	for _, npc := range u.Realm("overworld").NPCs() {
		if _, marked := npc.Metadata["contradictions"]; !marked {
			continue
		}
		last := npc.LastEnrichment()
		if last == nil || last.Type != universe.StoryContradiction {
			t.Fatalf("marked npc %s missing contradiction record", npc.ID)
		}
		if last.Data["resolution"] != "timeline_reconciliation" {
			t.Fatalf("contradiction record must carry timeline_reconciliation, got %v", last.Data)
		}
		if last.Data["resolution_orbit"] != 0 {
			t.Fatalf("resolution_orbit should be the pre-advance orbit, got %v", last.Data["resolution_orbit"])
		}
	}
}

func TestUnknownEnrichmentTypeFailsBeforeMutation(t *testing.T) {
	u := buildUniverse(t, providers.RealmSpec{ID: "overworld", Type: universe.RealmMetvan3D})
	engine := New(Config{})

	_, err := engine.ExecuteTorusCycle(context.Background(), u, []universe.StoryElement{universe.StoryElement("prophecy")})
	if !errors.IsCode(err, errors.CodeCycleFailed) {
		t.Fatalf("expected CycleFailed, got %v", err)
	}
	if u.CurrentOrbit != 0 {
		t.Fatal("failed cycle must leave the universe at the pre-cycle orbit")
	}
}

func TestConcurrentCyclesSerialize(t *testing.T) {
	u := buildUniverse(t, providers.RealmSpec{ID: "overworld", Type: universe.RealmMetvan3D})
	engine := New(Config{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	types := [][]universe.StoryElement{
		{universe.StoryDialogue},
		{universe.StoryNPCHistory},
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.ExecuteTorusCycle(context.Background(), u, types[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}
	if u.CurrentOrbit != 2 {
		t.Fatalf("two serialized cycles should land at orbit 2, got %d", u.CurrentOrbit)
	}
	for _, npc := range u.Realm("overworld").NPCs() {
		if npc.Address.Lineage != 2 {
			t.Fatalf("npc %s lineage should be 2, got %d", npc.ID, npc.Address.Lineage)
		}
		if npc.EnrichmentCount != 2 {
			t.Fatalf("npc %s should carry exactly one enrichment per cycle, got %d", npc.ID, npc.EnrichmentCount)
		}
	}
	if len(u.CycleHistory) != 2 {
		t.Fatalf("expected 2 cycle records, got %d", len(u.CycleHistory))
	}
}
