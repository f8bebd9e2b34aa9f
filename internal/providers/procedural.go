package providers

import (
	"context"
	"fmt"
	"math/rand"

	"multiverse/internal/ports"
	"multiverse/internal/stat7"
	"multiverse/internal/universe"
)

// NPCAdjacencyBase offsets npc adjacency so districts (0..N-1) and NPCs
// (1000..1000+M-1) never collide.
const NPCAdjacencyBase = 1000

var districtNames = []string{"market", "docks", "temple", "garrison", "slums", "gardens", "archive", "foundry"}

var npcRoles = []string{"merchant", "guard", "bard", "scholar", "smith", "healer", "scout", "innkeeper"}

// Procedural3D generates a metvan_3d realm: a handful of districts plus a
// population of NPCs, all derived from the spec seed.
type Procedural3D struct {
	clock ports.Clock
}

// NewProcedural3D creates the procedural provider.
func NewProcedural3D(clock ports.Clock) *Procedural3D {
	return &Procedural3D{clock: clock}
}

// Name implements Provider.
func (p *Procedural3D) Name() string {
	return "procedural_3d"
}

// CanGenerateRealm implements Provider.
func (p *Procedural3D) CanGenerateRealm(spec RealmSpec) bool {
	return spec.Type == universe.RealmMetvan3D
}

// GenerateRealmContent implements Provider.
func (p *Procedural3D) GenerateRealmContent(ctx context.Context, spec RealmSpec) (*universe.Realm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(realmSeed(spec)))
	districts := intOption(spec, "districts", 3)
	npcs := intOption(spec, "npcs", 4)

	realm := universe.NewRealm(spec.ID, universe.RealmMetvan3D)

	for i := 0; i < districts; i++ {
		name := districtNames[rng.Intn(len(districtNames))]
		addr, err := stat7.New(spec.Index, 0, i, rng.Intn(stat7.MaxHorizon+1), rng.Intn(101), rng.Intn(101), rng.Intn(101))
		if err != nil {
			return nil, err
		}
		entity, err := universe.NewEntity(fmt.Sprintf("district_%s_%d", spec.ID, i), "district_"+name, addr, p.clock)
		if err != nil {
			return nil, err
		}
		if err := realm.AddEntity(entity); err != nil {
			return nil, err
		}
	}

	for i := 0; i < npcs; i++ {
		role := npcRoles[rng.Intn(len(npcRoles))]
		addr, err := stat7.New(spec.Index, 0, NPCAdjacencyBase+i, rng.Intn(stat7.MaxHorizon+1), rng.Intn(101), rng.Intn(101), rng.Intn(101))
		if err != nil {
			return nil, err
		}
		entity, err := universe.NewEntity(fmt.Sprintf("npc_%s_%d", spec.ID, i), "npc_"+role, addr, p.clock)
		if err != nil {
			return nil, err
		}
		// Every third npc carries an unresolved timeline so the
		// contradiction handler has material to reconcile.
		if i%3 == 2 {
			entity.Metadata["contradictions"] = []interface{}{
				map[string]interface{}{"kind": "timeline_fork", "detail": fmt.Sprintf("conflicting origin tales for %s", role)},
			}
		}
		if err := realm.AddEntity(entity); err != nil {
			return nil, err
		}
	}

	if err := validateRealm(p.Name(), spec, realm); err != nil {
		return nil, err
	}
	return realm, nil
}
