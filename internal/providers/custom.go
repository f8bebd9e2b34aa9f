package providers

import (
	"context"
	"fmt"
	"math/rand"

	"multiverse/internal/ports"
	"multiverse/internal/stat7"
	"multiverse/internal/universe"
)

// Blueprint describes a hand-registered realm: named NPCs placed at fixed
// adjacency slots.
type Blueprint struct {
	NPCRoles  []string
	Districts []string
}

// Custom serves realms registered ahead of time by id. It covers curated
// locations (a tavern, a throne room) where procedural content would be
// wrong.
type Custom struct {
	clock      ports.Clock
	blueprints map[string]Blueprint
}

// NewCustom creates the custom provider with its registered blueprints.
func NewCustom(clock ports.Clock, blueprints map[string]Blueprint) *Custom {
	if blueprints == nil {
		blueprints = map[string]Blueprint{}
	}
	return &Custom{clock: clock, blueprints: blueprints}
}

// Register adds or replaces a blueprint.
func (c *Custom) Register(realmID string, bp Blueprint) {
	c.blueprints[realmID] = bp
}

// Name implements Provider.
func (c *Custom) Name() string {
	return "custom"
}

// CanGenerateRealm implements Provider.
func (c *Custom) CanGenerateRealm(spec RealmSpec) bool {
	if spec.Type != universe.RealmCustom {
		return false
	}
	_, ok := c.blueprints[spec.ID]
	return ok
}

// GenerateRealmContent implements Provider.
func (c *Custom) GenerateRealmContent(ctx context.Context, spec RealmSpec) (*universe.Realm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bp := c.blueprints[spec.ID]
	rng := rand.New(rand.NewSource(realmSeed(spec)))
	realm := universe.NewRealm(spec.ID, universe.RealmCustom)

	for i, name := range bp.Districts {
		addr, err := stat7.New(spec.Index, 0, i, rng.Intn(stat7.MaxHorizon+1), rng.Intn(101), rng.Intn(101), rng.Intn(101))
		if err != nil {
			return nil, err
		}
		entity, err := universe.NewEntity(fmt.Sprintf("district_%s_%d", spec.ID, i), "district_"+name, addr, c.clock)
		if err != nil {
			return nil, err
		}
		if err := realm.AddEntity(entity); err != nil {
			return nil, err
		}
	}

	for i, role := range bp.NPCRoles {
		addr, err := stat7.New(spec.Index, 0, NPCAdjacencyBase+i, rng.Intn(stat7.MaxHorizon+1), rng.Intn(101), rng.Intn(101), rng.Intn(101))
		if err != nil {
			return nil, err
		}
		entity, err := universe.NewEntity(fmt.Sprintf("npc_%s_%d", spec.ID, i), "npc_"+role, addr, c.clock)
		if err != nil {
			return nil, err
		}
		if err := realm.AddEntity(entity); err != nil {
			return nil, err
		}
	}

	if err := validateRealm(c.Name(), spec, realm); err != nil {
		return nil, err
	}
	return realm, nil
}
