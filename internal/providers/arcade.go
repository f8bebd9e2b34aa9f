package providers

import (
	"context"
	"fmt"
	"math/rand"

	"multiverse/internal/ports"
	"multiverse/internal/stat7"
	"multiverse/internal/universe"
)

// Arcade2D generates a flat arcade_2d realm: a player avatar, enemies and
// powerups on a grid. Grid coordinates live in entity metadata; the STAT7
// adjacency slot keeps entities addressable alongside 3D realms.
type Arcade2D struct {
	clock ports.Clock
}

// NewArcade2D creates the arcade provider.
func NewArcade2D(clock ports.Clock) *Arcade2D {
	return &Arcade2D{clock: clock}
}

// Name implements Provider.
func (a *Arcade2D) Name() string {
	return "arcade_2d"
}

// CanGenerateRealm implements Provider.
func (a *Arcade2D) CanGenerateRealm(spec RealmSpec) bool {
	return spec.Type == universe.RealmArcade2D
}

// GenerateRealmContent implements Provider.
func (a *Arcade2D) GenerateRealmContent(ctx context.Context, spec RealmSpec) (*universe.Realm, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(realmSeed(spec)))
	width := intOption(spec, "grid_width", 16)
	height := intOption(spec, "grid_height", 12)
	enemies := intOption(spec, "enemies", 3)
	powerups := intOption(spec, "powerups", 2)

	realm := universe.NewRealm(spec.ID, universe.RealmArcade2D)
	slot := 0

	place := func(id, typ string) (*universe.Entity, error) {
		addr, err := stat7.New(spec.Index, 0, slot, 0, rng.Intn(101), rng.Intn(101), rng.Intn(101))
		if err != nil {
			return nil, err
		}
		slot++
		entity, err := universe.NewEntity(id, typ, addr, a.clock)
		if err != nil {
			return nil, err
		}
		entity.Metadata["grid_x"] = rng.Intn(width)
		entity.Metadata["grid_y"] = rng.Intn(height)
		if err := realm.AddEntity(entity); err != nil {
			return nil, err
		}
		return entity, nil
	}

	if _, err := place(fmt.Sprintf("player_%s", spec.ID), "player_avatar"); err != nil {
		return nil, err
	}
	for i := 0; i < enemies; i++ {
		if _, err := place(fmt.Sprintf("enemy_%s_%d", spec.ID, i), "enemy_drone"); err != nil {
			return nil, err
		}
	}
	for i := 0; i < powerups; i++ {
		if _, err := place(fmt.Sprintf("powerup_%s_%d", spec.ID, i), "powerup_orb"); err != nil {
			return nil, err
		}
	}

	if err := validateRealm(a.Name(), spec, realm); err != nil {
		return nil, err
	}
	return realm, nil
}
