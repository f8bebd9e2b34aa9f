package universe

import (
	"strings"

	"multiverse/internal/errors"
)

// RealmType discriminates the content family a realm was generated from.
type RealmType string

const (
	RealmMetvan3D RealmType = "metvan_3d"
	RealmCustom   RealmType = "custom"
	RealmArcade2D RealmType = "arcade_2d"
	RealmSub      RealmType = "sub_realm"
)

// Realm holds an ordered set of entities sharing a realm id.
type Realm struct {
	ID       string    `json:"id"`
	Type     RealmType `json:"type"`
	Entities []*Entity `json:"entities"`
	Orbit    int       `json:"orbit"`
	Lineage  int       `json:"lineage"`

	byID map[string]*Entity
}

// NewRealm creates an empty realm.
func NewRealm(id string, realmType RealmType) *Realm {
	return &Realm{
		ID:   id,
		Type: realmType,
		byID: map[string]*Entity{},
	}
}

// AddEntity appends an entity, keeping insertion order. Duplicate ids and
// duplicate addresses within the realm are rejected.
func (r *Realm) AddEntity(e *Entity) error {
	if r.byID == nil {
		r.byID = map[string]*Entity{}
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New(errors.CodeInvalidAddress, "duplicate entity id %q in realm %q", e.ID, r.ID)
	}
	for _, existing := range r.Entities {
		if existing.Address == e.Address {
			return errors.New(errors.CodeInvalidAddress,
				"address collision in realm %q: %s shared by %q and %q",
				r.ID, e.Address.Signature(), existing.ID, e.ID)
		}
	}
	r.Entities = append(r.Entities, e)
	r.byID[e.ID] = e
	return nil
}

// EntityByID looks up an entity, or nil.
func (r *Realm) EntityByID(id string) *Entity {
	if r.byID == nil {
		r.reindex()
	}
	return r.byID[id]
}

// EntitiesByTypePrefix returns the ordered sub-sequence of entities whose
// type begins with prefix.
func (r *Realm) EntitiesByTypePrefix(prefix string) []*Entity {
	var out []*Entity
	for _, e := range r.Entities {
		if strings.HasPrefix(e.Type, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// NPCs returns the npc-typed entities in insertion order.
func (r *Realm) NPCs() []*Entity {
	return r.EntitiesByTypePrefix("npc_")
}

func (r *Realm) reindex() {
	r.byID = make(map[string]*Entity, len(r.Entities))
	for _, e := range r.Entities {
		r.byID[e.ID] = e
	}
}
