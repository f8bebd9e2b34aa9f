package tier

import (
	"fmt"

	"multiverse/internal/errors"
	"multiverse/internal/universe"
)

// Registry maps realm ids to tier assignments with reverse indices for
// constant-time lookup by tier, theme, and anchor.
type Registry struct {
	assignments map[string]*Assignment
	byTier      map[Tier][]string
	byTheme     map[Theme][]string
	byAnchor    map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		assignments: map[string]*Assignment{},
		byTier:      map[Tier][]string{},
		byTheme:     map[Theme][]string{},
		byAnchor:    map[string][]string{},
	}
}

// Assign records a realm's tier perspective. Re-assigning a realm replaces
// its entry and reindexes.
func (r *Registry) Assign(a Assignment) error {
	if !a.Tier.Valid() {
		return errors.New(errors.CodeInvalidConfig, "unknown tier %q", a.Tier)
	}
	if !a.Theme.Valid() {
		return errors.New(errors.CodeInvalidConfig, "unknown theme %q", a.Theme)
	}
	if TierOf(a.Theme) != a.Tier {
		return errors.New(errors.CodeInvalidConfig, "theme %s does not belong to tier %s", a.Theme, a.Tier)
	}
	if _, exists := r.assignments[a.RealmID]; exists {
		r.removeFromIndices(a.RealmID)
	}
	stored := a
	r.assignments[a.RealmID] = &stored
	r.byTier[a.Tier] = append(r.byTier[a.Tier], a.RealmID)
	r.byTheme[a.Theme] = append(r.byTheme[a.Theme], a.RealmID)
	for _, anchor := range a.Anchors {
		r.byAnchor[anchor] = append(r.byAnchor[anchor], a.RealmID)
	}
	return nil
}

// Get returns the assignment for a realm, or nil.
func (r *Registry) Get(realmID string) *Assignment {
	return r.assignments[realmID]
}

// RealmsByTier returns realm ids assigned to the tier, in assignment order.
func (r *Registry) RealmsByTier(t Tier) []string {
	return append([]string(nil), r.byTier[t]...)
}

// RealmsByTheme returns realm ids assigned to the theme.
func (r *Registry) RealmsByTheme(th Theme) []string {
	return append([]string(nil), r.byTheme[th]...)
}

// RealmsByAnchor returns realm ids carrying the anchor.
func (r *Registry) RealmsByAnchor(anchor string) []string {
	return append([]string(nil), r.byAnchor[anchor]...)
}

// Assignments returns a realm_id -> assignment view for snapshot export.
func (r *Registry) Assignments() map[string]Assignment {
	out := make(map[string]Assignment, len(r.assignments))
	for id, a := range r.assignments {
		out[id] = *a
	}
	return out
}

func (r *Registry) removeFromIndices(realmID string) {
	old := r.assignments[realmID]
	r.byTier[old.Tier] = removeString(r.byTier[old.Tier], realmID)
	r.byTheme[old.Theme] = removeString(r.byTheme[old.Theme], realmID)
	for _, anchor := range old.Anchors {
		r.byAnchor[anchor] = removeString(r.byAnchor[anchor], realmID)
	}
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Zoom creates a sub-realm under parent, anchored on one of its entities.
// The child inherits tier and theme, merges extra anchors, and sits one
// depth below the parent. The child realm is attached to the universe and
// assigned in the registry.
func (r *Registry) Zoom(u *universe.Universe, parentRealmID, entityID string, extraAnchors []string) (*universe.Realm, error) {
	parent := r.assignments[parentRealmID]
	if parent == nil {
		return nil, errors.New(errors.CodeUnknownRealm, "realm %q has no tier assignment", parentRealmID)
	}
	parentRealm := u.Realm(parentRealmID)
	if parentRealm == nil {
		return nil, errors.New(errors.CodeUnknownRealm, "realm %q not in universe", parentRealmID)
	}
	anchor := parentRealm.EntityByID(entityID)
	if anchor == nil {
		return nil, errors.New(errors.CodeUnknownRealm, "entity %q not in realm %q", entityID, parentRealmID)
	}

	depth := parent.TierDepth + 1
	childID := fmt.Sprintf("sub_%s_%s_%d", parentRealmID, entityID, depth)
	child := universe.NewRealm(childID, universe.RealmSub)

	// The anchor entity is mirrored into the child realm at lineage 0.
	// The adjacency offset keeps the mirror's address distinct from the
	// original's across the whole universe.
	addr := anchor.Address
	addr.Lineage = 0
	addr.Adjacency += depth * 10000
	mirrored, err := universe.NewEntity(fmt.Sprintf("anchor_%s", entityID), anchor.Type, addr, nil)
	if err != nil {
		return nil, err
	}
	mirrored.Metadata["zoomed_from"] = entityID
	if err := child.AddEntity(mirrored); err != nil {
		return nil, err
	}
	if err := u.AttachRealm(child); err != nil {
		return nil, err
	}

	anchors := append(append([]string(nil), parent.Anchors...), extraAnchors...)
	assignment := Assignment{
		RealmID:       childID,
		Tier:          parent.Tier,
		Theme:         parent.Theme,
		Anchors:       anchors,
		TierDepth:     depth,
		ParentRealmID: parentRealmID,
	}
	if err := r.Assign(assignment); err != nil {
		return nil, err
	}
	return child, nil
}
