package tier

import "hash/fnv"

// Personality is the curated trait/seed pair generated for an entity under
// a tier perspective.
type Personality struct {
	Trait        string `json:"trait"`
	DialogueSeed string `json:"dialogue_seed"`
}

type pool struct {
	traits []string
	seeds  []string
}

// pools holds the curated trait and dialogue-seed pools per (tier, theme).
// Missing combinations fall back to the tier-wide default pool.
var pools = map[Tier]map[Theme]pool{
	Celestial: {
		ThemeHeaven:  {traits: []string{"serene", "radiant", "oracular"}, seeds: []string{"speaks of choirs beyond the veil", "recalls the first dawn"}},
		ThemeAether:  {traits: []string{"drifting", "prismatic", "unmoored"}, seeds: []string{"hums with stormglass winds", "charts the floating reefs"}},
		ThemeOlympus: {traits: []string{"imperious", "gilded", "thunderous"}, seeds: []string{"quotes edicts of the summit court", "boasts of duels with titans"}},
	},
	Terran: {
		ThemeCityState: {traits: []string{"shrewd", "guarded", "industrious"}, seeds: []string{"trades gossip from the guild halls", "knows every toll gate by name"}},
		ThemeFrontier:  {traits: []string{"weathered", "restless", "plainspoken"}, seeds: []string{"maps trails no cartographer kept", "mistrusts anything with a seal"}},
		ThemeWildlands: {traits: []string{"feral", "patient", "root-wise"}, seeds: []string{"reads weather in birdflight", "speaks for the old groves"}},
	},
	Subterran: {
		ThemeHell:      {traits: []string{"smoldering", "contract-bound", "sardonic"}, seeds: []string{"recites clauses of ancient bargains", "laughs at mortal bravado"}},
		ThemeAbyss:     {traits: []string{"hollow", "echoing", "unblinking"}, seeds: []string{"remembers the dark before names", "counts depths no rope has reached"}},
		ThemeUnderdark: {traits: []string{"pale", "whispering", "fungal"}, seeds: []string{"barters in luminescent spores", "navigates by dripwater song"}},
	},
}

var tierDefaults = map[Tier]pool{
	Celestial: {traits: []string{"luminous"}, seeds: []string{"gazes past the horizon"}},
	Terran:    {traits: []string{"grounded"}, seeds: []string{"talks of harvests and roads"}},
	Subterran: {traits: []string{"shadowed"}, seeds: []string{"keeps to the torchless paths"}},
}

// GeneratePersonality deterministically selects trait and dialogue seed for
// an entity id under the given perspective. The same id always yields the
// same personality.
func GeneratePersonality(t Tier, th Theme, entityID string) Personality {
	p, ok := pools[t][th]
	if !ok {
		p = tierDefaults[t]
	}
	h := fnv.New32a()
	h.Write([]byte(entityID))
	n := h.Sum32()
	return Personality{
		Trait:        p.traits[int(n)%len(p.traits)],
		DialogueSeed: p.seeds[int(n/7)%len(p.seeds)],
	}
}
