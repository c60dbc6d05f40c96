package npc

import "time"

// PersonalityProfile defines the tunable parameters for a RuleBrain.
type PersonalityProfile struct {
	Aggression float64 `json:"aggression"` // 0.0–1.0: tendency to play attack wilds
	Greed      float64 `json:"greed"`      // 0.0–1.0: preference for high-point orders
	Hoarding   float64 `json:"hoarding"`   // 0.0–1.0: keeps drawing instead of cooking cheap dishes
	Randomness float64 `json:"randomness"` // 0.0–1.0: decision noise
}

// ChefPersona defines a named computer chef.
type ChefPersona struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Tagline   string             `json:"tagline"`
	AvatarKey string             `json:"avatarKey"`
	Brain     PersonalityProfile `json:"brain"`
	// ThinkMs is the base pause between decisions.
	ThinkMs int `json:"thinkMs"`
}

func (p *ChefPersona) ThinkDelay() time.Duration {
	if p.ThinkMs <= 0 {
		return 800 * time.Millisecond
	}
	return time.Duration(p.ThinkMs) * time.Millisecond
}

var builtinPersonas = []*ChefPersona{
	{
		ID:      "bu_rina",
		Name:    "Bu Rina",
		Tagline: "Warung owner. Never wastes an egg.",
		Brain:   PersonalityProfile{Aggression: 0.2, Greed: 0.3, Hoarding: 0.2, Randomness: 0.1},
		ThinkMs: 900,
	},
	{
		ID:      "chef_kenji",
		Name:    "Chef Kenji",
		Tagline: "Only cooks what is worth cooking.",
		Brain:   PersonalityProfile{Aggression: 0.4, Greed: 0.9, Hoarding: 0.6, Randomness: 0.1},
		ThinkMs: 1200,
	},
	{
		ID:      "rat_king",
		Name:    "The Rat King",
		Tagline: "Your kitchen is his kitchen.",
		Brain:   PersonalityProfile{Aggression: 0.9, Greed: 0.4, Hoarding: 0.1, Randomness: 0.3},
		ThinkMs: 600,
	},
}
