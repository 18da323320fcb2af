// Package domain contains core domain types for the Questline application.
package domain

import "fmt"

// Helper identifies one of the six fixed coaching roles.
type Helper string

const (
	HelperMuse      Helper = "muse"      // ideation and problem framing
	HelperArchitect Helper = "architect" // technical foundation
	HelperForge     Helper = "forge"     // building the product
	HelperHerald    Helper = "herald"    // marketing and launch
	HelperSteward   Helper = "steward"   // operations and finances
	HelperSage      Helper = "sage"      // growth and strategy
)

// AllHelpers lists every helper in journey order.
var AllHelpers = []Helper{
	HelperMuse,
	HelperArchitect,
	HelperForge,
	HelperHerald,
	HelperSteward,
	HelperSage,
}

// ParseHelper validates a helper identifier from the wire.
func ParseHelper(s string) (Helper, error) {
	h := Helper(s)
	switch h {
	case HelperMuse, HelperArchitect, HelperForge, HelperHerald, HelperSteward, HelperSage:
		return h, nil
	}
	return "", fmt.Errorf("unknown helper %q", s)
}

// DisplayName returns the capitalized role name used in prompts.
func (h Helper) DisplayName() string {
	switch h {
	case HelperMuse:
		return "Muse"
	case HelperArchitect:
		return "Architect"
	case HelperForge:
		return "Forge"
	case HelperHerald:
		return "Herald"
	case HelperSteward:
		return "Steward"
	case HelperSage:
		return "Sage"
	}
	return string(h)
}
