package estimator

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed queries, preferences or limits.
var ErrInvalidArgument = errors.New("invalid argument")

// Preference steers model selection when complexity alone does not decide it.
type Preference string

const (
	PreferCost     Preference = "cost"
	PreferQuality  Preference = "quality"
	PreferBalanced Preference = "balanced"
	PreferSpeed    Preference = "speed"
)

// Valid reports whether p is one of the recognized preferences.
func (p Preference) Valid() bool {
	switch p {
	case PreferCost, PreferQuality, PreferBalanced, PreferSpeed:
		return true
	default:
		return false
	}
}

// ParsePreference maps s to a Preference. An empty string means balanced;
// anything unrecognized is rejected instead of falling through to balanced.
func ParsePreference(s string) (Preference, error) {
	if s == "" {
		return PreferBalanced, nil
	}
	p := Preference(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown preference %q (want cost, quality, balanced or speed)", ErrInvalidArgument, s)
	}
	return p, nil
}
