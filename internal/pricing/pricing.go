// Package pricing resolves instrument symbols to pip and cost profiles.
package pricing

import (
	"strings"

	"trade-journal/internal/models"
)

// Default profile values used when neither the symbol nor "Other" is configured.
const (
	DefaultPipSize  = 0.0001
	DefaultPipValue = 10.0
)

// DefaultProfile is the built-in fallback for unknown instruments.
var DefaultProfile = models.PricingProfile{
	PipSize:  DefaultPipSize,
	PipValue: DefaultPipValue,
}

// Resolver maps symbols to pricing profiles. It is immutable once built and
// safe for concurrent use.
type Resolver struct {
	profiles map[string]models.PricingProfile
	fallback models.PricingProfile
}

// NewResolver creates a resolver from a symbol → profile map. Keys are matched
// case-insensitively and ignore separators ("EUR/USD" == "eurusd").
func NewResolver(profiles map[string]models.PricingProfile) *Resolver {
	r := &Resolver{
		profiles: make(map[string]models.PricingProfile, len(profiles)),
		fallback: DefaultProfile,
	}
	for symbol, p := range profiles {
		r.profiles[normalize(symbol)] = sanitize(p)
	}
	if other, ok := r.profiles[normalize(models.OtherInstrument)]; ok {
		r.fallback = other
	}
	return r
}

// Resolve returns the profile for symbol, falling back to "Other" and then to
// DefaultProfile. It never fails.
func (r *Resolver) Resolve(symbol string) models.PricingProfile {
	if r == nil {
		return DefaultProfile
	}
	if p, ok := r.profiles[normalize(symbol)]; ok {
		return p
	}
	return r.fallback
}

// Known reports whether symbol has its own profile.
func (r *Resolver) Known(symbol string) bool {
	if r == nil {
		return false
	}
	_, ok := r.profiles[normalize(symbol)]
	return ok
}

func normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)
	return s
}

// sanitize replaces unusable pip settings with the defaults so downstream
// divisions stay finite.
func sanitize(p models.PricingProfile) models.PricingProfile {
	if p.PipSize <= 0 {
		p.PipSize = DefaultPipSize
	}
	if p.PipValue < 0 {
		p.PipValue = 0
	}
	if p.Spread < 0 {
		p.Spread = 0
	}
	if p.CommissionPerLot < 0 {
		p.CommissionPerLot = 0
	}
	return p
}
