// Package geocode provides best-effort reverse geocoding of GPS
// coordinates into place names. Lookups run under a hard timeout and
// every failure is silent; callers fall back to a formatted
// coordinate string so the place field is never left unresolved when
// GPS exists.
package geocode

import (
	"context"
	"fmt"
	"math"
)

// Resolver turns a coordinate pair into a human-readable place name.
// The strategy is chosen once at startup from configuration.
type Resolver interface {
	// Resolve returns a place name for the coordinates. An empty
	// string with a nil error means the provider had no answer.
	Resolve(ctx context.Context, lat, lon float64) (string, error)
}

// Disabled is a Resolver that never answers. It is used when no
// geocoding provider is configured.
type Disabled struct{}

// Resolve always returns an empty name.
func (Disabled) Resolve(_ context.Context, _, _ float64) (string, error) {
	return "", nil
}

// FormatCoordinates renders a coordinate pair as degrees with
// hemisphere letters, e.g. "37.8000°S 144.9633°E". It is the
// fallback place name when resolution yields nothing.
func FormatCoordinates(lat, lon float64) string {
	latRef := "N"
	if lat < 0 {
		latRef = "S"
	}
	lonRef := "E"
	if lon < 0 {
		lonRef = "W"
	}
	return fmt.Sprintf("%.4f°%s %.4f°%s", math.Abs(lat), latRef, math.Abs(lon), lonRef)
}
