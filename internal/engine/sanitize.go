package engine

import (
	"strings"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// IsPlaceholderText reports whether a free-text value is an API-explorer
// placeholder ("string" is what Swagger UI submits by default).
func IsPlaceholderText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "n/a", "na", "none":
		return true
	}
	return false
}

// IsPlaceholderLocation reports whether a structured location payload is the
// zero-value placeholder (0,0 coordinates with no usable address).
func IsPlaceholderLocation(lat, lng *float64, address string) bool {
	if IsPlaceholderText(address) {
		address = ""
	}
	if lat != nil && lng != nil && *lat == 0 && *lng == 0 && strings.TrimSpace(address) == "" {
		return true
	}
	return false
}

// ScrubPlaceholders removes placeholder artifacts from stored facts so they
// cannot spuriously satisfy the location or identity invariants.
func ScrubPlaceholders(facts domain.Facts) {
	if facts == nil {
		return
	}
	if facts.Has(domain.FactAddress) && IsPlaceholderText(facts.String(domain.FactAddress)) {
		delete(facts, domain.FactAddress)
	}
	lat, okLat := facts.Float(domain.FactLatitude)
	lng, okLng := facts.Float(domain.FactLongitude)
	if okLat && okLng && lat == 0 && lng == 0 && facts.String(domain.FactAddress) == "" {
		delete(facts, domain.FactLatitude)
		delete(facts, domain.FactLongitude)
		delete(facts, domain.FactLocationConfirmed)
	}
}
