package domain

import (
	"strconv"
	"strings"
)

// Fact keys form a fixed vocabulary shared with the extraction service.
const (
	FactPhoneVerified     = "phone_verified"
	FactLocationConfirmed = "location_confirmed"
	FactLatitude          = "latitude"
	FactLongitude         = "longitude"
	FactAddress           = "address"
	FactIsSafe            = "is_safe"
	FactIsWithVehicle     = "is_with_vehicle"
	FactIssueCategory     = "issue_category"
	FactServiceType       = "service_type"
	FactPriority          = "priority"
	FactUnclearCount      = "unclear_count"
	FactEscalationReason  = "escalation_reason"
	FactUserName          = "user_name"
	FactPhone             = "phone_or_email"
	FactVehicleModel      = "vehicle_model"
)

// ConfirmationFactKeys are the boolean facts protected against true->false
// regressions by the merger.
var ConfirmationFactKeys = []string{
	FactPhoneVerified,
	FactLocationConfirmed,
	FactIsSafe,
	FactIsWithVehicle,
}

// Facts is the accumulated structured knowledge about a session. Values are
// scalars as decoded from JSON (bool, float64, string) or nil.
type Facts map[string]any

// Clone returns a shallow copy; fact values are scalars so this is enough.
func (f Facts) Clone() Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present with a non-nil value.
func (f Facts) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// Bool coerces the value under key to a boolean. Returns nil when absent or
// not interpretable; extraction output sometimes carries booleans as strings.
func (f Facts) Bool(key string) *bool {
	v, ok := f[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y":
			b := true
			return &b
		case "false", "0", "no", "n":
			b := false
			return &b
		}
		return nil
	case float64:
		b := t != 0
		return &b
	case int:
		b := t != 0
		return &b
	default:
		return nil
	}
}

// String returns the value under key rendered as a trimmed string, or "".
func (f Facts) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// Float returns the numeric value under key.
func (f Facts) Float(key string) (float64, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Int returns the value under key as an int, or 0.
func (f Facts) Int(key string) int {
	val, ok := f.Float(key)
	if !ok {
		return 0
	}
	return int(val)
}
