package cli

import "strings"

// MaskedValue is what secret settings render as.
const MaskedValue = "••••••••"

// secretKeys are the settings keys whose values never appear in output.
var secretKeys = map[string]bool{
	"ACTION_TOKEN": true,
	"SECRET_KEY":   true,
	"PASSWORD":     true,
	"TOKEN":        true,
	"API_KEY":      true,
	"AUTH_TOKEN":   true,
}

// MaskEnabled interprets the MASK_SECRETS setting. Masking is on unless the
// setting is present and explicitly falsy.
func MaskEnabled(value string, present bool) bool {
	if !present {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MaskValue hides the value when masking is enabled and the key names a
// secret.
func MaskValue(key, value string, maskEnabled bool) string {
	if maskEnabled && secretKeys[strings.ToUpper(key)] {
		return MaskedValue
	}
	return value
}
