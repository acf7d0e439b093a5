package schema

import (
	"strings"
	"unicode"
)

// ValidateOperatorID ensures an operator id matches [a-z0-9._-] with no normalization.
func ValidateOperatorID(id OperatorID) error {
	raw := string(id)
	if raw == "" {
		return ErrInvalidOperator
	}
	if strings.TrimSpace(raw) != raw {
		return ErrInvalidOperator
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidOperator
	}
	return nil
}

// NormalizeVariant validates and normalizes a console variant name.
// "operator" and "touch" are accepted as aliases.
func NormalizeVariant(value string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "panel", "operator":
		return VariantPanel, nil
	case "dashboard", "touch", "touch-dashboard":
		return VariantDashboard, nil
	default:
		return "", ErrInvalidVariant
	}
}

// NormalizeTemplateID trims a template identifier and rejects control characters.
// The empty id is valid and means "no template selected".
func NormalizeTemplateID(value string) (TemplateID, bool) {
	trimmed := strings.TrimSpace(value)
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return TemplateID(trimmed), true
}
