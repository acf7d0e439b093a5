package schema

import "strings"

// DefaultTheme is the default UI theme name.
const DefaultTheme ThemeName = ThemeDark

const (
	// ThemeDark is the dark palette.
	ThemeDark ThemeName = "dark"
	// ThemeLight is the light palette.
	ThemeLight ThemeName = "light"
)

var themeNames = []ThemeName{
	ThemeDark,
	ThemeLight,
}

// AvailableThemes returns the supported theme names.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, len(themeNames))
	copy(out, themeNames)
	return out
}

// NormalizeThemeName returns a canonical theme name if supported.
func NormalizeThemeName(name string) (ThemeName, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return ThemeDark, true
	case "light":
		return ThemeLight, true
	default:
		return "", false
	}
}

// ThemeClass returns the document class that applies theme.
func ThemeClass(theme ThemeName) string {
	return "theme-" + string(theme)
}

// ThemeClasses returns every theme class, used to clear a previous theme.
func ThemeClasses() []string {
	out := make([]string, 0, len(themeNames))
	for _, name := range themeNames {
		out = append(out, ThemeClass(name))
	}
	return out
}
