package render

import (
	"os"
	"strings"
)

// Markdown style names
const (
	StyleAuto       = "auto"
	StyleDark       = "dark"
	StyleLight      = "light"
	StyleDracula    = "dracula"
	StyleTokyoNight = "tokyo-night"
	StylePink       = "pink"
	StyleNoTTY      = "notty"
	StyleASCII      = "ascii"
)

// styleAliases maps the TUI theme spellings onto glamour style names
var styleAliases = map[string]string{
	"tokyonight": StyleTokyoNight,
	"plain":      StyleNoTTY,
}

// StyleInfo describes a markdown style for display purposes.
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the markdown styles answers can be rendered with.
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleAuto, Description: "Pick dark or light from the terminal background"},
		{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// StyleNames returns just the style names.
func StyleNames() []string {
	infos := AvailableStyles()
	names := make([]string, len(infos))
	for i, s := range infos {
		names[i] = s.Name
	}
	return names
}

// ResolveStyle normalizes a style name. Unknown names are treated as paths to
// JSON style files; when no such file exists the dark style is used.
func ResolveStyle(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	if s == "" {
		return StyleDark
	}
	if alias, ok := styleAliases[s]; ok {
		return alias
	}
	if IsBuiltinStyle(s) {
		return s
	}
	if _, err := os.Stat(style); err == nil {
		return style
	}
	return StyleDark
}

// IsBuiltinStyle reports whether style names a bundled style.
func IsBuiltinStyle(style string) bool {
	switch style {
	case StyleAuto, StyleDark, StyleLight, StyleDracula, StyleTokyoNight, StylePink, StyleNoTTY, StyleASCII:
		return true
	default:
		return false
	}
}
