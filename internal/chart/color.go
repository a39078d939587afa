package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// fallbackPalette colors series whose CSS color cannot be parsed
var fallbackPalette = []lipgloss.Color{
	"#7aa2f7", "#9ece6a", "#e0af68", "#bb9af7", "#7dcfff", "#f7768e",
}

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"gray":   "#808080",
	"grey":   "#808080",
}

// termColor converts a CSS color (#rgb, #rrggbb, rgb(), rgba() or a basic
// name) into a terminal color. Alpha is blended against a white background.
func termColor(css string, fallback int) lipgloss.Color {
	if hex, ok := cssToHex(css); ok {
		return lipgloss.Color(hex)
	}
	return fallbackPalette[fallback%len(fallbackPalette)]
}

func cssToHex(css string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(css))
	if s == "" {
		return "", false
	}
	if named, ok := namedColors[s]; ok {
		return named, true
	}

	if strings.HasPrefix(s, "#") {
		h := s[1:]
		switch len(h) {
		case 3:
			h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
		case 6:
		default:
			return "", false
		}
		if _, err := strconv.ParseUint(h, 16, 32); err != nil {
			return "", false
		}
		return "#" + h, true
	}

	var args string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		args = s[len("rgba(") : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		args = s[len("rgb(") : len(s)-1]
	default:
		return "", false
	}

	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return "", false
	}

	var rgb [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || v < 0 || v > 255 {
			return "", false
		}
		rgb[i] = v
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return "", false
		}
		alpha = a
	}

	blend := func(v float64) int {
		return int(v*alpha + 255*(1-alpha) + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", blend(rgb[0]), blend(rgb[1]), blend(rgb[2])), true
}
