package chart

import "strings"

// Options is a Chart.js style option tree
type Options map[string]any

const fontFamily = "'Inter', 'Helvetica', 'Arial', sans-serif"

// Fallbacks used when the caller has no chart configuration
const (
	DefaultTitle          = "Data Visualization"
	DefaultLegendPosition = "top"
)

// DefaultOptions returns the fixed default styling. title and legendPosition
// fall back to DefaultTitle and DefaultLegendPosition when empty.
func DefaultOptions(title, legendPosition string) Options {
	if title == "" {
		title = DefaultTitle
	}
	if legendPosition == "" {
		legendPosition = DefaultLegendPosition
	}

	axis := func(beginAtZero bool) map[string]any {
		a := map[string]any{
			"grid": map[string]any{
				"color":     "rgba(0, 0, 0, 0.05)",
				"lineWidth": 1,
			},
			"ticks": map[string]any{
				"font":  map[string]any{"family": fontFamily},
				"color": "#555",
			},
		}
		if beginAtZero {
			a["beginAtZero"] = true
		}
		return a
	}

	return Options{
		"responsive":          true,
		"maintainAspectRatio": false,
		"plugins": map[string]any{
			"legend": map[string]any{
				"position": legendPosition,
				"labels": map[string]any{
					"font":     map[string]any{"family": fontFamily, "weight": 500},
					"color":    "#333",
					"boxWidth": 15,
					"padding":  15,
				},
			},
			"title": map[string]any{
				"display": true,
				"text":    title,
				"font":    map[string]any{"family": fontFamily, "size": 16, "weight": 600},
				"color":   "#000",
				"padding": 20,
			},
			"tooltip": map[string]any{
				"backgroundColor": "rgba(0, 0, 0, 0.8)",
				"titleFont":       map[string]any{"family": fontFamily, "size": 13},
				"bodyFont":        map[string]any{"family": fontFamily, "size": 12},
				"borderColor":     "rgba(255, 255, 255, 0.1)",
				"borderWidth":     1,
				"padding":         10,
				"displayColors":   true,
				"boxWidth":        8,
				"boxHeight":       8,
			},
		},
		"scales": map[string]any{
			"y": axis(true),
			"x": axis(false),
		},
	}
}

// MergeOptions overlays overrides on defaults one top-level key at a time.
// Nested trees are replaced, not merged. Neither input is modified.
func MergeOptions(defaults, overrides Options) Options {
	merged := make(Options, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// lookup walks a dotted path through nested maps
func (o Options) lookup(path string) (any, bool) {
	var cur any = map[string]any(o)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if om, isOpts := cur.(Options); isOpts {
				m = om
			} else {
				return nil, false
			}
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (o Options) str(path, fallback string) string {
	if v, ok := o.lookup(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func (o Options) boolean(path string, fallback bool) bool {
	if v, ok := o.lookup(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}
