// Package chart turns chart payloads into terminal charts and Chart.js
// specifications.
package chart

import (
	"strings"

	"github.com/diogo/insightchat/internal/models"
)

// Placeholder is rendered instead of a chart when the payload is unusable
const Placeholder = "No valid chart data available"

// GrayShades replaces single-color fills, one shade per category
var GrayShades = []string{
	"rgba(45, 45, 45, 0.7)",
	"rgba(75, 75, 75, 0.7)",
	"rgba(105, 105, 105, 0.7)",
	"rgba(135, 135, 135, 0.7)",
	"rgba(165, 165, 165, 0.7)",
}

// OutlineColor and OutlineWidth are applied alongside the gray palette
const (
	OutlineColor = "rgba(0, 0, 0, 1)"
	OutlineWidth = 1.0
)

// Kind returns the chart kind for p: line, pie or doughnut when named
// (case-insensitively), bar otherwise.
func Kind(p *models.ChartPayload) string {
	if p == nil {
		return models.ChartBar
	}
	switch strings.ToLower(strings.TrimSpace(p.ChartType)) {
	case models.ChartLine:
		return models.ChartLine
	case models.ChartPie:
		return models.ChartPie
	case models.ChartDoughnut:
		return models.ChartDoughnut
	default:
		return models.ChartBar
	}
}

// Normalize returns a copy of p in which every dataset with a single fill
// color gets the gray palette, sized to the label count, and a black outline.
// Datasets with per-category fills are copied unchanged. Invalid payloads
// return nil.
func Normalize(p *models.ChartPayload) *models.ChartPayload {
	if !p.Valid() {
		return nil
	}

	out := p.Clone()
	n := len(out.Labels)
	if n > len(GrayShades) {
		n = len(GrayShades)
	}

	for i := range out.Datasets {
		ds := &out.Datasets[i]
		if ds.BackgroundColor == nil || !ds.BackgroundColor.Single {
			continue
		}
		ds.BackgroundColor = models.ColorList(GrayShades[:n]...)
		ds.BorderColor = models.SingleColor(OutlineColor)
		width := OutlineWidth
		ds.BorderWidth = &width
	}
	return out
}
