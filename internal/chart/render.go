package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/diogo/insightchat/internal/models"
)

const (
	defaultWidth   = 60
	defaultHeight  = 10
	maxLabelWidth  = 18
	minPlotWidth   = 10
	barGlyph       = "█"
	negativeGlyph  = "▓"
	pointGlyph     = "●"
	pieSwatch      = "■"
	doughnutSwatch = "◉"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	axisStyle        = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#a9b1d6"})
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#6b7280"}).Italic(true)
)

// Renderer draws chart payloads as styled terminal text. The zero value is
// ready to use.
type Renderer struct {
	// Width is the total width in cells
	Width int
	// Height is the plot height in rows for line charts
	Height int
	// Defaults are the base options; nil means DefaultOptions("", "")
	Defaults Options
}

// Render draws p with overrides merged over the renderer's defaults. Payloads
// without labels or datasets render the placeholder.
func (r Renderer) Render(p *models.ChartPayload, overrides Options) string {
	norm := Normalize(p)
	if norm == nil {
		return placeholderStyle.Render(Placeholder)
	}

	defaults := r.Defaults
	if defaults == nil {
		defaults = DefaultOptions("", "")
	}
	opts := MergeOptions(defaults, overrides)

	width := r.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := r.Height
	if height <= 0 {
		height = defaultHeight
	}

	kind := Kind(norm)
	var body string
	var legend string
	switch kind {
	case models.ChartLine:
		body = drawLine(norm, width, height, opts.boolean("scales.y.beginAtZero", false))
		legend = seriesLegend(norm, true)
	case models.ChartPie, models.ChartDoughnut:
		body = drawPie(norm, width, kind == models.ChartDoughnut)
	default:
		body = drawBars(norm, width)
		legend = seriesLegend(norm, false)
	}

	if !opts.boolean("plugins.legend.display", true) {
		legend = ""
	}

	var sections []string
	if opts.boolean("plugins.title.display", true) {
		if title := opts.str("plugins.title.text", ""); title != "" {
			sections = append(sections, titleStyle.Render(title))
		}
	}

	switch opts.str("plugins.legend.position", DefaultLegendPosition) {
	case "bottom":
		sections = append(sections, body)
		if legend != "" {
			sections = append(sections, legend)
		}
	case "left":
		sections = append(sections, joinSide(legend, body))
	case "right":
		sections = append(sections, joinSide(body, legend))
	default:
		if legend != "" {
			sections = append(sections, legend)
		}
		sections = append(sections, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func joinSide(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, a, "  ", b)
}

// seriesColor picks the color used for series i at category cat
func seriesColor(ds models.Dataset, series, cat int, preferBorder bool) lipgloss.Color {
	if preferBorder && ds.BorderColor != nil {
		if c := ds.BorderColor.At(cat); c != "" {
			return termColor(c, series)
		}
	}
	return termColor(ds.BackgroundColor.At(cat), series)
}

func seriesName(ds models.Dataset, i int) string {
	if ds.Label != "" {
		return ds.Label
	}
	return fmt.Sprintf("Dataset %d", i+1)
}

func seriesLegend(p *models.ChartPayload, preferBorder bool) string {
	if len(p.Datasets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.Datasets))
	for i, ds := range p.Datasets {
		swatch := lipgloss.NewStyle().Foreground(seriesColor(ds, i, 0, preferBorder)).Render(pieSwatch)
		parts = append(parts, swatch+" "+seriesName(ds, i))
	}
	return strings.Join(parts, "   ")
}

func labelColumnWidth(labels []string) int {
	w := 0
	for _, l := range labels {
		if lw := runewidth.StringWidth(l); lw > w {
			w = lw
		}
	}
	if w > maxLabelWidth {
		w = maxLabelWidth
	}
	return w
}

func fitLabel(label string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(label, width, "…"), width)
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func valueAt(ds models.Dataset, i int) (float64, bool) {
	if i >= len(ds.Data) {
		return 0, false
	}
	v := ds.Data[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func drawBars(p *models.ChartPayload, width int) string {
	labelW := labelColumnWidth(p.Labels)

	maxAbs := 0.0
	valueW := 1
	for _, ds := range p.Datasets {
		for i := range p.Labels {
			if v, ok := valueAt(ds, i); ok {
				maxAbs = math.Max(maxAbs, math.Abs(v))
				valueW = max(valueW, len(formatValue(v)))
			}
		}
	}

	plotW := max(width-labelW-valueW-4, minPlotWidth)
	sep := axisStyle.Render("│")

	var b strings.Builder
	for i, label := range p.Labels {
		for s, ds := range p.Datasets {
			name := strings.Repeat(" ", labelW)
			if s == 0 {
				name = fitLabel(label, labelW)
			}

			v, ok := valueAt(ds, i)
			bar := ""
			if ok && maxAbs > 0 {
				n := int(math.Round(math.Abs(v) / maxAbs * float64(plotW)))
				glyph := barGlyph
				if v < 0 {
					glyph = negativeGlyph
				}
				bar = lipgloss.NewStyle().Foreground(seriesColor(ds, s, i, false)).Render(strings.Repeat(glyph, n))
			}

			value := "-"
			if ok {
				value = formatValue(v)
			}

			b.WriteString(axisStyle.Render(name))
			b.WriteString(" ")
			b.WriteString(sep)
			b.WriteString(bar)
			b.WriteString(" ")
			b.WriteString(value)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func drawLine(p *models.ChartPayload, width, height int, beginAtZero bool) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, ds := range p.Datasets {
		for i := range p.Labels {
			if v, ok := valueAt(ds, i); ok {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return placeholderStyle.Render(Placeholder)
	}
	if beginAtZero && lo > 0 {
		lo = 0
	}
	if hi == lo {
		hi = lo + 1
	}

	hiLabel, loLabel := formatValue(hi), formatValue(lo)
	axisW := max(len(hiLabel), len(loLabel))

	n := max(len(p.Labels), 1)
	colW := max((width-axisW-2)/n, 1)

	grid := make([][]string, height)
	for row := range grid {
		grid[row] = make([]string, n*colW)
		for col := range grid[row] {
			grid[row][col] = " "
		}
	}

	for s, ds := range p.Datasets {
		style := lipgloss.NewStyle().Foreground(seriesColor(ds, s, 0, true))
		for i := range p.Labels {
			v, ok := valueAt(ds, i)
			if !ok {
				continue
			}
			row := height - 1 - int(math.Round((v-lo)/(hi-lo)*float64(height-1)))
			grid[row][i*colW+colW/2] = style.Render(pointGlyph)
		}
	}

	var b strings.Builder
	for row := 0; row < height; row++ {
		tick := strings.Repeat(" ", axisW)
		switch row {
		case 0:
			tick = fmt.Sprintf("%*s", axisW, hiLabel)
		case height - 1:
			tick = fmt.Sprintf("%*s", axisW, loLabel)
		}
		b.WriteString(axisStyle.Render(tick + " │"))
		b.WriteString(strings.Join(grid[row], ""))
		b.WriteString("\n")
	}
	b.WriteString(axisStyle.Render(strings.Repeat(" ", axisW) + " └" + strings.Repeat("─", n*colW)))
	b.WriteString("\n")

	var labels strings.Builder
	for _, l := range p.Labels {
		if colW > 1 {
			labels.WriteString(fitLabel(l, colW-1))
			labels.WriteString(" ")
		} else {
			labels.WriteString(runewidth.Truncate(l, 1, ""))
		}
	}
	b.WriteString(axisStyle.Render(strings.Repeat(" ", axisW+2) + labels.String()))
	return b.String()
}

func drawPie(p *models.ChartPayload, width int, doughnut bool) string {
	if len(p.Datasets) == 0 {
		return placeholderStyle.Render(Placeholder)
	}
	ds := p.Datasets[0]

	total := 0.0
	for i := range p.Labels {
		if v, ok := valueAt(ds, i); ok && v > 0 {
			total += v
		}
	}

	swatch := pieSwatch
	if doughnut {
		swatch = doughnutSwatch
	}

	labelW := labelColumnWidth(p.Labels)
	plotW := max(width-labelW-12, minPlotWidth)

	var b strings.Builder
	for i, label := range p.Labels {
		v, ok := valueAt(ds, i)
		share := 0.0
		if ok && v > 0 && total > 0 {
			share = v / total
		}

		style := lipgloss.NewStyle().Foreground(termColor(ds.BackgroundColor.At(i), i))
		b.WriteString(style.Render(swatch))
		b.WriteString(" ")
		b.WriteString(fitLabel(label, labelW))
		b.WriteString(fmt.Sprintf(" %5.1f%% ", share*100))
		b.WriteString(style.Render(strings.Repeat(barGlyph, int(math.Round(share*float64(plotW))))))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
