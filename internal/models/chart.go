package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Chart kinds understood by the renderer
const (
	ChartBar      = "bar"
	ChartLine     = "line"
	ChartPie      = "pie"
	ChartDoughnut = "doughnut"
)

// ChartPayload describes a chart returned alongside an answer
type ChartPayload struct {
	ChartType string    `json:"chartType,omitempty"`
	Labels    []string  `json:"labels"`
	Datasets  []Dataset `json:"datasets"`
}

type payloadWire struct {
	ChartType string            `json:"chartType,omitempty"`
	Labels    []json.RawMessage `json:"labels"`
	Datasets  []Dataset         `json:"datasets"`
}

// UnmarshalJSON accepts labels of any scalar type. Numbers and booleans
// become their JSON text, so charts keyed by year still decode.
func (p *ChartPayload) UnmarshalJSON(data []byte) error {
	var wire payloadWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := ChartPayload{ChartType: wire.ChartType, Datasets: wire.Datasets}
	if wire.Labels != nil {
		out.Labels = make([]string, len(wire.Labels))
		for i, raw := range wire.Labels {
			out.Labels[i] = labelText(raw)
		}
	}
	*p = out
	return nil
}

// labelText renders one label value as display text
func labelText(raw json.RawMessage) string {
	r := gjson.ParseBytes(raw)
	switch {
	case r.Type == gjson.String:
		return r.Str
	case r.Type == gjson.Null:
		return ""
	case r.IsArray():
		// multi-line labels
		parts := make([]string, 0, len(r.Array()))
		for _, line := range r.Array() {
			parts = append(parts, line.String())
		}
		return strings.Join(parts, " ")
	}
	return r.Raw
}

// pointValue reads one data entry. Gaps, non-numeric text and anything else
// the renderer cannot plot become NaN.
func pointValue(raw json.RawMessage) float64 {
	r := gjson.ParseBytes(raw)
	switch {
	case r.Type == gjson.Number:
		return r.Float()
	case r.Type == gjson.String:
		if v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
			return v
		}
	case r.IsObject():
		// {x, y} points
		if y := r.Get("y"); y.Type == gjson.Number {
			return y.Float()
		}
	}
	return math.NaN()
}

// Valid reports whether the payload carries the fields needed to draw a chart.
// Empty (but present) labels or datasets are still valid.
func (p *ChartPayload) Valid() bool {
	return p != nil && p.Labels != nil && p.Datasets != nil
}

// Clone returns a deep copy so renderers never alias the controller's payload
func (p *ChartPayload) Clone() *ChartPayload {
	if p == nil {
		return nil
	}
	out := &ChartPayload{ChartType: p.ChartType}
	if p.Labels != nil {
		out.Labels = append([]string{}, p.Labels...)
	}
	if p.Datasets != nil {
		out.Datasets = make([]Dataset, len(p.Datasets))
		for i, ds := range p.Datasets {
			out.Datasets[i] = ds.Clone()
		}
	}
	return out
}

// Dataset is one data series of a chart. Keys the client does not model are
// kept in Extra and written back unchanged.
type Dataset struct {
	Label           string                     `json:"label,omitempty"`
	Data            []float64                  `json:"data"`
	BackgroundColor *ColorSpec                 `json:"backgroundColor,omitempty"`
	BorderColor     *ColorSpec                 `json:"borderColor,omitempty"`
	BorderWidth     *float64                   `json:"borderWidth,omitempty"`
	Extra           map[string]json.RawMessage `json:"-"`
}

var datasetKeys = []string{"label", "data", "backgroundColor", "borderColor", "borderWidth"}

type datasetAlias Dataset

// datasetWire shadows the fields Chart.js allows to hold mixed types
type datasetWire struct {
	datasetAlias
	Label json.RawMessage   `json:"label,omitempty"`
	Data  []json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes known keys and keeps the rest in Extra
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var wire datasetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	alias := wire.datasetAlias
	alias.Label = labelText(wire.Label)
	if wire.Data != nil {
		alias.Data = make([]float64, len(wire.Data))
		for i, raw := range wire.Data {
			alias.Data[i] = pointValue(raw)
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range datasetKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}

	*d = Dataset(alias)
	return nil
}

// MarshalJSON writes known keys followed by any preserved extras. Points
// that could not be read are written as null gaps.
func (d Dataset) MarshalJSON() ([]byte, error) {
	out := struct {
		datasetAlias
		Data []*float64 `json:"data"`
	}{datasetAlias: datasetAlias(d)}
	if d.Data != nil {
		out.Data = make([]*float64, len(d.Data))
		for i, v := range d.Data {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				out.Data[i] = &d.Data[i]
			}
		}
	}

	base, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Clone returns a deep copy of the dataset
func (d Dataset) Clone() Dataset {
	out := d
	if d.Data != nil {
		out.Data = append([]float64{}, d.Data...)
	}
	if d.BackgroundColor != nil {
		c := d.BackgroundColor.Clone()
		out.BackgroundColor = &c
	}
	if d.BorderColor != nil {
		c := d.BorderColor.Clone()
		out.BorderColor = &c
	}
	if d.BorderWidth != nil {
		w := *d.BorderWidth
		out.BorderWidth = &w
	}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// ColorSpec holds either a single color or one color per category
type ColorSpec struct {
	Values []string
	Single bool
}

// SingleColor builds a ColorSpec holding one color
func SingleColor(c string) *ColorSpec {
	return &ColorSpec{Values: []string{c}, Single: true}
}

// ColorList builds a ColorSpec holding one color per category
func ColorList(colors ...string) *ColorSpec {
	return &ColorSpec{Values: append([]string{}, colors...)}
}

// At returns the color for category i, cycling through the list
func (c *ColorSpec) At(i int) string {
	if c == nil || len(c.Values) == 0 {
		return ""
	}
	if c.Single {
		return c.Values[0]
	}
	return c.Values[i%len(c.Values)]
}

// Clone returns a copy that does not share the backing slice
func (c ColorSpec) Clone() ColorSpec {
	return ColorSpec{Values: append([]string{}, c.Values...), Single: c.Single}
}

// UnmarshalJSON accepts a string or an array of strings
func (c *ColorSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ColorSpec{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ColorSpec{Values: []string{s}, Single: true}
		return nil
	}

	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("color list: %w", err)
		}
		*c = ColorSpec{Values: list}
		return nil
	}

	return fmt.Errorf("color must be a string or an array of strings, got %s", string(data))
}

// MarshalJSON writes a string for single colors and an array otherwise
func (c ColorSpec) MarshalJSON() ([]byte, error) {
	if c.Single && len(c.Values) > 0 {
		return json.Marshal(c.Values[0])
	}
	if c.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Values)
}
