package chart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/diogo/insightchat/internal/models"
)

// ErrNoChartData is returned when a payload lacks labels or datasets
var ErrNoChartData = errors.New(Placeholder)

// Spec is a Chart.js configuration object
type Spec struct {
	Type    string               `json:"type"`
	Data    *models.ChartPayload `json:"data"`
	Options Options              `json:"options"`
}

// BuildSpec normalizes p and merges overrides over defaults
func BuildSpec(p *models.ChartPayload, defaults, overrides Options) (*Spec, error) {
	norm := Normalize(p)
	if norm == nil {
		return nil, ErrNoChartData
	}
	kind := Kind(norm)
	norm.ChartType = ""

	if defaults == nil {
		defaults = DefaultOptions("", "")
	}

	return &Spec{
		Type:    kind,
		Data:    norm,
		Options: MergeOptions(defaults, overrides),
	}, nil
}

// MarshalSpec renders the Chart.js configuration as indented JSON
func MarshalSpec(p *models.ChartPayload, defaults, overrides Options) ([]byte, error) {
	spec, err := BuildSpec(p, defaults, overrides)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart spec: %w", err)
	}
	return data, nil
}

// ParsePayload decodes a chart payload. It accepts either the payload itself
// or a conversation response wrapping it under chartData.
func ParsePayload(data []byte) (*models.ChartPayload, error) {
	var wrapper struct {
		ChartData *models.ChartPayload `json:"chartData"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.ChartData != nil {
		return wrapper.ChartData, nil
	}

	var p models.ChartPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid chart payload: %w", err)
	}
	return &p, nil
}

// ParseOptions decodes an option override tree
func ParseOptions(data []byte) (Options, error) {
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("invalid chart options: %w", err)
	}
	return opts, nil
}
