// Package crop turns a weather snapshot into rule-based crop advice.
package crop

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/agrisaarthi/internal/weather"
)

// NoData is returned by Advice for crops missing from the table.
const NoData = "No crop data found."

// Climate tips, in the order their rules are checked.
const (
	TipHeat      = "⚠️ High heat! Use shade nets and reduce irrigation."
	TipRain      = "🌧️ Rain expected. Avoid fertilizer today."
	TipDry       = "💧 Low humidity. Use drip irrigation or mulching."
	TipFavorable = "✅ Weather is favorable for most crops."
)

// Thresholds used by ClimateTip.
const (
	heatThreshold     = 35.0
	humidityThreshold = 40.0
)

//go:embed crops.yaml
var cropsYAML []byte

// Info is the advice table entry for a single crop.
type Info struct {
	DefaultAdvice string     `yaml:"default_advice"`
	RainWarning   string     `yaml:"rain_warning"`
	HeatTip       string     `yaml:"heat_tip"`
	OptimalTemp   [2]float64 `yaml:"optimal_temp"`
}

// Table maps lower-case crop names to their advice.
type Table map[string]Info

// Parse decodes a YAML crop table.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing crop table: %w", err)
	}
	for name, info := range t {
		if info.DefaultAdvice == "" {
			return nil, fmt.Errorf("crop %q has no default_advice", name)
		}
		if info.OptimalTemp[0] > info.OptimalTemp[1] {
			return nil, fmt.Errorf("crop %q has an inverted optimal_temp range", name)
		}
	}
	return t, nil
}

// Default returns the built-in crop table.
func Default() Table {
	t, err := Parse(cropsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Crops lists the crop names known to the table, sorted.
func (t Table) Crops() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Advice builds the advisory for crop under the given weather.
func (t Table) Advice(crop string, w weather.Snapshot) string {
	info, ok := t[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		return NoData
	}

	advice := info.DefaultAdvice
	if raining(w) {
		advice += " " + info.RainWarning
	}
	if w.Temp.Valid && w.Temp.Value > info.OptimalTemp[1] {
		advice += " " + info.HeatTip
	}
	return advice
}

// ClimateTip picks the single most pressing tip for the weather.
func ClimateTip(w weather.Snapshot) string {
	switch {
	case w.Temp.Valid && w.Temp.Value >= heatThreshold:
		return TipHeat
	case raining(w):
		return TipRain
	case w.Humidity.Valid && w.Humidity.Value < humidityThreshold:
		return TipDry
	default:
		return TipFavorable
	}
}

func raining(w weather.Snapshot) bool {
	return strings.Contains(strings.ToLower(w.Condition), "rain")
}
