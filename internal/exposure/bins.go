// Package exposure computes population exposure to a time-varying pollutant
// concentration field inside an area-of-interest polygon.
package exposure

import (
	"github.com/rotisserie/eris"
)

// Bin is one concentration band. A value belongs to the last bin whose
// Lower bound it meets or exceeds; together the bins partition [0, inf).
type Bin struct {
	Label string  `json:"label" yaml:"label"`
	Lower float64 `json:"lower" yaml:"lower"`
	Color string  `json:"color" yaml:"color"`
}

// Bins is an ascending-threshold band table.
type Bins []Bin

// DefaultBins is the PM2.5 exposure band table with standard AQI colors.
func DefaultBins() Bins {
	return Bins{
		{Label: "Good", Lower: 0, Color: "#00e400"},
		{Label: "Moderate", Lower: 10, Color: "#ffff00"},
		{Label: "Unhealthy for Sensitive Groups", Lower: 35, Color: "#ff7e00"},
		{Label: "Unhealthy", Lower: 55, Color: "#ff0000"},
		{Label: "Very Unhealthy", Lower: 150, Color: "#8f3f97"},
		{Label: "Hazardous", Lower: 250, Color: "#7e0023"},
	}
}

// Validate checks that thresholds start at zero and strictly increase.
func (b Bins) Validate() error {
	if len(b) == 0 {
		return eris.New("exposure: empty bin table")
	}
	if b[0].Lower != 0 {
		return eris.Errorf("exposure: first bin %q must start at 0, got %g", b[0].Label, b[0].Lower)
	}
	for i := 1; i < len(b); i++ {
		if b[i].Lower <= b[i-1].Lower {
			return eris.Errorf("exposure: bin thresholds must strictly increase (%q=%g, %q=%g)",
				b[i-1].Label, b[i-1].Lower, b[i].Label, b[i].Lower)
		}
	}
	return nil
}

// Assign returns the bin containing the value: the last bin whose lower
// bound is <= value. Values below the first threshold fall into the first bin.
func (b Bins) Assign(value float64) Bin {
	selected := b[0]
	for _, bin := range b[1:] {
		if bin.Lower <= value {
			selected = bin
		}
	}
	return selected
}

// Labels returns the bin labels in threshold order.
func (b Bins) Labels() []string {
	out := make([]string, len(b))
	for i, bin := range b {
		out[i] = bin.Label
	}
	return out
}
