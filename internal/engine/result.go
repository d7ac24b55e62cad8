// Package engine orchestrates the analysis pipeline under changing inputs:
// it debounces bursts of triggers, deduplicates identical requests, runs the
// boundary/census/exposure stages, and emits staged results so a UI can show
// a tract count before the full population figure is ready.
package engine

import (
	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

// Status describes an update's place in the request lifecycle.
type Status string

const (
	// StatusCalculating is the first-stage emission: the tract count is
	// known, population and exposure are still computing.
	StatusCalculating Status = "calculating"
	// StatusComplete is the second-stage emission with the full result.
	StatusComplete Status = "complete"
	// StatusNoTracts is terminal: no boundary units intersect the polygon.
	StatusNoTracts Status = "no_tracts"
	// StatusError is terminal for this request; the next trigger starts
	// fresh.
	StatusError Status = "error"
)

// ErrorKind classifies a terminal error update.
type ErrorKind string

const (
	ErrKindRenderer     ErrorKind = "renderer_unavailable"
	ErrKindDataFetch    ErrorKind = "data_fetch"
	ErrKindInvalidInput ErrorKind = "invalid_polygon"
)

// Request is one analysis input: the area-of-interest polygon, the
// simulation instant, and the basemap theme flag.
//
// Request identity for deduplication is the polygon *reference* plus instant
// plus theme; structural polygon equality is deliberately not checked.
type Request struct {
	Polygon *geom2d.Polygon
	Instant tileset.Instant
	Dark    bool
}

func (r Request) key() requestKey {
	return requestKey{polygon: r.Polygon, instant: r.Instant, dark: r.Dark}
}

type requestKey struct {
	polygon *geom2d.Polygon
	instant tileset.Instant
	dark    bool
}

// Update is one staged result emission. A request produces at most two
// updates (calculating, then complete) or a single terminal one.
type Update struct {
	RequestID string `json:"request_id"`
	Status    Status `json:"status"`

	TractCount      int    `json:"tract_count"`
	TotalPopulation *int64 `json:"total_population"` // nil until the second stage

	// ExposureAvailable is false when the instant falls in a tileset gap;
	// the census figures are still valid.
	ExposureAvailable    bool             `json:"exposure_available"`
	AverageConcentration float64          `json:"average_concentration"`
	SampleCount          int              `json:"sample_count"`
	Distribution         map[string]int64 `json:"distribution,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Err       error     `json:"-"`
}

func ptr(v int64) *int64 { return &v }
