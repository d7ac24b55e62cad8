// Package render defines the narrow capability surface the analysis engine
// needs from a map rendering collaborator: query visible features, project
// geographic coordinates to screen space, and report readiness. The engine
// never holds renderer lifecycle state itself.
package render

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// ErrUnavailable indicates a feature query failed or the renderer is not in
// a queryable state. Recoverable: the next trigger retries.
var ErrUnavailable = eris.New("render: renderer unavailable")

// ScreenPoint is a projected pixel coordinate.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenRect is a pixel-space query rectangle.
type ScreenRect struct {
	Min ScreenPoint `json:"min"`
	Max ScreenPoint `json:"max"`
}

// Filter restricts a feature query to features whose named property equals
// the given value. A nil *Filter matches everything.
type Filter struct {
	Property string
	Value    string
}

// Feature is a rendered feature borrowed from the display surface for the
// duration of a query. Polygon features carry Rings; point features carry
// Point. Callers must not mutate either.
type Feature struct {
	Rings      [][]geom.Coord
	Point      geom.Coord
	Properties map[string]any
}

// Renderer is the injected handle to the map display surface.
type Renderer interface {
	// QueryFeatures returns the features on the given layer whose on-screen
	// projection falls inside rect, optionally narrowed by filter. An empty
	// result with no error means no features are loaded at the current view.
	QueryFeatures(rect ScreenRect, layer string, filter *Filter) ([]Feature, error)

	// Project converts a lon/lat coordinate to screen space.
	Project(c geom.Coord) ScreenPoint

	// Ready reports whether style and tiles have loaded far enough for
	// queries to be meaningful.
	Ready() bool
}
