package engine

import (
	"github.com/rotisserie/eris"

	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/render"
)

// classify maps a stage error to its recoverable error kind. Every stage
// failure becomes a terminal error update for that request; a subsequent,
// independent request always proceeds.
func classify(err error) ErrorKind {
	switch {
	case eris.Is(err, geom2d.ErrInvalidPolygon):
		return ErrKindInvalidInput
	case eris.Is(err, render.ErrUnavailable):
		return ErrKindRenderer
	default:
		return ErrKindDataFetch
	}
}
