package maprender

import (
	"math"

	geom "github.com/twpayne/go-geom"

	"github.com/airshed-group/exposure-cli/internal/render"
)

const (
	tileSize = 256

	// Web mercator is undefined at the poles; clamp like slippy maps do.
	maxLatSin = 0.9999
)

// Viewport maps geographic coordinates onto a screen raster using the web
// mercator projection at a fixed zoom, centered on a point.
type Viewport struct {
	CenterLng float64
	CenterLat float64
	Zoom      float64
	Width     float64
	Height    float64
}

// DefaultViewport covers the continental US at a zoom where screen queries
// stay well inside float precision.
func DefaultViewport() Viewport {
	return Viewport{
		CenterLng: -98.5795,
		CenterLat: 39.8283,
		Zoom:      4,
		Width:     1024,
		Height:    768,
	}
}

func (v Viewport) worldSize() float64 {
	return tileSize * math.Exp2(v.Zoom)
}

// worldXY projects lng/lat to absolute world pixel coordinates.
func (v Viewport) worldXY(lng, lat float64) (float64, float64) {
	size := v.worldSize()
	x := (lng + 180) / 360 * size

	siny := math.Sin(lat * math.Pi / 180)
	if siny > maxLatSin {
		siny = maxLatSin
	} else if siny < -maxLatSin {
		siny = -maxLatSin
	}
	y := (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)) * size
	return x, y
}

// origin is the world pixel position of the viewport's top-left corner.
func (v Viewport) origin() (float64, float64) {
	cx, cy := v.worldXY(v.CenterLng, v.CenterLat)
	return cx - v.Width/2, cy - v.Height/2
}

// ToScreen projects a geographic coordinate to viewport pixels.
func (v Viewport) ToScreen(c geom.Coord) render.ScreenPoint {
	x, y := v.worldXY(c.X(), c.Y())
	ox, oy := v.origin()
	return render.ScreenPoint{X: x - ox, Y: y - oy}
}

// ToGeo inverts ToScreen, mapping viewport pixels back to lng/lat.
func (v Viewport) ToGeo(p render.ScreenPoint) geom.Coord {
	ox, oy := v.origin()
	size := v.worldSize()

	lng := (p.X+ox)/size*360 - 180

	m := (0.5 - (p.Y+oy)/size) * 4 * math.Pi
	lat := math.Asin(math.Tanh(m/2)) * 180 / math.Pi

	return geom.Coord{lng, lat}
}
