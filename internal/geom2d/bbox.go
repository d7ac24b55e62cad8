package geom2d

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// BBox is a geographic bounding box. The zero value from EmptyBBox is
// inverted (min > max) and reports Empty, meaning "no data".
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// EmptyBBox returns the inverted box produced by folding zero points.
func EmptyBBox() BBox {
	return BBox{
		MinLng: math.Inf(1),
		MinLat: math.Inf(1),
		MaxLng: math.Inf(-1),
		MaxLat: math.Inf(-1),
	}
}

// BoundingBox folds successive min/max over the given points. Coordinates
// with fewer than two ordinates are skipped.
func BoundingBox(points []geom.Coord) BBox {
	b := EmptyBBox()
	for _, c := range points {
		if len(c) < 2 {
			continue
		}
		b.MinLng = math.Min(b.MinLng, c.X())
		b.MaxLng = math.Max(b.MaxLng, c.X())
		b.MinLat = math.Min(b.MinLat, c.Y())
		b.MaxLat = math.Max(b.MaxLat, c.Y())
	}
	return b
}

// Empty reports whether the box is inverted, i.e. built from no points.
func (b BBox) Empty() bool {
	return b.MinLng > b.MaxLng || b.MinLat > b.MaxLat
}

// Pad expands the box by fraction of its width and height on each side.
// An empty box is returned unchanged.
func (b BBox) Pad(fraction float64) BBox {
	if b.Empty() {
		return b
	}
	dx := (b.MaxLng - b.MinLng) * fraction
	dy := (b.MaxLat - b.MinLat) * fraction
	return BBox{
		MinLng: b.MinLng - dx,
		MinLat: b.MinLat - dy,
		MaxLng: b.MaxLng + dx,
		MaxLat: b.MaxLat + dy,
	}
}

// Contains reports whether the point lies inside or on the box.
func (b BBox) Contains(c geom.Coord) bool {
	if len(c) < 2 || b.Empty() {
		return false
	}
	return c.X() >= b.MinLng && c.X() <= b.MaxLng &&
		c.Y() >= b.MinLat && c.Y() <= b.MaxLat
}
