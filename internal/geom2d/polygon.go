// Package geom2d provides planar lon/lat predicates for area-of-interest
// polygons: bounding boxes, ray-casting containment, and polygon validation.
// All arithmetic is planar; geodesic accuracy is out of scope.
package geom2d

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// ErrInvalidPolygon indicates a polygon with fewer than three distinct vertices.
var ErrInvalidPolygon = eris.New("geom2d: polygon needs at least 3 distinct vertices")

// Polygon is an ordered sequence of lon/lat vertices. A draft polygon is an
// open sequence; a finalized polygon repeats its first vertex at the end.
type Polygon struct {
	Vertices []geom.Coord
}

// NewPolygon builds a polygon from lon/lat pairs.
func NewPolygon(coords ...geom.Coord) *Polygon {
	return &Polygon{Vertices: coords}
}

// Closed reports whether the polygon repeats its first vertex at the end.
func (p *Polygon) Closed() bool {
	n := len(p.Vertices)
	if n < 2 {
		return false
	}
	return coordEqual(p.Vertices[0], p.Vertices[n-1])
}

// Ring returns the closed vertex ring, appending the closing vertex if the
// polygon is still open. The receiver is not mutated.
func (p *Polygon) Ring() []geom.Coord {
	if len(p.Vertices) == 0 {
		return nil
	}
	if p.Closed() {
		return p.Vertices
	}
	ring := make([]geom.Coord, len(p.Vertices), len(p.Vertices)+1)
	copy(ring, p.Vertices)
	return append(ring, p.Vertices[0])
}

// Validate rejects polygons that cannot enclose area. A finalized polygon has
// at least four points (three distinct vertices plus the closing point).
func (p *Polygon) Validate() error {
	distinct := 0
	seen := make(map[[2]float64]bool, len(p.Vertices))
	for _, c := range p.Vertices {
		if len(c) < 2 {
			return ErrInvalidPolygon
		}
		key := [2]float64{c.X(), c.Y()}
		if !seen[key] {
			seen[key] = true
			distinct++
		}
	}
	if distinct < 3 {
		return ErrInvalidPolygon
	}
	return nil
}

// Bounds returns the polygon's bounding box.
func (p *Polygon) Bounds() BBox {
	return BoundingBox(p.Vertices)
}

// Contains tests a point against the polygon's closed ring.
func (p *Polygon) Contains(pt geom.Coord) bool {
	return PointInRing(pt, p.Ring())
}

func coordEqual(a, b geom.Coord) bool {
	return len(a) >= 2 && len(b) >= 2 && a.X() == b.X() && a.Y() == b.Y()
}
