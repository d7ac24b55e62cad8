package geom2d

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// PointInRing tests containment of a point in a single vertex ring using
// ray casting: a horizontal ray from the point crosses each edge at most
// once, and an odd crossing count means inside. Points exactly on an edge
// fall to whichever side the tie-break produces; the result is
// deterministic for a given input but not specified.
//
// Degenerate input (point with fewer than two ordinates, NaN ordinates, or
// a ring too short to enclose area) returns false.
func PointInRing(pt geom.Coord, ring []geom.Coord) bool {
	if len(pt) < 2 || len(ring) < 3 {
		return false
	}
	x, y := pt.X(), pt.Y()
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			j = i
			continue
		}
		xi, yi := ring[i].X(), ring[i].Y()
		xj, yj := ring[j].X(), ring[j].Y()

		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
