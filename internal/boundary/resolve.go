package boundary

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/render"
)

// DefaultTractLayer is the renderer layer holding tract boundary features.
const DefaultTractLayer = "census-tracts"

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTractLayer overrides the renderer layer queried for boundary units.
func WithTractLayer(layer string) ResolverOption {
	return func(r *Resolver) {
		r.layer = layer
	}
}

// Resolver finds boundary units intersecting a polygon.
type Resolver struct {
	renderer render.Renderer
	layer    string
}

// NewResolver creates a Resolver over the given renderer.
func NewResolver(renderer render.Renderer, opts ...ResolverOption) *Resolver {
	r := &Resolver{renderer: renderer, layer: DefaultTractLayer}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveIntersecting returns the boundary units whose outer ring has at
// least one vertex inside the polygon.
//
// This is a deliberate approximation, kept for behavioral parity with the
// map client: a unit whose vertices all fall outside the polygon is missed
// even when its interior overlaps. True polygon clipping is not performed.
//
// A renderer with no loaded features returns an empty slice and no error;
// the caller retries on the next trigger once tiles load.
func (r *Resolver) ResolveIntersecting(poly *geom2d.Polygon) ([]Unit, error) {
	if err := poly.Validate(); err != nil {
		return nil, err
	}

	if !r.renderer.Ready() {
		zap.L().Debug("boundary: renderer not ready, returning empty set",
			zap.String("layer", r.layer))
		return nil, nil
	}

	bb := poly.Bounds()
	if bb.Empty() {
		return nil, nil
	}
	rect := screenRect(r.renderer, bb)

	feats, err := r.renderer.QueryFeatures(rect, r.layer, nil)
	if err != nil {
		zap.L().Warn("boundary: feature query failed",
			zap.String("layer", r.layer),
			zap.Error(err))
		return nil, eris.Wrap(render.ErrUnavailable, err.Error())
	}

	var units []Unit
	seen := make(map[string]bool, len(feats))
	for _, f := range feats {
		u, ok := unitFromFeature(f)
		if !ok || seen[u.GEOID] {
			continue
		}
		if anyVertexInside(poly, u.OuterRing()) {
			seen[u.GEOID] = true
			units = append(units, u)
		}
	}
	return units, nil
}

// anyVertexInside tests whether any vertex of the candidate ring lies inside
// the polygon.
func anyVertexInside(poly *geom2d.Polygon, ring []geom.Coord) bool {
	for _, v := range ring {
		if poly.Contains(v) {
			return true
		}
	}
	return false
}

// screenRect projects the geographic box corners into the renderer's pixel
// space. Screen Y grows downward, so the min/max corners swap latitudes.
func screenRect(r render.Renderer, bb geom2d.BBox) render.ScreenRect {
	topLeft := r.Project(geom.Coord{bb.MinLng, bb.MaxLat})
	bottomRight := r.Project(geom.Coord{bb.MaxLng, bb.MinLat})
	return render.ScreenRect{Min: topLeft, Max: bottomRight}
}
