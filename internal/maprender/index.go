// Package maprender is an in-process stand-in for a browser map surface. It
// keeps loaded vector features in per-layer R-trees and answers screen-space
// feature queries through a fixed web mercator viewport, so the analysis
// pipeline runs headless with the same renderer contract a map UI provides.
package maprender

import (
	"fmt"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/render"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// Point features get a degenerate rect with this extent (degrees).
	pointExtent = 1e-7
)

var errNoGeometry = eris.New("maprender: feature has no geometry")

// spatialFeature wraps a feature to satisfy rtreego.Spatial.
type spatialFeature struct {
	feat render.Feature
	rect *rtreego.Rect
}

func (s *spatialFeature) Bounds() *rtreego.Rect {
	return s.rect
}

// Index is an rtreego-backed renderer. Features are grouped into named
// layers; each layer gets its own tree.
type Index struct {
	viewport Viewport

	mu     sync.RWMutex
	layers map[string]*rtreego.Rtree
	ready  bool
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithViewport overrides the default continental-US viewport.
func WithViewport(v Viewport) IndexOption {
	return func(i *Index) {
		i.viewport = v
	}
}

// NewIndex creates an empty, not-yet-ready index.
func NewIndex(opts ...IndexOption) *Index {
	i := &Index{
		viewport: DefaultViewport(),
		layers:   make(map[string]*rtreego.Rtree),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// AddFeatures indexes features into the named layer, creating it on first
// use. Features with no usable extent are skipped.
func (i *Index) AddFeatures(layer string, feats []render.Feature) {
	i.mu.Lock()
	defer i.mu.Unlock()

	tree, ok := i.layers[layer]
	if !ok {
		tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
		i.layers[layer] = tree
	}

	var skipped int
	for _, f := range feats {
		rect, err := featureRect(f)
		if err != nil {
			skipped++
			continue
		}
		tree.Insert(&spatialFeature{feat: f, rect: rect})
	}
	if skipped > 0 {
		zap.L().Debug("maprender: skipped features without extent",
			zap.String("layer", layer),
			zap.Int("skipped", skipped))
	}
}

// MarkReady flips the index into the queryable state. Loaders call it after
// the last layer finishes.
func (i *Index) MarkReady() {
	i.mu.Lock()
	i.ready = true
	i.mu.Unlock()
}

// Ready implements render.Renderer.
func (i *Index) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ready
}

// Project implements render.Renderer.
func (i *Index) Project(c geom.Coord) render.ScreenPoint {
	return i.viewport.ToScreen(c)
}

// FeatureCount returns the number of indexed features on a layer.
func (i *Index) FeatureCount(layer string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	tree, ok := i.layers[layer]
	if !ok {
		return 0
	}
	return tree.Size()
}

// QueryFeatures implements render.Renderer. The screen rect is unprojected
// to a geographic envelope and matched against the layer's tree; candidates
// are then narrowed by the optional property filter. An unknown layer is an
// empty result, not an error.
func (i *Index) QueryFeatures(rect render.ScreenRect, layer string, filter *render.Filter) ([]render.Feature, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.ready {
		return nil, render.ErrUnavailable
	}
	tree, ok := i.layers[layer]
	if !ok {
		return nil, nil
	}

	// Screen y grows downward, so the rect's Min is the geographic top-left.
	a := i.viewport.ToGeo(rect.Min)
	b := i.viewport.ToGeo(rect.Max)
	minLng, maxLng := ordered(a.X(), b.X())
	minLat, maxLat := ordered(a.Y(), b.Y())

	bounds, err := rtreego.NewRect(
		rtreego.Point{minLng, minLat},
		[]float64{maxLng - minLng + pointExtent, maxLat - minLat + pointExtent},
	)
	if err != nil {
		return nil, render.ErrUnavailable
	}

	var out []render.Feature
	for _, hit := range tree.SearchIntersect(bounds) {
		sf, ok := hit.(*spatialFeature)
		if !ok {
			continue
		}
		if filter != nil && !matchesFilter(sf.feat, filter) {
			continue
		}
		out = append(out, sf.feat)
	}
	return out, nil
}

func matchesFilter(f render.Feature, filter *render.Filter) bool {
	v, ok := f.Properties[filter.Property]
	if !ok {
		return false
	}
	switch s := v.(type) {
	case string:
		return s == filter.Value
	default:
		return fmt.Sprint(v) == filter.Value
	}
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

// featureRect computes the bounding rect of a feature's rings, or a
// degenerate rect around its point.
func featureRect(f render.Feature) (*rtreego.Rect, error) {
	if len(f.Rings) == 0 {
		if len(f.Point) < 2 {
			return nil, errNoGeometry
		}
		p := rtreego.Point{f.Point.X(), f.Point.Y()}
		return p.ToRect(pointExtent), nil
	}

	first := true
	var minLng, minLat, maxLng, maxLat float64
	for _, ring := range f.Rings {
		for _, c := range ring {
			if len(c) < 2 {
				continue
			}
			if first {
				minLng, maxLng = c.X(), c.X()
				minLat, maxLat = c.Y(), c.Y()
				first = false
				continue
			}
			if c.X() < minLng {
				minLng = c.X()
			}
			if c.X() > maxLng {
				maxLng = c.X()
			}
			if c.Y() < minLat {
				minLat = c.Y()
			}
			if c.Y() > maxLat {
				maxLat = c.Y()
			}
		}
	}
	if first {
		return nil, errNoGeometry
	}
	return rtreego.NewRect(
		rtreego.Point{minLng, minLat},
		[]float64{maxLng - minLng + pointExtent, maxLat - minLat + pointExtent},
	)
}
