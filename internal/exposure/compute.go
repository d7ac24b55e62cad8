package exposure

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/render"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

// Feature property keys on concentration sample points.
const (
	PropConcentration = "concentration"
	PropTimestamp     = "timestamp"
)

// bboxPadding widens the sample query box by this fraction per side so that
// samples straddling the polygon edge are recalled. The exact polygon still
// decides membership.
const bboxPadding = 0.2

// Result is the exposure breakdown for one analysis request.
//
// The entire population is assigned to the single bin containing the mean
// concentration: this models area exposure level rather than per-resident
// exposure, matching the source behavior. When no samples intersect the
// polygon the distribution is all-zero and the mean is 0.
type Result struct {
	TotalPopulation      int64            `json:"total_population"`
	TractCount           int              `json:"tract_count"`
	AverageConcentration float64          `json:"average_concentration"`
	SampleCount          int              `json:"sample_count"`
	Distribution         map[string]int64 `json:"distribution"`
}

// Calculator queries concentration samples from the renderer and buckets
// population into exposure bands.
type Calculator struct {
	renderer render.Renderer
	bins     Bins
}

// NewCalculator creates a Calculator. Bins must already be validated.
func NewCalculator(renderer render.Renderer, bins Bins) *Calculator {
	return &Calculator{renderer: renderer, bins: bins}
}

// Bins returns the calculator's band table.
func (c *Calculator) Bins() Bins {
	return c.bins
}

// Compute runs the exposure calculation for a polygon against the window's
// sample layer at the given instant. totalPopulation and tractCount come
// from the boundary resolution stage and pass through to the result.
func (c *Calculator) Compute(poly *geom2d.Polygon, window tileset.Window, instant tileset.Instant, totalPopulation int64, tractCount int) (Result, error) {
	mean, count, err := c.SampleStats(poly, window, instant)
	if err != nil {
		return Result{
			TotalPopulation: totalPopulation,
			TractCount:      tractCount,
			Distribution:    c.zeroDistribution(),
		}, err
	}
	return c.BuildResult(mean, count, totalPopulation, tractCount), nil
}

// SampleStats queries the window's concentration samples at the instant,
// keeps those inside the exact polygon, and returns their arithmetic mean
// and count. A count of zero means no exposure data intersects the polygon.
func (c *Calculator) SampleStats(poly *geom2d.Polygon, window tileset.Window, instant tileset.Instant) (float64, int, error) {
	bb := poly.Bounds().Pad(bboxPadding)
	if bb.Empty() {
		return 0, 0, nil
	}

	rect := render.ScreenRect{
		Min: c.renderer.Project(geom.Coord{bb.MinLng, bb.MaxLat}),
		Max: c.renderer.Project(geom.Coord{bb.MaxLng, bb.MinLat}),
	}
	filter := &render.Filter{Property: PropTimestamp, Value: instant.Timestamp()}

	feats, err := c.renderer.QueryFeatures(rect, window.SourceLayer, filter)
	if err != nil {
		zap.L().Warn("exposure: sample query failed",
			zap.String("layer", window.SourceLayer),
			zap.String("timestamp", instant.Timestamp()),
			zap.Error(err))
		return 0, 0, eris.Wrap(render.ErrUnavailable, err.Error())
	}

	var sum float64
	var count int
	for _, f := range feats {
		if !poly.Contains(f.Point) {
			continue
		}
		v, ok := numeric(f.Properties[PropConcentration])
		if !ok {
			// Non-numeric concentrations are skipped in both sum and count.
			continue
		}
		sum += v
		count++
	}

	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

// BuildResult assembles a Result from precomputed sample statistics. With no
// samples the distribution stays all-zero; otherwise the entire population
// goes into the bin containing the mean.
func (c *Calculator) BuildResult(mean float64, sampleCount int, totalPopulation int64, tractCount int) Result {
	res := Result{
		TotalPopulation: totalPopulation,
		TractCount:      tractCount,
		Distribution:    c.zeroDistribution(),
	}
	if sampleCount == 0 {
		return res
	}
	res.AverageConcentration = mean
	res.SampleCount = sampleCount
	res.Distribution[c.bins.Assign(mean).Label] = totalPopulation
	return res
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// zeroDistribution builds an all-zero label → population map.
func (c *Calculator) zeroDistribution() map[string]int64 {
	dist := make(map[string]int64, len(c.bins))
	for _, b := range c.bins {
		dist[b.Label] = 0
	}
	return dist
}
