package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	geom "github.com/twpayne/go-geom"

	"github.com/airshed-group/exposure-cli/internal/boundary"
	"github.com/airshed-group/exposure-cli/internal/census"
	"github.com/airshed-group/exposure-cli/internal/exposure"
	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/render"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

// fakeRenderer serves tract polygons on the boundary layer and concentration
// points on sample layers, honoring the timestamp filter.
type fakeRenderer struct {
	mu       sync.Mutex
	tracts   []render.Feature
	samples  map[string][]render.Feature // by layer
	queryErr error
	queries  map[string]int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		samples: make(map[string][]render.Feature),
		queries: make(map[string]int),
	}
}

func (f *fakeRenderer) QueryFeatures(rect render.ScreenRect, layer string, filter *render.Filter) ([]render.Feature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[layer]++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if layer == boundary.DefaultTractLayer {
		return f.tracts, nil
	}
	var out []render.Feature
	for _, feat := range f.samples[layer] {
		if filter == nil {
			out = append(out, feat)
			continue
		}
		if v, ok := feat.Properties[filter.Property].(string); ok && v == filter.Value {
			out = append(out, feat)
		}
	}
	return out, nil
}

func (f *fakeRenderer) Project(c geom.Coord) render.ScreenPoint {
	return render.ScreenPoint{X: c.X(), Y: -c.Y()}
}

func (f *fakeRenderer) Ready() bool { return true }

func (f *fakeRenderer) queryCount(layer string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[layer]
}

func (f *fakeRenderer) setQueryErr(err error) {
	f.mu.Lock()
	f.queryErr = err
	f.mu.Unlock()
}

// blockingSource gates its first FetchAll on a release channel so tests can
// hold a run in flight.
type blockingSource struct {
	inner    *census.StaticSource
	started  chan struct{}
	release  chan struct{}
	blockOne sync.Once
}

func newBlockingSource(records map[string]census.Record) *blockingSource {
	return &blockingSource{
		inner:   &census.StaticSource{Records: records},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingSource) FetchAll(ctx context.Context) (map[string]census.Record, error) {
	b.blockOne.Do(func() {
		close(b.started)
		<-b.release
	})
	return b.inner.FetchAll(ctx)
}

func tract(geoid string, ring []geom.Coord) render.Feature {
	return render.Feature{
		Rings: [][]geom.Coord{ring},
		Properties: map[string]any{
			boundary.PropGEOID:      geoid,
			boundary.PropStateFIPS:  geoid[:2],
			boundary.PropCountyFIPS: geoid[2:5],
			boundary.PropTractCE:    geoid[5:],
		},
	}
}

func point(lng, lat, concentration float64, ts string) render.Feature {
	return render.Feature{
		Point: geom.Coord{lng, lat},
		Properties: map[string]any{
			exposure.PropConcentration: concentration,
			exposure.PropTimestamp:     ts,
		},
	}
}

func ringAround(minX, minY, maxX, maxY float64) []geom.Coord {
	return []geom.Coord{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}
}

func squarePolygon(minX, minY, maxX, maxY float64) *geom2d.Polygon {
	return geom2d.NewPolygon(
		geom.Coord{minX, minY}, geom.Coord{maxX, minY},
		geom.Coord{maxX, maxY}, geom.Coord{minX, maxY}, geom.Coord{minX, minY},
	)
}

func testTable(t *testing.T) *tileset.Table {
	t.Helper()
	table, err := tileset.NewTable([]tileset.Window{
		{Date: "2024-08-15", StartHour: 0, EndHour: 11, SourceLayer: "pm25-20240815-am"},
		{Date: "2024-08-15", StartHour: 14, EndHour: 23, SourceLayer: "pm25-20240815-pm"},
	})
	if err != nil {
		t.Fatalf("build window table: %v", err)
	}
	return table
}

// recv reads one update or fails the test after a timeout.
func recv(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatal("updates channel closed")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return Update{}
}
