package geom2d

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	geom "github.com/twpayne/go-geom"
)

func TestBoundingBox_Basic(t *testing.T) {
	b := BoundingBox([]geom.Coord{{-122.5, 37.7}, {-122.3, 37.9}, {-122.4, 37.6}})

	assert.Equal(t, -122.5, b.MinLng)
	assert.Equal(t, -122.3, b.MaxLng)
	assert.Equal(t, 37.6, b.MinLat)
	assert.Equal(t, 37.9, b.MaxLat)
	assert.False(t, b.Empty())
}

func TestBoundingBox_Empty(t *testing.T) {
	b := BoundingBox(nil)
	assert.True(t, b.Empty())
	assert.False(t, b.Contains(geom.Coord{0, 0}))

	// Short coordinates are skipped, not folded.
	b = BoundingBox([]geom.Coord{{1}, {}})
	assert.True(t, b.Empty())
}

func TestBoundingBox_OrderIndependent(t *testing.T) {
	pts := []geom.Coord{
		{-90.1, 29.9}, {-90.3, 30.1}, {-89.8, 29.7}, {-90.0, 30.0}, {-90.2, 29.8},
	}
	want := BoundingBox(pts)

	rng := rand.New(rand.NewSource(7))
	for range 20 {
		shuffled := make([]geom.Coord, len(pts))
		copy(shuffled, pts)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := BoundingBox(shuffled)
		assert.Equal(t, want, got)
		assert.LessOrEqual(t, got.MinLng, got.MaxLng)
		assert.LessOrEqual(t, got.MinLat, got.MaxLat)
	}
}

func TestBBox_Pad(t *testing.T) {
	b := BBox{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 20}
	p := b.Pad(0.2)

	assert.Equal(t, BBox{MinLng: -2, MinLat: -4, MaxLng: 12, MaxLat: 24}, p)

	// Padding an empty box stays empty.
	assert.True(t, EmptyBBox().Pad(0.2).Empty())
}

func TestBBox_Contains(t *testing.T) {
	b := BBox{MinLng: -1, MinLat: -1, MaxLng: 1, MaxLat: 1}

	assert.True(t, b.Contains(geom.Coord{0, 0}))
	assert.True(t, b.Contains(geom.Coord{-1, 1})) // on the edge
	assert.False(t, b.Contains(geom.Coord{1.01, 0}))
	assert.False(t, b.Contains(geom.Coord{0}))
}
