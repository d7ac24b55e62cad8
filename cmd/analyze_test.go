package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadPolygon(t *testing.T) {
	path := writeTempFile(t, "poly.json",
		`[[-122.5, 37.7], [-122.3, 37.7], [-122.3, 37.8], [-122.5, 37.8]]`)

	poly, err := readPolygon(path)
	require.NoError(t, err)
	assert.Len(t, poly.Vertices, 4)
	assert.InDelta(t, -122.5, poly.Vertices[0].X(), 1e-9)
	assert.InDelta(t, 37.7, poly.Vertices[0].Y(), 1e-9)
}

func TestReadPolygon_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "poly.json", `{"not": "an array"}`)

	_, err := readPolygon(path)
	assert.Error(t, err)
}

func TestReadPolygon_ShortVertex(t *testing.T) {
	path := writeTempFile(t, "poly.json", `[[-122.5], [-122.3, 37.7], [-122.3, 37.8]]`)

	_, err := readPolygon(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[lng, lat]")
}

func TestReadPolygon_TooFewDistinctVertices(t *testing.T) {
	path := writeTempFile(t, "poly.json", `[[-122.5, 37.7], [-122.5, 37.7], [-122.5, 37.7]]`)

	_, err := readPolygon(path)
	assert.Error(t, err)
}

func TestReadPolygon_MissingFile(t *testing.T) {
	_, err := readPolygon("/nonexistent/poly.json")
	assert.Error(t, err)
}
