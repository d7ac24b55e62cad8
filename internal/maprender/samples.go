package maprender

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/exposure"
	"github.com/airshed-group/exposure-cli/internal/render"
)

// sample CSV columns, by header name.
const (
	colLayer         = "layer"
	colLng           = "lng"
	colLat           = "lat"
	colConcentration = "concentration"
	colTimestamp     = "timestamp"
)

// LoadSampleCSV reads pollutant sample points from a CSV file and groups
// them by tileset layer. The file needs a header row naming at least the
// layer, lng, lat, concentration, and timestamp columns, in any order.
// Malformed rows are skipped, not fatal.
func LoadSampleCSV(path string) (map[string][]render.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "maprender: open sample file %s", path)
	}
	defer func() { _ = f.Close() }()

	return readSamples(f, path)
}

func readSamples(r io.Reader, path string) (map[string][]render.Feature, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "maprender: read sample header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{colLayer, colLng, colLat, colConcentration, colTimestamp} {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("maprender: sample file missing column %q", col)
		}
	}

	byLayer := make(map[string][]render.Feature)
	var skipped, total int

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "maprender: read sample row")
		}

		if len(record) <= idx[colLayer] || len(record) <= idx[colLng] ||
			len(record) <= idx[colLat] || len(record) <= idx[colConcentration] ||
			len(record) <= idx[colTimestamp] {
			skipped++
			continue
		}

		layer := strings.TrimSpace(record[idx[colLayer]])
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(record[idx[colLng]]), 64)
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[idx[colLat]]), 64)
		conc, concErr := strconv.ParseFloat(strings.TrimSpace(record[idx[colConcentration]]), 64)
		ts := strings.TrimSpace(record[idx[colTimestamp]])

		if layer == "" || ts == "" || lngErr != nil || latErr != nil || concErr != nil {
			skipped++
			continue
		}

		byLayer[layer] = append(byLayer[layer], render.Feature{
			Point: geom.Coord{lng, lat},
			Properties: map[string]any{
				exposure.PropConcentration: conc,
				exposure.PropTimestamp:     ts,
			},
		})
		total++
	}

	if skipped > 0 {
		zap.L().Debug("maprender: skipped malformed sample rows",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	zap.L().Info("maprender: loaded samples",
		zap.String("path", path),
		zap.Int("samples", total),
		zap.Int("layers", len(byLayer)))

	return byLayer, nil
}
