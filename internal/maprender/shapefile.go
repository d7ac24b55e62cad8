package maprender

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/boundary"
	"github.com/airshed-group/exposure-cli/internal/render"
)

// tractAttrs are the DBF attributes carried onto tract features, keyed by
// the property name the boundary resolver reads.
var tractAttrs = map[string]string{
	boundary.PropGEOID:      "GEOID",
	boundary.PropALand:      "ALAND",
	boundary.PropStateFIPS:  "STATEFP",
	boundary.PropCountyFIPS: "COUNTYFP",
	boundary.PropTractCE:    "TRACTCE",
}

// LoadTractShapefile reads a TIGER/Line tract shapefile into renderer
// features. Records without polygon geometry are skipped.
func LoadTractShapefile(path string) ([]render.Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "maprender: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	var feats []render.Feature
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		rings := polygonRings(poly)
		if len(rings) == 0 {
			skipped++
			continue
		}

		props := make(map[string]any, len(tractAttrs))
		for prop, attr := range tractAttrs {
			idx, ok := fieldIdx[strings.ToLower(attr)]
			if !ok {
				continue
			}
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if val != "" {
				props[prop] = val
			}
		}

		feats = append(feats, render.Feature{Rings: rings, Properties: props})
	}

	if skipped > 0 {
		zap.L().Debug("maprender: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	zap.L().Info("maprender: loaded tract shapefile",
		zap.String("path", path),
		zap.Int("tracts", len(feats)))

	return feats, nil
}

// polygonRings splits a shapefile polygon's flat point array into its parts.
func polygonRings(p *shp.Polygon) [][]geom.Coord {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	rings := make([][]geom.Coord, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}
		if end-start < 3 {
			continue
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		rings = append(rings, coords)
	}
	if len(rings) == 0 {
		return nil
	}
	return rings
}
