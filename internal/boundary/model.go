// Package boundary resolves which administrative boundary units (census
// tracts) intersect an area-of-interest polygon, using the renderer's
// currently displayed features.
package boundary

import (
	"strconv"

	geom "github.com/twpayne/go-geom"

	"github.com/airshed-group/exposure-cli/internal/render"
)

// Feature property keys, following TIGER/Line attribute naming.
const (
	PropGEOID      = "GEOID"
	PropALand      = "ALAND"
	PropStateFIPS  = "STATEFP"
	PropCountyFIPS = "COUNTYFP"
	PropTractCE    = "TRACTCE"
)

// Unit is a boundary unit borrowed from the renderer: a census tract polygon
// with its identifying codes. Geometry is read-only.
type Unit struct {
	GEOID      string         `json:"geoid"`
	StateFIPS  string         `json:"state_fips"`
	CountyFIPS string         `json:"county_fips"`
	TractCE    string         `json:"tract_ce"`
	ALand      int64          `json:"aland"`
	Rings      [][]geom.Coord `json:"-"`
}

// OuterRing returns the unit's first ring, or nil if it has no geometry.
func (u *Unit) OuterRing() []geom.Coord {
	if len(u.Rings) == 0 {
		return nil
	}
	return u.Rings[0]
}

// unitFromFeature extracts a Unit from a rendered feature. Features without
// a GEOID property or without polygon geometry yield ok=false.
func unitFromFeature(f render.Feature) (Unit, bool) {
	geoid := propString(f.Properties, PropGEOID)
	if geoid == "" || len(f.Rings) == 0 {
		return Unit{}, false
	}
	return Unit{
		GEOID:      geoid,
		StateFIPS:  propString(f.Properties, PropStateFIPS),
		CountyFIPS: propString(f.Properties, PropCountyFIPS),
		TractCE:    propString(f.Properties, PropTractCE),
		ALand:      propInt(f.Properties, PropALand),
		Rings:      f.Rings,
	}, true
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func propInt(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
