// Package tileset maps a simulation instant (calendar date + hour) to the
// pre-partitioned concentration dataset valid for that instant.
package tileset

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Instant is a simulation clock value driven by the playback control.
type Instant struct {
	Date string `json:"date" yaml:"date"` // YYYY-MM-DD
	Hour int    `json:"hour" yaml:"hour"` // 0-23, UTC
}

// Validate checks the date format and hour range.
func (i Instant) Validate() error {
	if _, err := time.Parse(dateLayout, i.Date); err != nil {
		return eris.Wrapf(err, "tileset: bad instant date %q", i.Date)
	}
	if i.Hour < 0 || i.Hour > 23 {
		return eris.Errorf("tileset: bad instant hour %d", i.Hour)
	}
	return nil
}

// Timestamp returns the exact sample timestamp string used for equality
// filtering of concentration points: YYYY-MM-DDTHH:00:00, UTC hour.
func (i Instant) Timestamp() string {
	return fmt.Sprintf("%sT%02d:00:00", i.Date, i.Hour)
}

func (i Instant) String() string {
	return i.Timestamp()
}

// Window is one dataset partition: the instants it covers and the renderer
// source layer holding its point samples.
type Window struct {
	Date        string `yaml:"date" json:"date"`
	StartHour   int    `yaml:"start_hour" json:"start_hour"`
	EndHour     int    `yaml:"end_hour" json:"end_hour"`
	SourceLayer string `yaml:"source_layer" json:"source_layer"`
}

// covers reports whether the window contains the instant.
func (w Window) covers(i Instant) bool {
	return w.Date == i.Date && w.StartHour <= i.Hour && i.Hour <= w.EndHour
}

// Table is the static window reference table. Hour ranges may be
// non-contiguous; gaps mean no dataset is published for those instants.
type Table struct {
	windows []Window
}

// NewTable validates windows and builds a table. Windows must have sane hour
// ranges and must not overlap; any instant resolves to at most one window.
func NewTable(windows []Window) (*Table, error) {
	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Date != sorted[b].Date {
			return sorted[a].Date < sorted[b].Date
		}
		return sorted[a].StartHour < sorted[b].StartHour
	})

	for i, w := range sorted {
		if _, err := time.Parse(dateLayout, w.Date); err != nil {
			return nil, eris.Wrapf(err, "tileset: bad window date %q", w.Date)
		}
		if w.StartHour < 0 || w.EndHour > 23 || w.StartHour > w.EndHour {
			return nil, eris.Errorf("tileset: bad hour range %d-%d on %s", w.StartHour, w.EndHour, w.Date)
		}
		if w.SourceLayer == "" {
			return nil, eris.Errorf("tileset: window %s %d-%d has no source layer", w.Date, w.StartHour, w.EndHour)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.Date == w.Date && w.StartHour <= prev.EndHour {
				return nil, eris.Errorf("tileset: overlapping windows on %s (%d-%d, %d-%d)",
					w.Date, prev.StartHour, prev.EndHour, w.StartHour, w.EndHour)
			}
		}
	}

	return &Table{windows: sorted}, nil
}

// LoadTable reads a window table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tileset: read %s", path)
	}
	return ParseTable(data)
}

// ParseTable parses YAML of the form:
//
//	windows:
//	  - date: 2024-08-15
//	    start_hour: 0
//	    end_hour: 11
//	    source_layer: pm25-20240815-am
func ParseTable(data []byte) (*Table, error) {
	var doc struct {
		Windows []Window `yaml:"windows"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "tileset: parse window table")
	}
	return NewTable(doc.Windows)
}

// Resolve returns the window covering the instant. A gap in the table
// resolves to ok=false: exposure data is unavailable for that instant, which
// is a steady-state condition, not an error.
func (t *Table) Resolve(i Instant) (Window, bool) {
	for _, w := range t.windows {
		if w.covers(i) {
			return w, true
		}
	}
	return Window{}, false
}

// Windows returns the table contents in date/hour order.
func (t *Table) Windows() []Window {
	out := make([]Window, len(t.windows))
	copy(out, t.windows)
	return out
}
