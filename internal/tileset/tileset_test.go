package tileset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindows() []Window {
	return []Window{
		{Date: "2024-08-15", StartHour: 0, EndHour: 11, SourceLayer: "pm25-20240815-am"},
		{Date: "2024-08-15", StartHour: 14, EndHour: 23, SourceLayer: "pm25-20240815-pm"},
		{Date: "2024-08-16", StartHour: 0, EndHour: 23, SourceLayer: "pm25-20240816"},
	}
}

func TestTable_Resolve(t *testing.T) {
	table, err := NewTable(testWindows())
	require.NoError(t, err)

	w, ok := table.Resolve(Instant{Date: "2024-08-15", Hour: 5})
	require.True(t, ok)
	assert.Equal(t, "pm25-20240815-am", w.SourceLayer)

	// Range bounds are inclusive.
	w, ok = table.Resolve(Instant{Date: "2024-08-15", Hour: 11})
	require.True(t, ok)
	assert.Equal(t, "pm25-20240815-am", w.SourceLayer)

	w, ok = table.Resolve(Instant{Date: "2024-08-15", Hour: 14})
	require.True(t, ok)
	assert.Equal(t, "pm25-20240815-pm", w.SourceLayer)
}

func TestTable_ResolveGap(t *testing.T) {
	table, err := NewTable(testWindows())
	require.NoError(t, err)

	// Hours 12-13 on 2024-08-15 have no published dataset.
	_, ok := table.Resolve(Instant{Date: "2024-08-15", Hour: 12})
	assert.False(t, ok)
	_, ok = table.Resolve(Instant{Date: "2024-08-15", Hour: 13})
	assert.False(t, ok)

	// Unknown dates resolve to nothing.
	_, ok = table.Resolve(Instant{Date: "2024-08-20", Hour: 5})
	assert.False(t, ok)
}

func TestTable_ResolveUnique(t *testing.T) {
	table, err := NewTable(testWindows())
	require.NoError(t, err)

	for hour := range 24 {
		matches := 0
		for _, w := range table.Windows() {
			if w.covers(Instant{Date: "2024-08-15", Hour: hour}) {
				matches++
			}
		}
		assert.LessOrEqual(t, matches, 1, "hour %d matched %d windows", hour, matches)
	}
}

func TestNewTable_RejectsOverlap(t *testing.T) {
	_, err := NewTable([]Window{
		{Date: "2024-08-15", StartHour: 0, EndHour: 12, SourceLayer: "a"},
		{Date: "2024-08-15", StartHour: 12, EndHour: 23, SourceLayer: "b"},
	})
	assert.Error(t, err)
}

func TestNewTable_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		w    Window
	}{
		{"bad date", Window{Date: "08/15/2024", StartHour: 0, EndHour: 5, SourceLayer: "a"}},
		{"inverted hours", Window{Date: "2024-08-15", StartHour: 10, EndHour: 5, SourceLayer: "a"}},
		{"hour out of range", Window{Date: "2024-08-15", StartHour: 0, EndHour: 24, SourceLayer: "a"}},
		{"missing layer", Window{Date: "2024-08-15", StartHour: 0, EndHour: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable([]Window{tt.w})
			assert.Error(t, err)
		})
	}
}

func TestParseTable_YAML(t *testing.T) {
	doc := []byte(`
windows:
  - date: 2024-08-15
    start_hour: 0
    end_hour: 11
    source_layer: pm25-20240815-am
  - date: 2024-08-15
    start_hour: 14
    end_hour: 23
    source_layer: pm25-20240815-pm
`)
	table, err := ParseTable(doc)
	require.NoError(t, err)
	assert.Len(t, table.Windows(), 2)

	w, ok := table.Resolve(Instant{Date: "2024-08-15", Hour: 20})
	require.True(t, ok)
	assert.Equal(t, "pm25-20240815-pm", w.SourceLayer)
}

func TestInstant_Timestamp(t *testing.T) {
	assert.Equal(t, "2024-08-15T07:00:00", Instant{Date: "2024-08-15", Hour: 7}.Timestamp())
	assert.Equal(t, "2024-08-15T23:00:00", Instant{Date: "2024-08-15", Hour: 23}.Timestamp())
}

func TestInstant_Validate(t *testing.T) {
	assert.NoError(t, Instant{Date: "2024-08-15", Hour: 0}.Validate())
	assert.Error(t, Instant{Date: "08/15/2024", Hour: 0}.Validate())
	assert.Error(t, Instant{Date: "2024-08-15", Hour: 24}.Validate())
	assert.Error(t, Instant{Date: "2024-08-15", Hour: -1}.Validate())
}
