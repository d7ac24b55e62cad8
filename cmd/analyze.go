package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"

	"github.com/airshed-group/exposure-cli/internal/engine"
	"github.com/airshed-group/exposure-cli/internal/exposure"
	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

var (
	analyzeDate string
	analyzeHour int
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <polygon.json>",
	Short: "Run one exposure analysis for a polygon and simulation instant",
	Long:  "Reads an area-of-interest polygon from a JSON file of [lng, lat] pairs and reports intersecting tracts, their total population, and its distribution across exposure bands.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poly, err := readPolygon(args[0])
		if err != nil {
			return err
		}

		instant := tileset.Instant{Date: analyzeDate, Hour: analyzeHour}
		if err := instant.Validate(); err != nil {
			return err
		}

		env, err := initEngine(cmd.Context(), "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		var last engine.Update
		for u := range env.Controller.Analyze(cmd.Context(), engine.Request{Polygon: poly, Instant: instant}) {
			last = u
			if !analyzeJSON && u.Status == engine.StatusCalculating {
				fmt.Fprintf(cmd.OutOrStdout(), "intersecting tracts: %d (computing population...)\n", u.TractCount)
			}
		}

		if last.Status == engine.StatusError {
			return eris.Errorf("analysis failed: %s: %v", last.ErrorKind, last.Err)
		}

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(last)
		}
		printUpdate(cmd, last)
		return nil
	},
}

// readPolygon parses a JSON array of [lng, lat] vertex pairs.
func readPolygon(path string) (*geom2d.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read polygon file %s", path)
	}

	var pairs [][]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrap(err, "parse polygon file")
	}

	coords := make([]geom.Coord, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			return nil, eris.New("polygon vertices must be [lng, lat] pairs")
		}
		coords = append(coords, geom.Coord{p[0], p[1]})
	}

	poly := geom2d.NewPolygon(coords...)
	if err := poly.Validate(); err != nil {
		return nil, err
	}
	return poly, nil
}

func printUpdate(cmd *cobra.Command, u engine.Update) {
	out := cmd.OutOrStdout()

	if u.Status == engine.StatusNoTracts {
		fmt.Fprintln(out, "no census tracts intersect the polygon")
		return
	}

	fmt.Fprintf(out, "tracts:     %d\n", u.TractCount)
	if u.TotalPopulation != nil {
		fmt.Fprintf(out, "population: %d\n", *u.TotalPopulation)
	}
	if !u.ExposureAvailable {
		fmt.Fprintln(out, "exposure:   no pollutant data for this instant")
		return
	}
	fmt.Fprintf(out, "samples:    %d (mean %.2f)\n", u.SampleCount, u.AverageConcentration)

	// Bands print in threshold order.
	for _, label := range exposure.DefaultBins().Labels() {
		if pop, ok := u.Distribution[label]; ok && pop > 0 {
			fmt.Fprintf(out, "  %-30s %d\n", label, pop)
		}
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "simulation date (YYYY-MM-DD)")
	analyzeCmd.Flags().IntVar(&analyzeHour, "hour", 0, "simulation hour (0-23)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the result as JSON")
	_ = analyzeCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(analyzeCmd)
}
