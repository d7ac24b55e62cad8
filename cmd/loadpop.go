package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/census"
)

var loadpopCmd = &cobra.Command{
	Use:   "loadpop <population.csv>",
	Short: "Load tract population data into the configured store",
	Long:  "Reads a CSV with geoid and population columns and replaces the population table in the configured postgres or sqlite store. Rows with malformed GEOIDs are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("loadpop"); err != nil {
			return err
		}

		records, skipped, err := readPopulationCSV(args[0])
		if err != nil {
			return err
		}
		if skipped > 0 {
			zap.L().Warn("skipped malformed population rows", zap.Int("skipped", skipped))
		}

		src, closeSource, err := initSource(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSource()

		if err := src.Migrate(cmd.Context()); err != nil {
			return err
		}
		n, err := src.Load(cmd.Context(), records)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d tracts into %s store\n", n, cfg.Store.Driver)
		return nil
	},
}

// readPopulationCSV parses geoid/population rows. The header row names the
// columns; order does not matter.
func readPopulationCSV(path string) ([]census.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "open population file %s", path)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "read population header")
	}
	geoidIdx, popIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "geoid":
			geoidIdx = i
		case "population":
			popIdx = i
		}
	}
	if geoidIdx < 0 || popIdx < 0 {
		return nil, 0, eris.New("population file needs geoid and population columns")
	}

	var records []census.Record
	var skipped int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, eris.Wrap(err, "read population row")
		}
		if len(row) <= geoidIdx || len(row) <= popIdx {
			skipped++
			continue
		}

		geoid := strings.TrimSpace(row[geoidIdx])
		pop, popErr := strconv.ParseInt(strings.TrimSpace(row[popIdx]), 10, 64)
		if !census.ValidGEOID(geoid) || popErr != nil || pop < 0 {
			skipped++
			continue
		}

		records = append(records, census.Record{
			GEOID:      geoid,
			Population: pop,
			StateFIPS:  geoid[:2],
			CountyFIPS: geoid[2:5],
			TractCE:    geoid[5:],
		})
	}

	return records, skipped, nil
}

func init() {
	rootCmd.AddCommand(loadpopCmd)
}
