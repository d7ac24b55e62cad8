package census

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSource reads the population table from a local SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLiteSource(dsn string) (*SQLiteSource, error) {
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "census: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, eris.Wrapf(err, "census: sqlite exec %s", pragma)
		}
	}
	return &SQLiteSource{db: database}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tract_population (
	geoid       TEXT PRIMARY KEY,
	population  INTEGER NOT NULL DEFAULT 0,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	tract_ce    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tract_population_state ON tract_population (state_fips);
`

// Migrate creates the population table if missing.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "census: sqlite migrate")
	}
	return nil
}

// FetchAll loads the full population table.
func (s *SQLiteSource) FetchAll(ctx context.Context) (map[string]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geoid, population, state_fips, county_fips, tract_ce FROM tract_population`)
	if err != nil {
		return nil, eris.Wrap(err, "census: sqlite query population table")
	}
	defer rows.Close()

	table := make(map[string]Record)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.GEOID, &r.Population, &r.StateFIPS, &r.CountyFIPS, &r.TractCE); err != nil {
			return nil, eris.Wrap(err, "census: sqlite scan population row")
		}
		table[r.GEOID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "census: sqlite iterate population rows")
	}
	return table, nil
}

// Load replaces the population table contents in one transaction.
func (s *SQLiteSource) Load(ctx context.Context, records []Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "census: sqlite begin load")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tract_population`); err != nil {
		return 0, eris.Wrap(err, "census: sqlite clear population table")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tract_population (geoid, population, state_fips, county_fips, tract_ce) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "census: sqlite prepare insert")
	}
	defer stmt.Close()

	var n int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.GEOID, r.Population, r.StateFIPS, r.CountyFIPS, r.TractCE); err != nil {
			return 0, eris.Wrapf(err, "census: sqlite insert %s", r.GEOID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "census: sqlite commit load")
	}
	return n, nil
}

// Close closes the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
