package census

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/airshed-group/exposure-cli/internal/db"
)

const popTable = "tract_population"

var popColumns = []string{"geoid", "population", "state_fips", "county_fips", "tract_ce"}

// PostgresSource reads the population table from PostgreSQL.
type PostgresSource struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgresSource connects a pgx pool to the given database.
func NewPostgresSource(ctx context.Context, connString string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "census: parse postgres config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "census: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "census: ping postgres")
	}

	return &PostgresSource{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresSourceFromPool wraps an existing pool (tests use pgxmock).
func NewPostgresSourceFromPool(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS tract_population (
	geoid       TEXT PRIMARY KEY,
	population  BIGINT NOT NULL DEFAULT 0,
	state_fips  TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	tract_ce    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tract_population_state ON tract_population (state_fips);
`

// Migrate creates the population table if missing.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "census: postgres migrate")
	}
	return nil
}

// FetchAll loads the full population table.
func (s *PostgresSource) FetchAll(ctx context.Context) (map[string]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT geoid, population, state_fips, county_fips, tract_ce FROM tract_population`)
	if err != nil {
		return nil, eris.Wrap(err, "census: query population table")
	}
	defer rows.Close()

	table := make(map[string]Record)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.GEOID, &r.Population, &r.StateFIPS, &r.CountyFIPS, &r.TractCE); err != nil {
			return nil, eris.Wrap(err, "census: scan population row")
		}
		table[r.GEOID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "census: iterate population rows")
	}
	return table, nil
}

// Load replaces the population table contents via COPY.
func (s *PostgresSource) Load(ctx context.Context, records []Record) (int64, error) {
	if _, err := s.pool.Exec(ctx, `TRUNCATE tract_population`); err != nil {
		return 0, eris.Wrap(err, "census: truncate population table")
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.GEOID, r.Population, r.StateFIPS, r.CountyFIPS, r.TractCE})
	}
	n, err := db.CopyFrom(ctx, s.pool, popTable, popColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "census: load population table")
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}
