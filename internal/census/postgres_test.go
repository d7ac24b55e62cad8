package census

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSource_FetchAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"geoid", "population", "state_fips", "county_fips", "tract_ce"}).
		AddRow("06075010100", int64(1000), "06", "075", "010100").
		AddRow("06075010200", int64(2500), "06", "075", "010200")
	mock.ExpectQuery(`SELECT geoid, population, state_fips, county_fips, tract_ce FROM tract_population`).
		WillReturnRows(rows)

	src := NewPostgresSourceFromPool(mock)
	table, err := src.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, table, 2)
	assert.Equal(t, int64(1000), table["06075010100"].Population)
	assert.Equal(t, "075", table["06075010200"].CountyFIPS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_FetchAllError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT geoid, population`).
		WillReturnError(eris.New("connection refused"))

	src := NewPostgresSourceFromPool(mock)
	_, err = src.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestPostgresSource_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`TRUNCATE tract_population`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"tract_population"}, popColumns).
		WillReturnResult(2)

	src := NewPostgresSourceFromPool(mock)
	n, err := src.Load(context.Background(), []Record{
		{GEOID: "06075010100", Population: 1000, StateFIPS: "06", CountyFIPS: "075", TractCE: "010100"},
		{GEOID: "06075010200", Population: 2500, StateFIPS: "06", CountyFIPS: "075", TractCE: "010200"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tract_population`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	src := NewPostgresSourceFromPool(mock)
	assert.NoError(t, src.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
