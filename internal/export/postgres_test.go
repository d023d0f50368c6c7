package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	store, err := NewPostgresStoreWithPool(mock, PostgresConfig{RunID: "run-1"}, fixedClock{t: now}, zap.NewNop())
	require.NoError(t, err)
	return store, mock, now
}

func TestPostgresStoreUpsertsEveryRecord(t *testing.T) {
	t.Parallel()

	store, mock, now := newMockStore(t)
	records := sampleRecords()

	mock.ExpectExec("INSERT INTO yc_startups").
		WithArgs(
			"Acme",
			"W25",
			"Logistics APIs for launch day",
			[]string{"Jane Doe", "Bob Jones"},
			[]string{"https://www.linkedin.com/in/jane-doe", ""},
			"https://acme.example",
			"run-1",
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO yc_startups").
		WithArgs(
			"Beta",
			"",
			"",
			[]string{},
			[]string{},
			"",
			"run-1",
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Export(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock, _ := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS yc_startups").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreExportSurfacesDriverError(t *testing.T) {
	t.Parallel()

	store, mock, _ := newMockStore(t)

	boom := errors.New("boom")
	mock.ExpectExec("INSERT INTO yc_startups").WillReturnError(boom)

	err := store.Export(context.Background(), sampleRecords()[:1])
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), `upsert "Acme"`)
}

func TestNewPostgresStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStoreWithPool(mock, PostgresConfig{Table: "bad table;"}, fixedClock{t: time.Now()}, zap.NewNop())
	require.Error(t, err)

	_, err = NewPostgresStoreWithPool(nil, PostgresConfig{}, fixedClock{t: time.Now()}, zap.NewNop())
	require.Error(t, err)
}
