package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/store"
)

func newMockStore(t *testing.T) (*store.SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return store.NewSQLStore(sqlx.NewDb(mockDB, "pgx")), mock
}

func newSQLiteStore(t *testing.T) *store.SQLStore {
	t.Helper()

	conn, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	s := store.NewSQLStore(conn)
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(title, checksum string) model.Record {
	return model.Record{
		Title:    title,
		Date:     "2024-05-01",
		Category: model.NotAvailable,
		Summary:  model.NotAvailable,
		URL:      model.URLNotAvailable,
		Checksum: checksum,
	}
}

// ── Statement shape (postgres dialect) ─────────────────────────────────────

func TestSQLStore_EnsurePartitions_Postgres(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS config`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records_demanio \(\s+id BIGSERIAL PRIMARY KEY`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_checksum_demanio ON records_demanio \(checksum\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsurePartitions(context.Background(), []string{"demanio"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Exists_UsesDollarPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM records_demanio WHERE checksum = \$1`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	found, err := s.Exists(context.Background(), "demanio", "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Insert(t *testing.T) {
	s, mock := newMockStore(t)
	r := rec("Concorso", "abc")

	mock.ExpectExec(`INSERT INTO records_demanio \(title, date, category, summary, url, checksum\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(r.Title, r.Date, r.Category, r.Summary, r.URL, r.Checksum).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Insert(context.Background(), "demanio", r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ConfigValue_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT value FROM config WHERE key = \$1`).
		WithArgs("TELEGRAM_BOT_TOKEN").
		WillReturnError(sql.ErrNoRows)

	_, err := s.ConfigValue(context.Background(), "TELEGRAM_BOT_TOKEN")
	assert.ErrorIs(t, err, store.ErrConfigKeyNotFound)
}

func TestSQLStore_RejectsUnsafeNickname(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS config`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.Exists(ctx, "x; DROP TABLE config", "abc")
	assert.ErrorIs(t, err, store.ErrInvalidPartition)

	err = s.Insert(ctx, "Demanio", rec("t", "c"))
	assert.ErrorIs(t, err, store.ErrInvalidPartition)

	err = s.EnsurePartitions(ctx, []string{"bad-name"})
	assert.ErrorIs(t, err, store.ErrInvalidPartition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ── SQLite behaviour ───────────────────────────────────────────────────────

func TestSQLStore_EnsurePartitions_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsurePartitions(ctx, []string{"a", "b"}))
	require.NoError(t, s.EnsurePartitions(ctx, []string{"a", "b"}))

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLStore_PartitionIsolation(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsurePartitions(ctx, []string{"a", "b"}))

	require.NoError(t, s.Insert(ctx, "a", rec("Concorso", "same")))

	inA, err := s.Exists(ctx, "a", "same")
	require.NoError(t, err)
	inB, err := s.Exists(ctx, "b", "same")
	require.NoError(t, err)

	assert.True(t, inA)
	assert.False(t, inB)
}

func TestSQLStore_RecordsNewestFirst(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsurePartitions(ctx, []string{"a"}))

	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, s.Insert(ctx, "a", rec(title, title)))
	}

	all, err := s.Records(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Title)
	assert.Equal(t, "one", all[2].Title)
	assert.NotZero(t, all[0].ID)

	limited, err := s.Records(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLStore_ConfigRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsurePartitions(ctx, nil))

	_, err := s.ConfigValue(ctx, "TELEGRAM_CHAT_ID")
	assert.ErrorIs(t, err, store.ErrConfigKeyNotFound)

	require.NoError(t, s.SetConfigValue(ctx, "TELEGRAM_CHAT_ID", "-1"))
	require.NoError(t, s.SetConfigValue(ctx, "TELEGRAM_CHAT_ID", "-2"))

	v, err := s.ConfigValue(ctx, "TELEGRAM_CHAT_ID")
	require.NoError(t, err)
	assert.Equal(t, "-2", v)
}
