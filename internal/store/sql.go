package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/benny59/architetti/internal/model"
)

const recordColumns = "id, title, date, category, summary, url, checksum"

// SQLStore keeps each source in its own records_<nickname> table with an
// index on checksum, plus a shared config(key, value) table.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open connection. The dialect is taken from the
// connection's driver name.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) idColumn() string {
	if s.db.DriverName() == "sqlite3" {
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "id BIGSERIAL PRIMARY KEY"
}

// EnsurePartitions creates the configuration table and one records table per
// nickname. Safe to call on every start.
func (s *SQLStore) EnsurePartitions(ctx context.Context, nicknames []string) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS config (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	); err != nil {
		return fmt.Errorf("create config table: %w", err)
	}

	for _, nick := range nicknames {
		table, err := tableName(nick)
		if err != nil {
			return err
		}

		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s,
			title TEXT NOT NULL,
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			summary TEXT NOT NULL,
			url TEXT NOT NULL,
			checksum TEXT NOT NULL
		)`, table, s.idColumn())
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}

		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_checksum_%s ON %s (checksum)`, nick, table)
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}

	return nil
}

// Exists reports whether checksum was already stored for nickname.
func (s *SQLStore) Exists(ctx context.Context, nickname, checksum string) (bool, error) {
	table, err := tableName(nickname)
	if err != nil {
		return false, err
	}

	var n int
	query := s.db.Rebind(fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE checksum = ?`, table))
	if err := s.db.GetContext(ctx, &n, query, checksum); err != nil {
		return false, fmt.Errorf("exists %s: %w", table, err)
	}
	return n > 0, nil
}

// Insert appends rec to the nickname partition.
func (s *SQLStore) Insert(ctx context.Context, nickname string, rec model.Record) error {
	table, err := tableName(nickname)
	if err != nil {
		return err
	}

	query := s.db.Rebind(fmt.Sprintf(
		`INSERT INTO %s (title, date, category, summary, url, checksum) VALUES (?, ?, ?, ?, ?, ?)`, table))
	if _, err := s.db.ExecContext(ctx, query,
		rec.Title, rec.Date, rec.Category, rec.Summary, rec.URL, rec.Checksum,
	); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// Records returns the newest rows first. A non-positive limit returns all rows.
func (s *SQLStore) Records(ctx context.Context, nickname string, limit int) ([]model.Record, error) {
	table, err := tableName(nickname)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id DESC`, recordColumns, table)
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	records := []model.Record{}
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return records, nil
}

// Count returns the number of stored rows for nickname.
func (s *SQLStore) Count(ctx context.Context, nickname string) (int, error) {
	table, err := tableName(nickname)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(1) FROM %s`, table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// ConfigValue reads one key from the configuration partition.
func (s *SQLStore) ConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM config WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrConfigKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("read config %s: %w", key, err)
	}
	return value, nil
}

// SetConfigValue upserts one key in the configuration partition.
func (s *SQLStore) SetConfigValue(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("write config %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
