package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/hyper_pnl/internal/domain"
)

// SQLiteStore keeps the leaderboard's tracked users. Computed analytics are
// never stored.
type SQLiteStore struct {
	db *sql.DB
}

var _ domain.UserRegistry = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tracked_users (
			address TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			added_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_users_added ON tracked_users(added_at, address);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddTrackedUser inserts the user or updates the label of an existing one.
// The original added_at is kept so leaderboard order stays stable.
func (s *SQLiteStore) AddTrackedUser(ctx context.Context, user domain.TrackedUser) error {
	address := normalizeAddress(user.Address)
	if address == "" {
		return fmt.Errorf("%w: address is required", domain.ErrInvalidQuery)
	}
	addedAt := time.Now().UTC()
	if user.AddedAt != 0 {
		addedAt = time.UnixMilli(user.AddedAt).UTC()
	}

	query := `INSERT INTO tracked_users (address, label, added_at)
			  VALUES (?, ?, ?)
			  ON CONFLICT(address) DO UPDATE SET
			  label=excluded.label`
	_, err := s.db.ExecContext(ctx, query, address, user.Label, addedAt)
	return err
}

func (s *SQLiteStore) RemoveTrackedUser(ctx context.Context, address string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tracked_users WHERE address = ?", normalizeAddress(address))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotTracked, address)
	}
	return nil
}

// ListTrackedUsers returns users oldest first.
func (s *SQLiteStore) ListTrackedUsers(ctx context.Context) ([]domain.TrackedUser, error) {
	query := `SELECT address, label, added_at FROM tracked_users ORDER BY added_at, address`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.TrackedUser{}
	for rows.Next() {
		var (
			u       domain.TrackedUser
			addedAt time.Time
		)
		if err := rows.Scan(&u.Address, &u.Label, &addedAt); err != nil {
			return nil, err
		}
		u.AddedAt = addedAt.UnixMilli()
		users = append(users, u)
	}
	return users, rows.Err()
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
