package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"movie_bot/internal/model"
	"movie_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddEntry inserts a watchlist entry. The unique (user, item, kind) index
// makes the insert a no-op for duplicates; the returned bool reports whether
// a row was actually written.
func (s *SQLite) AddEntry(ctx context.Context, userID, itemID int64, kind model.MediaKind, title string) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (user_id, item_id, item_type, title, added_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, itemID, string(kind), title, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert watchlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether the user has the (item, kind) pair on their watchlist.
func (s *SQLite) Exists(ctx context.Context, userID, itemID int64, kind model.MediaKind) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchlist WHERE user_id = ? AND item_id = ? AND item_type = ?`,
		userID, itemID, string(kind),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check watchlist entry: %w", err)
	}
	return count > 0, nil
}

// ListEntries returns the user's watchlist in insertion order.
func (s *SQLite) ListEntries(ctx context.Context, userID int64) ([]model.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, item_id, item_type, title, added_at
		 FROM watchlist WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.WatchlistEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RemoveEntry deletes the user's oldest watchlist row matching itemID.
// The lookup deliberately ignores the item kind: a movie and a show sharing
// a provider id are ambiguous under this operation.
func (s *SQLite) RemoveEntry(ctx context.Context, userID, itemID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM watchlist WHERE user_id = ? AND item_id = ? ORDER BY id LIMIT 1`,
		userID, itemID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find watchlist entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete watchlist entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// AddSubscriber records a chat for the weekly digest. Idempotent.
func (s *SQLite) AddSubscriber(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (chat_id) VALUES (?)`, chatID,
	)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// ListSubscribers returns every chat subscribed to the weekly digest.
func (s *SQLite) ListSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (model.WatchlistEntry, error) {
	var e model.WatchlistEntry
	var kindStr, addedStr string
	err := row.Scan(&e.ID, &e.UserID, &e.ItemID, &kindStr, &e.Title, &addedStr)
	if err != nil {
		return e, fmt.Errorf("scan watchlist entry: %w", err)
	}
	e.Kind = model.MediaKind(kindStr)
	e.AddedAt, _ = time.Parse(timeLayout, addedStr)
	return e, nil
}
