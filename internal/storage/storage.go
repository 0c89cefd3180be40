// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"movie_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// AddEntry inserts a watchlist entry. It reports false when the user
	// already has the (item, kind) pair saved.
	AddEntry(ctx context.Context, userID, itemID int64, kind model.MediaKind, title string) (bool, error)
	Exists(ctx context.Context, userID, itemID int64, kind model.MediaKind) (bool, error)
	ListEntries(ctx context.Context, userID int64) ([]model.WatchlistEntry, error)
	// RemoveEntry deletes the user's oldest entry matching itemID regardless
	// of kind. It reports whether a row was found.
	RemoveEntry(ctx context.Context, userID, itemID int64) (bool, error)

	AddSubscriber(ctx context.Context, chatID int64) error
	ListSubscribers(ctx context.Context) ([]int64, error)

	Close() error
}
