package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	m "github.com/AleBustamante/moviereviews/models"
)

// AddToWatchlist records (user, movie). A second add of the same pair fails with
// ErrConflict; the unique index makes that hold under concurrent requests too.
func (s *DBService) AddToWatchlist(ctx context.Context, userID, movieID string) (m.WatchlistEntry, error) {
	var exists int
	if err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM movies WHERE id = ?`), movieID); err != nil {
		return m.WatchlistEntry{}, err
	}
	if exists == 0 {
		return m.WatchlistEntry{}, fmt.Errorf("movie %s: %w", movieID, ErrNotFound)
	}

	entry := m.WatchlistEntry{
		ID:      uuid.NewString(),
		UserID:  userID,
		MovieID: movieID,
	}
	created := s.stamp()
	entry.CreatedAt = fromStamp(created)

	query := s.db.Rebind(`INSERT INTO watchlist (id, user_id, movie_id, created_at) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, entry.ID, userID, movieID, created)
	if isUniqueViolation(err) {
		return m.WatchlistEntry{}, fmt.Errorf("watchlist entry %s/%s: %w", userID, movieID, ErrConflict)
	}
	if err != nil {
		return m.WatchlistEntry{}, err
	}
	return entry, nil
}

// RemoveFromWatchlist deletes the pair if present. Removing a missing pair is not an error.
func (s *DBService) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	query := s.db.Rebind(`DELETE FROM watchlist WHERE user_id = ? AND movie_id = ?`)
	_, err := s.db.ExecContext(ctx, query, userID, movieID)
	return err
}

// GetUserWatchlist returns the watched movies themselves, in the order they were added.
func (s *DBService) GetUserWatchlist(ctx context.Context, userID string) ([]m.Movie, error) {
	var rows []movieRow
	query := s.db.Rebind(`SELECT ` + movieColumns + ` FROM watchlist w
		JOIN movies m ON m.id = w.movie_id
		WHERE w.user_id = ?
		ORDER BY w.created_at, w.id`)
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	return s.withGenres(ctx, rows)
}
