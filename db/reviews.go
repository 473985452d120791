package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	m "github.com/AleBustamante/moviereviews/models"
)

type reviewRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	MovieID        string         `db:"movie_id"`
	Rating         int            `db:"rating"`
	Text           string         `db:"text"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
	Username       sql.NullString `db:"username"`
	ProfilePicture sql.NullString `db:"profile_picture"`
	MovieTitle     sql.NullString `db:"movie_title"`
	MoviePoster    sql.NullString `db:"movie_poster"`
}

func (r reviewRow) toReview(withMovie bool) m.Review {
	review := m.Review{
		ID:        r.ID,
		MovieID:   r.MovieID,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: fromStamp(r.CreatedAt),
		UpdatedAt: fromStamp(r.UpdatedAt),
		User: m.ReviewAuthor{
			ID:       r.UserID,
			Username: r.Username.String,
		},
	}
	if r.ProfilePicture.Valid {
		pic := r.ProfilePicture.String
		review.User.ProfilePicture = &pic
	}
	if withMovie {
		review.Movie = &m.MovieRef{ID: r.MovieID, Title: r.MovieTitle.String, PosterURL: r.MoviePoster.String}
	}
	return review
}

// Reviews from accounts that no longer exist still list, with an empty author.
const reviewSelect = `SELECT r.id, r.user_id, r.movie_id, r.rating, r.text, r.created_at, r.updated_at,
	u.username, u.profile_picture, mv.title AS movie_title, mv.poster_url AS movie_poster
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN movies mv ON mv.id = r.movie_id`

// AddReview stores the caller's review and republishes the movie's aggregate
// rating in the same transaction.
//
// The first statement is a no-op write on the movie row: it proves the movie
// exists and takes the row (postgres) or database (sqlite) write lock, so
// writers for one movie are serialised and the recomputed mean always covers
// every committed review. The (user, movie) pair is guarded by a unique index.
func (s *DBService) AddReview(ctx context.Context, movieID, userID string, rating int, text string) (m.Review, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return m.Review{}, err
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE movies SET review_count = review_count WHERE id = ?`), movieID)
	if err != nil {
		return m.Review{}, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return m.Review{}, err
	} else if n == 0 {
		return m.Review{}, fmt.Errorf("movie %s: %w", movieID, ErrNotFound)
	}

	id := uuid.NewString()
	now := s.stamp()
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO reviews (id, user_id, movie_id, rating, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`), id, userID, movieID, rating, text, now, now)
	if isUniqueViolation(err) {
		return m.Review{}, fmt.Errorf("review by %s for movie %s: %w", userID, movieID, ErrConflict)
	}
	if err != nil {
		return m.Review{}, err
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE movies SET
		average_rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE movie_id = ?),
		review_count = (SELECT COUNT(*) FROM reviews WHERE movie_id = ?)
		WHERE id = ?`), movieID, movieID, movieID)
	if err != nil {
		return m.Review{}, err
	}

	if err := tx.Commit(); err != nil {
		return m.Review{}, err
	}

	var row reviewRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(reviewSelect+` WHERE r.id = ?`), id); err != nil {
		return m.Review{}, err
	}
	return row.toReview(false), nil
}

// ListReviewsForMovie returns the movie's reviews, newest first.
func (s *DBService) ListReviewsForMovie(ctx context.Context, movieID string) ([]m.Review, error) {
	var rows []reviewRow
	query := s.db.Rebind(reviewSelect + ` WHERE r.movie_id = ? ORDER BY r.created_at DESC, r.id DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, movieID); err != nil {
		return nil, err
	}

	reviews := make([]m.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.toReview(false))
	}
	return reviews, nil
}
