package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	m "github.com/AleBustamante/moviereviews/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

type movieRow struct {
	ID            string  `db:"id"`
	Title         string  `db:"title"`
	ReleaseYear   int     `db:"release_year"`
	Director      string  `db:"director"`
	CastList      string  `db:"cast_list"`
	Synopsis      string  `db:"synopsis"`
	PosterURL     string  `db:"poster_url"`
	AverageRating float64 `db:"average_rating"`
	ReviewCount   int     `db:"review_count"`
	CreatedAt     int64   `db:"created_at"`
}

func (r movieRow) toMovie() (m.Movie, error) {
	movie := m.Movie{
		ID:            r.ID,
		Title:         r.Title,
		ReleaseYear:   r.ReleaseYear,
		Director:      r.Director,
		Synopsis:      r.Synopsis,
		PosterURL:     r.PosterURL,
		AverageRating: r.AverageRating,
		ReviewCount:   r.ReviewCount,
		CreatedAt:     fromStamp(r.CreatedAt),
		Genre:         []string{},
		Cast:          []string{},
	}
	if r.CastList != "" {
		if err := json.Unmarshal([]byte(r.CastList), &movie.Cast); err != nil {
			return m.Movie{}, fmt.Errorf("movie %s: decode cast: %w", r.ID, err)
		}
	}
	return movie, nil
}

const movieColumns = `m.id, m.title, m.release_year, m.director, m.cast_list, m.synopsis,
	m.poster_url, m.average_rating, m.review_count, m.created_at`

// NormalizeFilter applies the paging defaults and the page size cap.
func NormalizeFilter(f m.MovieFilter) m.MovieFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func buildMovieWhere(f m.MovieFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if len(f.Genres) > 0 {
		clauses = append(clauses, `m.id IN (SELECT mg.movie_id FROM movie_genres mg WHERE mg.genre IN (?))`)
		args = append(args, f.Genres)
	}
	if f.Year != 0 {
		clauses = append(clauses, `m.release_year = ?`)
		args = append(args, f.Year)
	}
	if f.MinRating != nil {
		clauses = append(clauses, `m.average_rating >= ?`)
		args = append(args, *f.MinRating)
	}
	if f.Title != "" {
		clauses = append(clauses, `m.title_search LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Title))+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListMovies returns one page of the filtered catalog plus the total match count.
func (s *DBService) ListMovies(ctx context.Context, filter m.MovieFilter) (m.MoviePage, error) {
	filter = NormalizeFilter(filter)
	where, args := buildMovieWhere(filter)

	countQuery, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM movies m`+where, args...)
	if err != nil {
		return m.MoviePage{}, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return m.MoviePage{}, err
	}

	order := ` ORDER BY m.created_at DESC, m.id DESC`
	if filter.Sort == m.SortRating {
		order = ` ORDER BY m.average_rating DESC, m.created_at DESC, m.id DESC`
	}
	listQuery, listArgs, err := sqlx.In(`SELECT `+movieColumns+` FROM movies m`+where+order+` LIMIT ? OFFSET ?`,
		append(args, filter.Limit, (filter.Page-1)*filter.Limit)...)
	if err != nil {
		return m.MoviePage{}, err
	}
	var rows []movieRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(listQuery), listArgs...); err != nil {
		return m.MoviePage{}, err
	}

	movies, err := s.withGenres(ctx, rows)
	if err != nil {
		return m.MoviePage{}, err
	}

	return m.MoviePage{
		Data:  movies,
		Total: total,
		Page:  filter.Page,
		Pages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *DBService) FindMovieByID(ctx context.Context, id string) (m.Movie, error) {
	var row movieRow
	query := s.db.Rebind(`SELECT ` + movieColumns + ` FROM movies m WHERE m.id = ?`)
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m.Movie{}, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return m.Movie{}, err
	}

	movies, err := s.withGenres(ctx, []movieRow{row})
	if err != nil {
		return m.Movie{}, err
	}
	return movies[0], nil
}

// CreateMovie stores a new catalog entry. Rating aggregates always start at zero.
func (s *DBService) CreateMovie(ctx context.Context, movie m.Movie) (m.Movie, error) {
	movie.ID = uuid.NewString()
	movie.AverageRating = 0
	movie.ReviewCount = 0
	movie.Genre = uniqueStrings(movie.Genre)
	if movie.Cast == nil {
		movie.Cast = []string{}
	}
	created := s.stamp()
	movie.CreatedAt = fromStamp(created)

	castJSON, err := json.Marshal(movie.Cast)
	if err != nil {
		return m.Movie{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return m.Movie{}, err
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO movies
		(id, title, title_search, release_year, director, cast_list, synopsis, poster_url, average_rating, review_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`),
		movie.ID, movie.Title, strings.ToLower(movie.Title), movie.ReleaseYear, movie.Director, string(castJSON),
		movie.Synopsis, movie.PosterURL, created)
	if err != nil {
		return m.Movie{}, err
	}

	for i, genre := range movie.Genre {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO movie_genres (movie_id, genre, position) VALUES (?, ?, ?)`),
			movie.ID, genre, i)
		if err != nil {
			return m.Movie{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return m.Movie{}, err
	}
	return movie, nil
}

// withGenres converts rows to movies and attaches their genre tags with one query.
func (s *DBService) withGenres(ctx context.Context, rows []movieRow) ([]m.Movie, error) {
	movies := make([]m.Movie, 0, len(rows))
	if len(rows) == 0 {
		return movies, nil
	}

	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		movie, err := r.toMovie()
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
		ids = append(ids, r.ID)
		index[r.ID] = i
	}

	query, args, err := sqlx.In(`SELECT movie_id, genre FROM movie_genres WHERE movie_id IN (?) ORDER BY movie_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var genres []struct {
		MovieID string `db:"movie_id"`
		Genre   string `db:"genre"`
	}
	if err := s.db.SelectContext(ctx, &genres, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, g := range genres {
		i := index[g.MovieID]
		movies[i].Genre = append(movies[i].Genre, g.Genre)
	}
	return movies, nil
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
