package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleBustamante/moviereviews/auth"
	"github.com/AleBustamante/moviereviews/config"
	"github.com/AleBustamante/moviereviews/db"
	"github.com/AleBustamante/moviereviews/logging"
	m "github.com/AleBustamante/moviereviews/models"
	api "github.com/AleBustamante/moviereviews/routes"
)

var dbSeq int64

// newServer serves a real API backed by a fresh in-memory SQLite database.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:client_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	conn, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	store := db.NewDBServiceWithDB(conn)
	require.NoError(t, store.Migrate())

	a := api.NewAPI(store, config.StaticConfig{JWTSecret: "client-test-secret"},
		api.WithLogger(logging.New("panic", "text", io.Discard)),
		api.WithAdminPolicy(auth.NewAdminPolicy("letmein", nil)),
		api.WithUploadDir(t.TempDir()),
	)
	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, srv *httptest.Server, username, adminCode string) (*Client, m.User) {
	t.Helper()
	c := New(Config{BaseURL: srv.URL})
	resp, err := c.Register(context.Background(), RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "secret1",
		AdminCode: adminCode,
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c, resp.User
}

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
	assert.Equal(t, message, apiErr.Message)
}

func TestReviewScenario(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	alice, aliceUser := register(t, srv, "alice", "")
	boss, bossUser := register(t, srv, "boss", "letmein")
	assert.Equal(t, m.RoleUser, aliceUser.Role)
	assert.Equal(t, m.RoleAdmin, bossUser.Role)

	movie, err := boss.CreateMovie(ctx, CreateMovieRequest{Title: "Heat", Genre: []string{"Crime"}, ReleaseYear: 1995})
	require.NoError(t, err)
	assert.Zero(t, movie.ReviewCount)

	_, err = alice.CreateMovie(ctx, CreateMovieRequest{Title: "Not allowed"})
	requireAPIError(t, err, http.StatusForbidden, "Admin only")

	added, err := alice.AddReview(ctx, movie.ID, 4, "Tense")
	require.NoError(t, err)
	assert.Equal(t, "Review added successfully", added.Message)
	assert.Equal(t, "alice", added.Review.User.Username)

	detail, err := alice.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, detail.Movie.AverageRating)
	assert.Equal(t, 1, detail.Movie.ReviewCount)
	require.Len(t, detail.Reviews, 1)

	_, err = alice.AddReview(ctx, movie.ID, 2, "changed my mind")
	requireAPIError(t, err, http.StatusBadRequest, "You already reviewed this movie")

	detail, err = alice.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Movie.ReviewCount, "A rejected review must not change the aggregate")

	_, err = boss.AddReview(ctx, movie.ID, 5, "")
	require.NoError(t, err)
	reviews, err := alice.ListReviews(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	detail, err = alice.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, detail.Movie.AverageRating)
	assert.Equal(t, 2, detail.Movie.ReviewCount)
}

func TestDuplicateRegistration(t *testing.T) {
	srv := newServer(t)
	register(t, srv, "alice", "")

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Register(context.Background(), RegisterRequest{
		Username: "alice2",
		Email:    "ALICE@example.com",
		Password: "secret1",
	})
	requireAPIError(t, err, http.StatusBadRequest, "Email already registered")
	assert.Empty(t, c.Token())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	register(t, srv, "alice", "")

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Login(ctx, "alice@example.com", "wrong-password")
	requireAPIError(t, err, http.StatusBadRequest, "Invalid credentials")

	resp, err := c.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, resp.Token, c.Token())

	anonymous := New(Config{BaseURL: srv.URL})
	_, err = anonymous.AddReview(ctx, "whatever", 3, "")
	requireAPIError(t, err, http.StatusUnauthorized, "No token provided")
}

func TestPaginationOverHTTP(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	boss, _ := register(t, srv, "boss", "letmein")

	for i := 1; i <= 12; i++ {
		_, err := boss.CreateMovie(ctx, CreateMovieRequest{Title: fmt.Sprintf("Movie %02d", i)})
		require.NoError(t, err)
	}

	page, err := boss.ListMovies(ctx, m.MovieFilter{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.Pages)

	page, err = boss.ListMovies(ctx, m.MovieFilter{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	page, err = boss.ListMovies(ctx, m.MovieFilter{Title: "movie 1"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total, "Movie 10, 11 and 12")
}

func TestWatchlistAndProfileAccess(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	alice, aliceUser := register(t, srv, "alice", "")
	boss, _ := register(t, srv, "boss", "letmein")
	eve, _ := register(t, srv, "eve", "")

	movie, err := boss.CreateMovie(ctx, CreateMovieRequest{Title: "Alien"})
	require.NoError(t, err)

	entry, err := alice.AddToWatchlist(ctx, aliceUser.ID, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, movie.ID, entry.MovieID)

	_, err = alice.AddToWatchlist(ctx, aliceUser.ID, movie.ID)
	requireAPIError(t, err, http.StatusBadRequest, "Already in watchlist")

	_, err = alice.AddToWatchlist(ctx, aliceUser.ID, "missing")
	requireAPIError(t, err, http.StatusNotFound, "Movie not found")

	movies, err := alice.GetWatchlist(ctx, aliceUser.ID)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Alien", movies[0].Title)

	_, err = eve.GetWatchlist(ctx, aliceUser.ID)
	requireAPIError(t, err, http.StatusForbidden, "Forbidden")
	_, err = eve.GetProfile(ctx, aliceUser.ID)
	requireAPIError(t, err, http.StatusForbidden, "Forbidden")

	profile, err := boss.GetProfile(ctx, aliceUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)

	require.NoError(t, alice.RemoveFromWatchlist(ctx, aliceUser.ID, movie.ID))
	require.NoError(t, alice.RemoveFromWatchlist(ctx, aliceUser.ID, movie.ID), "Removing twice succeeds")
	movies, err = alice.GetWatchlist(ctx, aliceUser.ID)
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	alice, aliceUser := register(t, srv, "alice", "")

	resp, err := alice.UpdateProfile(ctx, aliceUser.ID, UpdateProfileRequest{Username: "alicia"})
	require.NoError(t, err)
	assert.Equal(t, "Updated Successfully", resp.Message)
	assert.Equal(t, "alicia", resp.User.Username)

	resp, err = alice.UpdateProfile(ctx, aliceUser.ID, UpdateProfileRequest{
		PictureName: "me.png",
		Picture:     bytes.NewReader([]byte("not really a png")),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User.ProfilePicture)
	assert.True(t, strings.HasPrefix(*resp.User.ProfilePicture, srv.URL+"/uploads/"))

	got, err := http.Get(*resp.User.ProfilePicture)
	require.NoError(t, err)
	defer got.Body.Close()
	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "not really a png", string(body))

	picture := *resp.User.ProfilePicture
	resp, err = alice.UpdateProfile(ctx, aliceUser.ID, UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "alicia", resp.User.Username)
	require.NotNil(t, resp.User.ProfilePicture)
	assert.Equal(t, picture, *resp.User.ProfilePicture)
}

func TestAPIErrorFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/"})
	c.SetToken("tok")
	_, err := c.ListReviews(context.Background(), "m1")
	requireAPIError(t, err, http.StatusBadGateway, "upstream exploded")
	assert.EqualError(t, err, "api error 502: upstream exploded")
}
