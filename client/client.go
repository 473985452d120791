// Package client is a typed Go client for the movie reviews REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	m "github.com/AleBustamante/moviereviews/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to one API instance. After Register or Login it keeps the
// returned token and sends it on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// =============================================================================
// Request/Response Types
// =============================================================================

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AdminCode string `json:"adminCode,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  m.User `json:"user"`
}

type CreateMovieRequest struct {
	Title       string   `json:"title"`
	Genre       []string `json:"genre,omitempty"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
	Director    string   `json:"director,omitempty"`
	Cast        []string `json:"cast,omitempty"`
	Synopsis    string   `json:"synopsis,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
}

type MovieDetail struct {
	Movie   m.Movie    `json:"movie"`
	Reviews []m.Review `json:"reviews"`
}

type ReviewResponse struct {
	Review  m.Review `json:"review"`
	Message string   `json:"message"`
}

type UpdateProfileRequest struct {
	Username string
	// PictureName and Picture upload a new profile picture when Picture is set.
	PictureName string
	Picture     io.Reader
}

type UpdateProfileResponse struct {
	User    m.User `json:"user"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// API Methods
// =============================================================================

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var result AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

func (c *Client) ListMovies(ctx context.Context, filter m.MovieFilter) (*m.MoviePage, error) {
	q := url.Values{}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	for _, genre := range filter.Genres {
		q.Add("genre", genre)
	}
	if filter.Year != 0 {
		q.Set("year", strconv.Itoa(filter.Year))
	}
	if filter.Title != "" {
		q.Set("q", filter.Title)
	}
	if filter.MinRating != nil {
		q.Set("minRating", strconv.FormatFloat(*filter.MinRating, 'f', -1, 64))
	}
	if filter.Sort != "" {
		q.Set("sort", filter.Sort)
	}

	path := "/api/movies"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var result m.MoviePage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetMovie(ctx context.Context, id string) (*MovieDetail, error) {
	var result MovieDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/movies/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateMovie needs an admin token.
func (c *Client) CreateMovie(ctx context.Context, req CreateMovieRequest) (*m.Movie, error) {
	var result m.Movie
	if err := c.doJSON(ctx, http.MethodPost, "/api/movies", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AddReview(ctx context.Context, movieID string, rating int, text string) (*ReviewResponse, error) {
	body := map[string]interface{}{"rating": rating, "text": text}
	var result ReviewResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/reviews/"+url.PathEscape(movieID), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListReviews(ctx context.Context, movieID string) ([]m.Review, error) {
	var result []m.Review
	if err := c.doJSON(ctx, http.MethodGet, "/api/reviews/movie/"+url.PathEscape(movieID), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*m.UserProfile, error) {
	var result m.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateProfile sends JSON, or multipart when a picture is attached.
func (c *Client) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UpdateProfileResponse, error) {
	path := "/api/users/" + url.PathEscape(userID)
	var result UpdateProfileResponse

	if req.Picture == nil {
		body := map[string]string{}
		if req.Username != "" {
			body["username"] = req.Username
		}
		if err := c.doJSON(ctx, http.MethodPut, path, body, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if req.Username != "" {
		if err := writer.WriteField("username", req.Username); err != nil {
			return nil, fmt.Errorf("write field: %w", err)
		}
	}
	name := req.PictureName
	if name == "" {
		name = "picture.png"
	}
	part, err := writer.CreateFormFile("profilePicture", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Picture); err != nil {
		return nil, fmt.Errorf("copy picture: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	if err := c.do(ctx, http.MethodPut, path, writer.FormDataContentType(), &buf, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetWatchlist(ctx context.Context, userID string) ([]m.Movie, error) {
	var result []m.Movie
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/watchlist", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) AddToWatchlist(ctx context.Context, userID, movieID string) (*m.WatchlistEntry, error) {
	body := map[string]string{"movieId": movieID}
	var result m.WatchlistEntry
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/watchlist", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	path := "/api/users/" + url.PathEscape(userID) + "/watchlist/" + url.PathEscape(movieID)
	var result messageResponse
	return c.doJSON(ctx, http.MethodDelete, path, nil, &result)
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(ctx, method, path, "", nil, out)
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg messageResponse
		if json.Unmarshal(respBody, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
