package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleBustamante/moviereviews/db"
	m "github.com/AleBustamante/moviereviews/models"
)

type createMovieRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Genre       []string `json:"genre"`
	ReleaseYear *int     `json:"releaseYear" binding:"omitempty,min=1878,max=3000"`
	Director    string   `json:"director" binding:"max=200"`
	Cast        []string `json:"cast"`
	Synopsis    string   `json:"synopsis" binding:"max=1000"`
	PosterURL   string   `json:"posterUrl" binding:"omitempty,url"`
}

// movieFilterFromQuery lee los filtros del catálogo. Página y límite inválidos
// quedan en cero y la capa de datos aplica los valores por defecto.
func movieFilterFromQuery(c *gin.Context) (m.MovieFilter, error) {
	filter := m.MovieFilter{
		Title: strings.TrimSpace(c.Query("q")),
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))

	for _, raw := range c.QueryArray("genre") {
		for _, genre := range strings.Split(raw, ",") {
			if genre = strings.TrimSpace(genre); genre != "" {
				filter.Genres = append(filter.Genres, genre)
			}
		}
	}

	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return m.MovieFilter{}, errors.New("year must be a number")
		}
		filter.Year = year
	}
	if raw := c.Query("minRating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil || minRating < 0 || minRating > 5 {
			return m.MovieFilter{}, errors.New("minRating must be a number between 0 and 5")
		}
		filter.MinRating = &minRating
	}
	if c.Query("sort") == m.SortRating {
		filter.Sort = m.SortRating
	}
	return filter, nil
}

// handleListMovies devuelve una página del catálogo
func (a *API) handleListMovies(c *gin.Context) {
	filter, err := movieFilterFromQuery(c)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := a.DB.ListMovies(c.Request.Context(), filter)
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleGetMovie devuelve la película junto con sus reseñas
func (a *API) handleGetMovie(c *gin.Context) {
	ctx := c.Request.Context()
	movie, err := a.DB.FindMovieByID(ctx, c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, "Movie not found")
		return
	}
	if err != nil {
		a.respondServerError(c, err)
		return
	}

	reviews, err := a.DB.ListReviewsForMovie(ctx, movie.ID)
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movie": movie, "reviews": reviews})
}

// handleCreateMovie agrega una película al catálogo (solo administradores)
func (a *API) handleCreateMovie(c *gin.Context) {
	var req createMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondMessage(c, http.StatusBadRequest, "title is required")
		return
	}

	movie := m.Movie{
		Title:     title,
		Genre:     req.Genre,
		Director:  strings.TrimSpace(req.Director),
		Cast:      req.Cast,
		Synopsis:  req.Synopsis,
		PosterURL: req.PosterURL,
	}
	if req.ReleaseYear != nil {
		movie.ReleaseYear = *req.ReleaseYear
	}

	created, err := a.DB.CreateMovie(c.Request.Context(), movie)
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
