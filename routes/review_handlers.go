package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleBustamante/moviereviews/db"
)

type addReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Text   string `json:"text" binding:"max=1000"`
}

// handleListReviews devuelve las reseñas de una película, la más reciente primero
func (a *API) handleListReviews(c *gin.Context) {
	reviews, err := a.DB.ListReviewsForMovie(c.Request.Context(), c.Param("movieId"))
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// handleAddReview guarda la reseña del usuario autenticado
func (a *API) handleAddReview(c *gin.Context) {
	var req addReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller := claimsFrom(c)
	review, err := a.DB.AddReview(c.Request.Context(), c.Param("movieId"), caller.ID, req.Rating, req.Text)
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "Movie not found")
		return
	case errors.Is(err, db.ErrConflict):
		a.Metrics.ReviewConflict()
		respondMessage(c, http.StatusBadRequest, "You already reviewed this movie")
		return
	case err != nil:
		a.respondServerError(c, err)
		return
	}

	a.Metrics.ReviewCreated()
	c.JSON(http.StatusCreated, gin.H{"review": review, "message": "Review added successfully"})
}
