package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleBustamante/moviereviews/db"
)

type updateUserRequest struct {
	Username string `json:"username" form:"username" binding:"omitempty,min=2,max=30"`
}

type addToWatchlistRequest struct {
	MovieID string `json:"movieId" form:"movieId"`
}

// handleGetUser devuelve el perfil con las reseñas del usuario
func (a *API) handleGetUser(c *gin.Context) {
	profile, err := a.DB.GetUserProfile(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// handleUpdateUser actualiza el nombre de usuario y/o la foto de perfil; sin
// campos devuelve el usuario sin cambios
func (a *API) handleUpdateUser(c *gin.Context) {
	limitUploadBody(c)
	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		if isBodyTooLarge(err) {
			respondMessage(c, http.StatusBadRequest, errPictureTooLarge.Error())
			return
		}
		respondBindError(c, err)
		return
	}

	picture, path, err := a.savePicture(c)
	if isPictureRejection(err) {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.respondServerError(c, err)
		return
	}

	user, err := a.DB.UpdateUser(c.Request.Context(), c.Param("id"), req.Username, picture)
	if err != nil {
		a.discardPicture(path)
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "User not found")
		return
	case err != nil:
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "message": "Updated Successfully"})
}

// handleGetWatchlist devuelve las películas guardadas por el usuario
func (a *API) handleGetWatchlist(c *gin.Context) {
	movies, err := a.DB.GetUserWatchlist(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, movies)
}

// handleAddToWatchlist agrega una película a la lista del usuario
func (a *API) handleAddToWatchlist(c *gin.Context) {
	var req addToWatchlistRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}
	if req.MovieID == "" {
		respondMessage(c, http.StatusBadRequest, "Movie ID is required")
		return
	}

	entry, err := a.DB.AddToWatchlist(c.Request.Context(), c.Param("id"), req.MovieID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "Movie not found")
		return
	case errors.Is(err, db.ErrConflict):
		respondMessage(c, http.StatusBadRequest, "Already in watchlist")
		return
	case err != nil:
		a.respondServerError(c, err)
		return
	}

	a.Metrics.WatchlistAdded()
	c.JSON(http.StatusCreated, entry)
}

// handleRemoveFromWatchlist quita una película de la lista; quitar una que no
// está también responde 200
func (a *API) handleRemoveFromWatchlist(c *gin.Context) {
	if err := a.DB.RemoveFromWatchlist(c.Request.Context(), c.Param("id"), c.Param("movieId")); err != nil {
		a.respondServerError(c, err)
		return
	}
	a.Metrics.WatchlistRemoved()
	c.JSON(http.StatusOK, gin.H{"message": "Removed from watchlist"})
}
