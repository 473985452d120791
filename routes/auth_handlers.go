package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleBustamante/moviereviews/db"
	m "github.com/AleBustamante/moviereviews/models"
)

type registerRequest struct {
	Username  string `json:"username" form:"username" binding:"required,min=2,max=30"`
	Email     string `json:"email" form:"email" binding:"required,email"`
	Password  string `json:"password" form:"password" binding:"required,min=6"`
	AdminCode string `json:"adminCode" form:"adminCode"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// handleRegister crea una cuenta y devuelve un token para ella
func (a *API) handleRegister(c *gin.Context) {
	limitUploadBody(c)
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
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

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := a.DB.InsertNewUser(c.Request.Context(), m.User{
		Username:       strings.TrimSpace(req.Username),
		Email:          email,
		Password:       req.Password,
		Role:           a.Admins.RoleFor(email, req.AdminCode),
		ProfilePicture: picture,
	})
	if err != nil {
		a.discardPicture(path)
		if errors.Is(err, db.ErrConflict) {
			respondMessage(c, http.StatusBadRequest, "Email already registered")
			return
		}
		a.respondServerError(c, err)
		return
	}
	a.Metrics.UserRegistered(user.Role)

	token, err := a.Tokens.Issue(user)
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// handleLogin valida las credenciales y devuelve un token
func (a *API) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := a.DB.ValidateUser(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, db.ErrInvalidCredentials) {
		respondMessage(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		a.respondServerError(c, err)
		return
	}

	token, err := a.Tokens.Issue(user)
	if err != nil {
		a.respondServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
