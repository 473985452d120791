package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	pictureField   = "profilePicture"
	maxPictureSize = 5 << 20
	// maxUploadBody leaves room for the other form fields around the picture.
	maxUploadBody = maxPictureSize + 1<<20
)

var (
	errPictureTooLarge = errors.New("profilePicture must be at most 5MB")
	errPictureType     = errors.New("profilePicture must be a jpg, png, gif or webp image")
)

var pictureExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// limitUploadBody caps the request body before anything parses it.
func limitUploadBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	// multipart does not always wrap the reader's error
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// savePicture stores the request's profilePicture file, if any, and returns
// its public URL along with the path on disk.
func (a *API) savePicture(c *gin.Context) (url *string, path string, err error) {
	if !isMultipart(c) {
		return nil, "", nil
	}
	file, err := c.FormFile(pictureField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if isBodyTooLarge(err) {
		return nil, "", errPictureTooLarge
	}
	if err != nil {
		return nil, "", err
	}
	if file.Size > maxPictureSize {
		return nil, "", errPictureTooLarge
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !pictureExtensions[ext] {
		return nil, "", errPictureType
	}

	if err := os.MkdirAll(a.UploadDir, 0o755); err != nil {
		return nil, "", err
	}
	name := uuid.NewString() + ext
	path = filepath.Join(a.UploadDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, "", err
	}

	public := fmt.Sprintf("%s://%s/uploads/%s", requestScheme(c), c.Request.Host, name)
	return &public, path, nil
}

func isPictureRejection(err error) bool {
	return errors.Is(err, errPictureTooLarge) || errors.Is(err, errPictureType)
}

func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

// discardPicture removes a stored upload whose owning write failed.
func (a *API) discardPicture(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.Logger.WithError(err).WithField("file", path).Warn("could not remove orphaned upload")
	}
}
