package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/movies/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies/"+id, nil))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/movies/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestDomainCountersAndHandler(t *testing.T) {
	m := New()
	m.ReviewCreated()
	m.ReviewCreated()
	m.ReviewConflict()
	m.WatchlistAdded()
	m.WatchlistRemoved()
	m.UserRegistered("admin")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reviewsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewConflicts))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "moviereviews_reviews_created_total 2"))
	assert.True(t, strings.Contains(body, `moviereviews_users_registrations_total{role="admin"} 1`))
	assert.True(t, strings.Contains(body, `moviereviews_watchlist_changes_total{op="remove"} 1`))
}
