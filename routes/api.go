package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AleBustamante/moviereviews/auth"
	"github.com/AleBustamante/moviereviews/config"
	"github.com/AleBustamante/moviereviews/logging"
	"github.com/AleBustamante/moviereviews/metrics"
	m "github.com/AleBustamante/moviereviews/models"
)

// DBService define la interfaz para las operaciones de base de datos
type DBService interface {
	InsertNewUser(ctx context.Context, user m.User) (m.User, error)
	ValidateUser(ctx context.Context, email, password string) (m.User, error)
	GetUserByID(ctx context.Context, userID string) (m.User, error)
	GetUserProfile(ctx context.Context, userID string) (m.UserProfile, error)
	UpdateUser(ctx context.Context, userID, username string, picture *string) (m.User, error)

	ListMovies(ctx context.Context, filter m.MovieFilter) (m.MoviePage, error)
	FindMovieByID(ctx context.Context, id string) (m.Movie, error)
	CreateMovie(ctx context.Context, movie m.Movie) (m.Movie, error)

	AddReview(ctx context.Context, movieID, userID string, rating int, text string) (m.Review, error)
	ListReviewsForMovie(ctx context.Context, movieID string) ([]m.Review, error)

	AddToWatchlist(ctx context.Context, userID, movieID string) (m.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, userID, movieID string) error
	GetUserWatchlist(ctx context.Context, userID string) ([]m.Movie, error)
}

// pinger is implemented by stores that can report their own health.
type pinger interface {
	Ping(ctx context.Context) error
}

// API encapsula las dependencias del servidor HTTP
type API struct {
	DB      DBService
	Config  config.ConfigService
	Router  *gin.Engine
	Tokens  *auth.TokenIssuer
	Admins  auth.AdminPolicy
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	// UploadDir is where profile pictures are written and served from.
	UploadDir string

	limiter *clientLimiter
}

const defaultOrigin = "http://localhost:3000"

// Option tweaks an API before its router is built.
type Option func(*API)

func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) { a.Tokens = auth.NewTokenIssuer(a.Config.GetJWTSecret(), ttl) }
}

func WithAdminPolicy(p auth.AdminPolicy) Option {
	return func(a *API) { a.Admins = p }
}

func WithLogger(l *logrus.Logger) Option {
	return func(a *API) { a.Logger = l }
}

func WithUploadDir(dir string) Option {
	return func(a *API) { a.UploadDir = dir }
}

// WithRateLimit enables per-client limiting. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *API) { a.limiter = newClientLimiter(rps, burst) }
}

// NewAPI crea una nueva instancia de API con sus dependencias
func NewAPI(db DBService, cfg config.ConfigService, opts ...Option) *API {
	api := &API{
		DB:        db,
		Config:    cfg,
		Logger:    logrus.StandardLogger(),
		Metrics:   metrics.New(),
		UploadDir: "uploads",
	}
	for _, opt := range opts {
		opt(api)
	}
	if api.Tokens == nil {
		api.Tokens = auth.NewTokenIssuer(cfg.GetJWTSecret(), auth.DefaultTokenTTL)
	}
	api.Router = api.setupRouter()
	return api
}

// CreateDefaultAPI crea una API con un ConfigService estático
func CreateDefaultAPI(dbService DBService, jwtSecret, port string, allowedOrigins []string) *API {
	cfg := config.StaticConfig{
		JWTSecret:      jwtSecret,
		Port:           port,
		AllowedOrigins: allowedOrigins,
	}
	return NewAPI(dbService, cfg)
}

// setupCORS configura CORS para la API
func (a *API) setupCORS() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{defaultOrigin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// setupRouter configura el router con middleware y rutas
func (a *API) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestLogger(a.Logger),
		a.Metrics.Middleware(),
		securityHeadersMiddleware(),
		cors.New(a.setupCORS()),
		a.rateLimitMiddleware(),
	)

	router.GET("/healthz", a.handleHealth)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	router.Static("/uploads", a.UploadDir)

	a.setupPublicRoutes(router)
	a.setupProtectedRoutes(router)
	return router
}

// setupPublicRoutes configura las rutas que no requieren autenticación
func (a *API) setupPublicRoutes(router *gin.Engine) {
	router.POST("/api/auth/register", a.handleRegister)
	router.POST("/api/auth/login", a.handleLogin)

	router.GET("/api/movies", a.handleListMovies)
	router.GET("/api/movies/:id", a.handleGetMovie)

	router.GET("/api/reviews/movie/:movieId", a.handleListReviews)
}

// setupProtectedRoutes configura las rutas que requieren token
func (a *API) setupProtectedRoutes(router *gin.Engine) {
	protected := router.Group("/api")
	protected.Use(a.authMiddleware())

	protected.POST("/movies", requireAdmin(), a.handleCreateMovie)
	protected.POST("/reviews/:movieId", a.handleAddReview)

	protected.GET("/users/:id", requireSelfOrAdmin(), a.handleGetUser)
	protected.PUT("/users/:id", requireSelf(), a.handleUpdateUser)

	protected.GET("/users/:id/watchlist", requireSelf(), a.handleGetWatchlist)
	protected.POST("/users/:id/watchlist", requireSelf(), a.handleAddToWatchlist)
	protected.DELETE("/users/:id/watchlist/:movieId", requireSelf(), a.handleRemoveFromWatchlist)
}

func (a *API) handleHealth(c *gin.Context) {
	if p, ok := a.DB.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			a.Logger.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run sirve la API hasta que ctx se cancela y luego drena las conexiones abiertas.
func (a *API) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.Config.GetServerPort(),
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// ExposeAPI construye la API a partir de la configuración cargada y la sirve
// hasta recibir SIGINT o SIGTERM.
func ExposeAPI(dbService DBService, cfg *config.Config, logger *logrus.Logger) error {
	ttl, err := auth.ParseTTL(cfg.TokenExpiresIn)
	if err != nil {
		return err
	}

	api := NewAPI(dbService, cfg,
		WithLogger(logger),
		WithTokenTTL(ttl),
		WithAdminPolicy(auth.NewAdminPolicy(cfg.AdminCode, config.SplitCSV(cfg.AdminEmails))),
		WithUploadDir(cfg.UploadDir),
		WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst),
	)
	if err := os.MkdirAll(api.UploadDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.Run(ctx)
}
