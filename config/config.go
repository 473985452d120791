package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ConfigService is what the HTTP layer needs to know about configuration.
type ConfigService interface {
	GetJWTSecret() string
	GetServerPort() string
	GetAllowedOrigins() []string
}

type Config struct {
	Port           string `env:"PORT,default=8080"`
	JWTSecret      string `env:"JWT_SECRET"`
	TokenExpiresIn string `env:"TOKEN_EXPIRES_IN,default=7d"`
	AdminCode      string `env:"ADMIN_CODE"`
	AdminEmails    string `env:"ADMIN_EMAILS"`

	DBDriver       string `env:"DB_DRIVER,default=sqlite3"`
	DBURL          string `env:"DB_URL"`
	TursoDBName    string `env:"TURSO_DB_NAME"`
	TursoAuthToken string `env:"TURSO_AUTH_TOKEN"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	UploadDir          string `env:"UPLOAD_DIR,default=uploads"`
	RateLimitRPS       int    `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST,default=40"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
	GinMode   string `env:"GIN_MODE,default=release"`
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DBURL == "" {
		cfg.DBURL = cfg.defaultDBURL()
	}
	return cfg, nil
}

func (c *Config) defaultDBURL() string {
	switch c.DBDriver {
	case "libsql":
		return "libsql://" + c.TursoDBName + ".turso.io?authToken=" + c.TursoAuthToken
	case "postgres":
		return "postgres://localhost:5432/moviereviews?sslmode=disable"
	default:
		return "file:moviereviews.db?_busy_timeout=5000"
	}
}

func (c *Config) GetJWTSecret() string {
	return c.JWTSecret
}

func (c *Config) GetServerPort() string {
	return c.Port
}

func (c *Config) GetAllowedOrigins() []string {
	return SplitCSV(c.CORSAllowedOrigins)
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// StaticConfig is a fixed ConfigService, handy for wiring an API by hand.
type StaticConfig struct {
	JWTSecret      string
	Port           string
	AllowedOrigins []string
}

func (s StaticConfig) GetJWTSecret() string        { return s.JWTSecret }
func (s StaticConfig) GetServerPort() string       { return s.Port }
func (s StaticConfig) GetAllowedOrigins() []string { return s.AllowedOrigins }
