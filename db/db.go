package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func init() {
	sqlx.BindDriver("libsql", sqlx.QUESTION)
}

// DBService is the document store behind the API: users, movies, reviews
// and watchlist entries.
type DBService struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// NewDBService opens and pings a connection for one of the supported drivers
// (sqlite3, libsql, postgres).
func NewDBService(driver, url string) (*DBService, error) {
	switch driver {
	case "sqlite3", "libsql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to reach db: %w", err)
	}
	return NewDBServiceWithDB(conn), nil
}

// NewDBServiceWithDB wraps an already opened handle.
func NewDBServiceWithDB(conn *sqlx.DB) *DBService {
	return &DBService{db: conn, driver: conn.DriverName(), now: time.Now}
}

func (s *DBService) Close() error {
	return s.db.Close()
}

func (s *DBService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate brings the schema up to date. It does not close the underlying handle.
func (s *DBService) Migrate() error {
	var (
		dir    string
		target database.Driver
		err    error
	)
	switch s.driver {
	case "postgres":
		dir = "migrations/postgres"
		target, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	default:
		dir = "migrations/sqlite"
		target, err = sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.driver, target)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *DBService) stamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromStamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// rollback is deferred after BeginTxx; it is a no-op once the tx committed.
func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}
