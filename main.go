package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/AleBustamante/moviereviews/config"
	db "github.com/AleBustamante/moviereviews/db"
	"github.com/AleBustamante/moviereviews/logging"
	api "github.com/AleBustamante/moviereviews/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text", os.Stderr).WithError(err).Fatal("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	default:
		logger.WithField("mode", cfg.GinMode).Warn("unknown GIN_MODE, using release")
		gin.SetMode(gin.ReleaseMode)
	}

	dbService, err := db.NewDBService(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.DBDriver).Fatal("could not open database")
	}
	defer dbService.Close()

	if err := dbService.Migrate(); err != nil {
		logger.WithError(err).Fatal("could not migrate database")
	}

	if err := api.ExposeAPI(dbService, cfg, logger); err != nil {
		logger.WithError(err).Error("server stopped")
		dbService.Close()
		os.Exit(1)
	}
	logger.Info("server stopped")
}
