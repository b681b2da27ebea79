package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.DBDSN == "" {
		logger.Fatal("TASKROOM_DB_DSN is not set. This project requires a Postgres DSN.")
	}
	if cfg.AccessTokenSecret == "" {
		logger.Fatal("TASKROOM_ACCESS_TOKEN_SECRET is not set.")
	}

	db, err := openDB(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres database", zap.Error(err))
	}

	// Lightweight migrate command: `./taskroom migrate` runs AutoMigrate and
	// seeding then exits. Runs explicitly so it works even with
	// TASKROOM_DB_AUTO_MIGRATE=false; useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		migrateDB(db, logger)
		seedDB(db, cfg, logger)
		logger.Info("migration and seeding completed")
		return
	}

	app, err := newApp(cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	r := gin.Default()
	app.setupRoutes(r)

	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
