package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkup/internal/app"
	"linkup/internal/config"
	"linkup/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		envFile     string
		logDir      string
		migrateOnly bool
	)
	flag.StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	flag.StringVar(&logDir, "log-dir", "/var/log/app", "directory for app.log (empty disables file logging)")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFile(envFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	util.SetupLogger(cfg, logDir)

	if migrateOnly {
		if err := migrate(cfg); err != nil {
			logrus.WithError(err).Fatal("Migration failed")
		}
		logrus.Info("Migrations applied")
		return
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router, cleanup, err := app.NewRouter(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize server")
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
}

func migrate(cfg *config.Config) error {
	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return app.MigrateSchema(db, cfg)
}
