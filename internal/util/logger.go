package util

import (
	"io"
	"os"
	"path/filepath"

	"linkup/internal/config"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger from config. When
// logDir is writable, output is also appended to logDir/app.log.
func SetupLogger(cfg *config.Config, logDir string) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, f))
}
