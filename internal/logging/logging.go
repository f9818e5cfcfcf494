package logging

import (
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}

	level := log.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := log.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	logger.SetLevel(level)
}

// Component returns a logger entry tagged for one part of the system
// (engine, reconcile, kie, worker, ...).
func Component(name string) *log.Entry {
	return logger.WithField("component", name)
}
