// Package logger configures the logrus logger shared by the binaries.
package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/config"
)

// New builds a logger from cfg. Unknown levels fall back to info.
func New(cfg config.Log) *log.Logger {
	return newWithOutput(cfg, os.Stdout)
}

func newWithOutput(cfg config.Log, out io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(out)

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return l
}
