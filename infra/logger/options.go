package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select where and how loggers returned by New write.
type Options struct {
	// Level overrides LOG_LEVEL when set.
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
	// File redirects output from stdout to a size-rotated file.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var (
	optsMu  sync.RWMutex
	current Options
	output  io.Writer
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Configure applies o to every logger created afterwards. The returned
// closer releases the log file, if any.
func Configure(o Options) io.Closer {
	optsMu.Lock()
	defer optsMu.Unlock()
	current = o
	if o.File == "" {
		output = nil
		return nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
	}
	output = lj
	return lj
}

func settings() (Options, io.Writer) {
	optsMu.RLock()
	defer optsMu.RUnlock()
	w := output
	if w == nil {
		w = os.Stdout
	}
	return current, w
}

func (o Options) console() bool {
	if o.Format != "" {
		return strings.EqualFold(o.Format, "console")
	}
	return strings.ToLower(os.Getenv("APP_ENV")) == "dev"
}

func (o Options) level() string {
	if o.Level != "" {
		return o.Level
	}
	return os.Getenv("LOG_LEVEL")
}
