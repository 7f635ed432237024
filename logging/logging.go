// Package logging builds the process-wide slog logger on top of charmbracelet/log.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a slog logger writing to w. format is "json" or "text";
// unknown levels fall back to info.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
	if format == "json" {
		handler.SetFormatter(log.JSONFormatter)
	} else {
		handler.SetFormatter(log.TextFormatter)
	}
	return slog.New(handler)
}
