// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package logging builds the process-wide [*slog.Logger].
//
// Production emits structured JSON on stdout so that log shippers can parse it.
// Development uses a human-friendly tint handler on stderr, with colour only when
// stderr is a terminal.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/taibuivan/manhwaty/internal/platform/constants"
)

// Options selects the handler flavour and level.
type Options struct {
	Development bool
	Debug       bool
}

// New returns a logger tagged with the application name.
func New(options Options) *slog.Logger {
	level := slog.LevelInfo
	if options.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if options.Development {
		handler = newTintHandler(os.Stderr, level, !isatty.IsTerminal(os.Stderr.Fd()))
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func newTintHandler(writer io.Writer, level slog.Level, noColor bool) slog.Handler {
	return tint.NewHandler(writer, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			// Empty strings add noise in the console.
			if attr.Value.Kind() == slog.KindString && attr.Value.String() == "" && len(groups) == 0 && attr.Key != slog.MessageKey {
				return slog.Attr{}
			}
			if attr.Value.Kind() == slog.KindDuration {
				return slog.String(attr.Key, attr.Value.Duration().Round(time.Millisecond).String())
			}
			return attr
		},
	})
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
