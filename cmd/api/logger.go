package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// newLogger arma el logger de la app a partir de LOG_FORMAT y LOG_LEVEL.
func newLogger(format, level string, output io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(output, options))
	}
	return slog.New(slog.NewTextHandler(output, options))
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

// requestLogFormatter conecta el access log de chi con slog.
type requestLogFormatter struct {
	logger *slog.Logger
}

func (formatter requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return requestLogEntry{logger: formatter.logger.With(
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)}
}

type requestLogEntry struct {
	logger *slog.Logger
}

func (entry requestLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra any) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	entry.logger.Log(context.Background(), level, "http request",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)
}

func (entry requestLogEntry) Panic(value any, stack []byte) {
	entry.logger.Error("panic", slog.Any("panic", value), slog.String("stack", string(stack)))
}
