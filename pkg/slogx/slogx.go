// Package slogx builds the service logger and carries request scoped loggers
// through context.
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces the value of any attribute whose key is a credential.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against attribute keys.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"client_secret": true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"otp_code":      true,
	"authorization": true,
	"cookie":        true,
}

type Config struct {
	Service string
	Version string
	Env     string    // dev, staging, production
	Level   string    // debug, info, warn, error
	Format  string    // json or text
	Output  io.Writer // defaults to stdout
}

// New builds the logger, installs it as the slog default and returns it.
// Every record carries service, version and env.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		AddSource:   level == slog.LevelDebug,
		Level:       level,
		ReplaceAttr: redact,
	}

	var handler slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}
