// Package slog adapts log/slog to the mqttsub.Logger interface.
package slog

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/gojek/mqttsub"
)

// New returns a new mqttsub.Logger that wraps the slog.Handler.
func New(h slog.Handler) mqttsub.Logger {
	return &slogWrapper{log: slog.New(h)}
}

// NewHandler creates a text or JSON handler writing to w at the given level.
// Unknown formats fall back to text and unknown levels to info.
func NewHandler(w io.Writer, format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

var _ mqttsub.Logger = (*slogWrapper)(nil)

type slogWrapper struct {
	log *slog.Logger
}

func (sw *slogWrapper) Info(ctx context.Context, msg string, attrs map[string]any) {
	sw.log.LogAttrs(ctx, slog.LevelInfo, msg, sw.mapAttrs(ctx, attrs)...)
}

func (sw *slogWrapper) Error(ctx context.Context, err error, attrs map[string]any) {
	sw.log.LogAttrs(ctx, slog.LevelError, err.Error(), sw.mapAttrs(ctx, attrs)...)
}

func (sw *slogWrapper) Warn(ctx context.Context, msg string, attrs map[string]any) {
	sw.log.LogAttrs(ctx, slog.LevelWarn, msg, sw.mapAttrs(ctx, attrs)...)
}

func (sw *slogWrapper) Debug(ctx context.Context, msg string, attrs map[string]any) {
	sw.log.LogAttrs(ctx, slog.LevelDebug, msg, sw.mapAttrs(ctx, attrs)...)
}

// mapAttrs sorts keys so that output is stable across calls. The client ID carried by
// ctx leads the list.
func (sw *slogWrapper) mapAttrs(ctx context.Context, attrs map[string]any) []slog.Attr {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	logAttrs := make([]slog.Attr, 0, len(attrs)+1)

	if id := mqttsub.ClientIDFromContext(ctx); id != "" {
		logAttrs = append(logAttrs, slog.String("client_id", id))
	}

	for _, k := range keys {
		logAttrs = append(logAttrs, slog.Attr{Key: k, Value: slog.AnyValue(attrs[k])})
	}

	return logAttrs
}
