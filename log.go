package mqttsub

import (
	"context"
	"fmt"
)

// Logger is the interface that wraps the Info and Error methods.
type Logger interface {
	Error(ctx context.Context, err error, attrs map[string]any)
	Warn(ctx context.Context, msg string, attrs map[string]any)
	Info(ctx context.Context, msg string, attrs map[string]any)
	Debug(ctx context.Context, msg string, attrs map[string]any)
}

var defaultLogger Logger = noOpLogger{}

type noOpLogger struct{}

func (noOpLogger) Error(context.Context, error, map[string]any)  {}
func (noOpLogger) Warn(context.Context, string, map[string]any)  {}
func (noOpLogger) Info(context.Context, string, map[string]any)  {}
func (noOpLogger) Debug(context.Context, string, map[string]any) {}

type logLevel int

const (
	debugLevel logLevel = iota
	warnLevel
	errorLevel
)

// pahoLogger bridges the paho package level loggers to a Logger.
type pahoLogger struct {
	logger Logger
	level  logLevel
}

func (l *pahoLogger) Println(v ...interface{}) {
	l.log(fmt.Sprint(v...))
}

func (l *pahoLogger) Printf(format string, v ...interface{}) {
	l.log(fmt.Sprintf(format, v...))
}

func (l *pahoLogger) log(msg string) {
	attrs := map[string]any{"component": "paho"}

	switch l.level {
	case errorLevel:
		l.logger.Error(context.Background(), fmt.Errorf("%s", msg), attrs)
	case warnLevel:
		l.logger.Warn(context.Background(), msg, attrs)
	case debugLevel:
		l.logger.Debug(context.Background(), msg, attrs)
	}
}
