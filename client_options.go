package mqttsub

import (
	"os"
	"time"

	"github.com/gojek/mqttsub/metrics"
)

const defaultGracefulShutdownPeriod = 5 * time.Second

// ClientOption allows to configure the behaviour of a Client.
type ClientOption interface{ apply(*clientOptions) }

// WithLogger sets the Logger to use for the client.
func WithLogger(l Logger) ClientOption { return optionFunc(func(o *clientOptions) { o.logger = l }) }

// WithMessageHandler sets the callback every received message is handed to.
// The default prints messages as text to stdout.
func WithMessageHandler(h MessageHandler) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.messageHandler = h
	})
}

// WithMetrics allows to configure the metrics collector of choice.
func WithMetrics(c metrics.Collector) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.metrics = c
	})
}

// WithReconnectAttempts sets how many times the client tries to reconnect after an
// established connection is lost before giving up.
func WithReconnectAttempts(n int) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.reconnectAttempts = n
	})
}

// WithReconnectInterval sets the fixed wait before every reconnect attempt.
func WithReconnectInterval(d time.Duration) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.reconnectInterval = d
	})
}

// WithPollErrorDelay sets the pause after a poll error that is not a connection loss.
func WithPollErrorDelay(d time.Duration) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.pollErrorDelay = d
	})
}

// WithMaxPollErrors bounds the number of consecutive poll errors, 0 means unbounded.
func WithMaxPollErrors(n int) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.maxPollErrors = n
	})
}

// WithGracefulShutdownPeriod sets the limit that is allowed for the final
// unsubscribe and disconnect.
func WithGracefulShutdownPeriod(d time.Duration) ClientOption {
	return optionFunc(func(o *clientOptions) {
		o.gracefulShutdownPeriod = d
	})
}

type clientOptions struct {
	logger         Logger
	messageHandler MessageHandler
	metrics        metrics.Collector

	reconnectAttempts, maxPollErrors int

	reconnectInterval, pollErrorDelay,
	gracefulShutdownPeriod time.Duration
}

type optionFunc func(*clientOptions)

func (f optionFunc) apply(o *clientOptions) { f(o) }

func defaultClientOptions(cfg *Config) *clientOptions {
	return &clientOptions{
		logger:                 defaultLogger,
		messageHandler:         NewPrinter(os.Stdout, FormatText),
		metrics:                metrics.NewNoop(),
		reconnectAttempts:      cfg.ReconnectAttempts,
		maxPollErrors:          cfg.MaxPollErrors,
		reconnectInterval:      cfg.ReconnectInterval,
		pollErrorDelay:         cfg.PollErrorDelay,
		gracefulShutdownPeriod: defaultGracefulShutdownPeriod,
	}
}
