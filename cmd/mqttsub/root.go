package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gojek/mqttsub"
	"github.com/gojek/mqttsub/metrics"
	mqttslog "github.com/gojek/mqttsub/slog"
)

const logFileName = "mqttsub.log"

type flags struct {
	configPath     string
	consulAddress  string
	consulKey      string
	logLevel       string
	logFormat      string
	output         string
	metricsAddress string
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "mqttsub [broker-uri]",
		Short: "Subscribe to MQTT topics and print the messages received",
		Long: `mqttsub connects to an MQTT broker, subscribes to the topics listed in its
configuration with their QoS levels and prints every message it receives.

Configuration is read from config.yaml unless --config or --consul-key is given.
An optional positional broker URI (for example tcp://localhost:1883) overrides the
broker derived from the configuration.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", mqttsub.DefaultConfigPath, "path to the YAML configuration file")
	fs.StringVar(&f.consulAddress, "consul-address", "", "Consul agent address used with --consul-key (default localhost:8500)")
	fs.StringVar(&f.consulKey, "consul-key", "", "read the YAML configuration from this Consul KV key instead of a file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log_level)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json (overrides log_format)")
	fs.StringVarP(&f.output, "output", "o", string(mqttsub.FormatText), "message output format: text or json")
	fs.StringVar(&f.metricsAddress, "metrics-address", "", "serve /metrics and /telemetry on this address (overrides metrics_address)")

	return cmd
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, f)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		cfg.BrokerURI = args[0]
	}

	applyFlagOverrides(cmd, f, cfg)

	format, err := mqttsub.ParseFormat(f.output)
	if err != nil {
		return err
	}

	logOut, closeLog, err := logWriter(cmd.ErrOrStderr(), cfg.LogDirectory)
	if err != nil {
		return err
	}
	defer closeLog()

	logger := mqttslog.New(mqttslog.NewHandler(logOut, cfg.LogFormat, cfg.LogLevel))

	connOpts, err := mqttsub.ConnectOptionsFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.NewPrometheus()

	c, err := mqttsub.NewClient(cfg, mqttsub.NewPahoTransport(connOpts, logger),
		mqttsub.WithLogger(logger),
		mqttsub.WithMetrics(m),
		mqttsub.WithMessageHandler(mqttsub.NewPrinter(cmd.OutOrStdout(), format)),
	)
	if err != nil {
		return err
	}

	if cfg.MetricsAddress != "" {
		shutdown, err := serveTelemetry(cfg.MetricsAddress, m, c, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	if err := c.Run(ctx); err != nil {
		return err
	}

	logger.Info(context.Background(), "exiting", nil)

	return nil
}

func loadConfig(ctx context.Context, f *flags) (*mqttsub.Config, error) {
	if f.consulKey != "" {
		return mqttsub.LoadConsulConfig(ctx, mqttsub.ConsulSource{
			Address: f.consulAddress,
			Key:     f.consulKey,
			Token:   os.Getenv("CONSUL_HTTP_TOKEN"),
		})
	}

	return mqttsub.LoadConfig(f.configPath)
}

func applyFlagOverrides(cmd *cobra.Command, f *flags, cfg *mqttsub.Config) {
	fs := cmd.Flags()

	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if fs.Changed("metrics-address") {
		cfg.MetricsAddress = f.metricsAddress
	}
}

func logWriter(fallback io.Writer, dir string) (io.Writer, func(), error) {
	if dir == "" {
		return fallback, func() {}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("%w: log_directory: %w", mqttsub.ErrInvalidConfig, err)
	}

	file, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: log_directory: %w", mqttsub.ErrInvalidConfig, err)
	}

	return file, func() { _ = file.Close() }, nil
}

func serveTelemetry(
	addr string,
	m *metrics.PrometheusMetrics,
	c *mqttsub.Client,
	logger mqttsub.Logger,
) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := m.AddToRegistry(reg); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/telemetry", c.TelemetryHandler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics_address: %w", mqttsub.ErrInvalidConfig, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), err, map[string]any{"component": "telemetry"})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}, nil
}
