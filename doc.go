/*
Package mqttsub contains a subscriber client that connects to an MQTT broker, subscribes
to a configured list of topics and hands every message it receives to a MessageHandler.
A lost connection is retried a fixed number of times before the client gives up.

Example:

	package main

	import (
		"context"
		"net/http"
		"os"
		"os/signal"
		"syscall"

		"github.com/prometheus/client_golang/prometheus"
		"github.com/prometheus/client_golang/prometheus/promhttp"

		"github.com/gojek/mqttsub"
		"github.com/gojek/mqttsub/metrics"
		mqttslog "github.com/gojek/mqttsub/slog"
	)

	func main() {
		cfg, err := mqttsub.LoadConfig(mqttsub.DefaultConfigPath)
		if err != nil {
			panic(err)
		}

		logger := mqttslog.New(mqttslog.NewHandler(os.Stderr, cfg.LogFormat, cfg.LogLevel))

		opts, err := mqttsub.ConnectOptionsFromConfig(cfg, logger)
		if err != nil {
			panic(err)
		}

		reg := prometheus.NewRegistry()
		m := metrics.NewPrometheus()
		if err := m.AddToRegistry(reg); err != nil {
			panic(err)
		}

		c, err := mqttsub.NewClient(cfg, mqttsub.NewPahoTransport(opts, logger),
			mqttsub.WithLogger(logger),
			mqttsub.WithMetrics(m),
			mqttsub.WithMessageHandler(mqttsub.NewPrinter(os.Stdout, mqttsub.FormatText)),
		)
		if err != nil {
			panic(err)
		}

		go func() {
			_ = http.ListenAndServe(":9090", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		os.Exit(mqttsub.ExitCode(c.Run(ctx)))
	}
*/
package mqttsub // import "github.com/gojek/mqttsub"
