// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Soak drives a bounded queue with concurrent producers and consumers, verifying that
// every item is delivered exactly once and in per-producer order.  While a run is in
// progress, GET /metrics and GET /soak report on it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/collections/concurrent"
	"github.com/xmidt-org/collections/conlimiter"
	"github.com/xmidt-org/collections/logging"
	"github.com/xmidt-org/collections/queue"
	"github.com/xmidt-org/collections/xmetrics"
	"go.uber.org/zap"
)

const (
	exitSuccess = iota
	exitFailed
	exitInvalid
)

// newLogger places the configured logger into the context.  The returned function
// flushes any buffered output.
func newLogger(ctx context.Context, c Config, o *logging.Options) (context.Context, func(), error) {
	if c.Zap {
		z, err := zap.NewProduction()
		if err != nil {
			return ctx, nil, err
		}

		return logging.WithZap(ctx, z), func() { z.Sync() }, nil
	}

	if len(o.Level) == 0 {
		o.Level = "INFO"
	}

	return logging.WithLogger(ctx, logging.New(o)), func() {}, nil
}

func soak(arguments []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configureFlagSet(fs)
	if err := fs.Parse(arguments); err != nil {
		fmt.Fprintf(stderr, "Unable to parse command line: %s\n", err)
		return exitInvalid
	}

	v, err := newViper(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Unable to read configuration: %s\n", err)
		return exitInvalid
	}

	c, err := newConfig(v)
	if err != nil {
		fmt.Fprintf(stderr, "Unable to decode configuration: %s\n", err)
		return exitInvalid
	}

	o, err := logging.FromViper(logging.Sub(v))
	if err != nil {
		fmt.Fprintf(stderr, "Unable to decode logging configuration: %s\n", err)
		return exitInvalid
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, flush, err := newLogger(ctx, c, o)
	if err != nil {
		fmt.Fprintf(stderr, "Unable to create logger: %s\n", err)
		return exitInvalid
	}

	defer flush()
	logger := logging.GetLogger(ctx)
	summary, err := execute(ctx, c, logger)
	switch {
	case err != nil:
		logging.Error(logger).Log(logging.MessageKey(), "soak failed", logging.ErrorKey(), err)
		return exitFailed

	case summary.Failed():
		return exitFailed

	default:
		return exitSuccess
	}
}

// execute wires the metrics, the queues, and the optional HTTP server for a single soak run
func execute(ctx context.Context, c Config, logger log.Logger) (Summary, error) {
	registry, err := xmetrics.NewRegistry(&xmetrics.Options{Logger: logger}, queue.Metrics, Metrics)
	if err != nil {
		return Summary{}, err
	}

	r, err := newRun(c, logger, registry)
	if err != nil {
		return Summary{}, err
	}

	var extra []concurrent.Runnable
	if len(c.Listen) > 0 {
		var limiter *conlimiter.ConLimiter
		if c.MaxConnections > 0 {
			limiter = conlimiter.New(c.MaxConnections, registry.NewCounter(RejectedConnectionsCounter))
		}

		extra = append(extra, serve(c.Listen, newRouter(registry, r, r.logger), limiter, r.logger))
	}

	return r.Run(ctx, extra...)
}

func main() {
	os.Exit(soak(os.Args[1:], os.Stderr))
}
