// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xmidt-org/collections/concurrent"
	"github.com/xmidt-org/collections/conlimiter"
	"github.com/xmidt-org/collections/logging"
)

const shutdownTimeout = 5 * time.Second

// summarizer is the behavior required of a soak run by the summary endpoint
type summarizer interface {
	Summary() Summary
}

// SummaryHandler writes the current run Summary as JSON
type SummaryHandler struct {
	run    summarizer
	logger log.Logger
}

func (sh SummaryHandler) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	response.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(response).Encode(sh.run.Summary()); err != nil {
		logging.Error(sh.logger).Log(logging.MessageKey(), "unable to write summary", logging.ErrorKey(), err)
	}
}

// newRouter builds the soak HTTP surface
//
//	GET /metrics returns the Prometheus exposition of the gatherer
//	GET /soak returns the JSON summary of the run
func newRouter(g prometheus.Gatherer, s summarizer, logger log.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	router.Handle("/soak", SummaryHandler{run: s, logger: logger}).
		Methods(http.MethodGet)

	return router
}

// serve returns a Runnable that listens on address and serves handler until shutdown.
// A failure to listen is returned from Run, so nothing else in a RunnableSet starts.
// The limiter is optional.
func serve(address string, handler http.Handler, limiter *conlimiter.ConLimiter, logger log.Logger) concurrent.Runnable {
	return concurrent.RunnableFunc(func(waitGroup *sync.WaitGroup, shutdown <-chan struct{}) error {
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return err
		}

		server := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: shutdownTimeout,
		}

		if limiter != nil {
			limiter.Limit(server)
		}

		logging.Info(logger).Log(logging.MessageKey(), "listening", "address", listener.Addr().String())
		waitGroup.Add(2)
		go func() {
			defer waitGroup.Done()
			if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
				logging.Error(logger).Log(logging.MessageKey(), "HTTP server exited", logging.ErrorKey(), err)
			}
		}()

		go func() {
			defer waitGroup.Done()
			<-shutdown

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logging.Error(logger).Log(logging.MessageKey(), "HTTP server shutdown failed", logging.ErrorKey(), err)
			}
		}()

		return nil
	})
}
