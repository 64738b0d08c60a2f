package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"gamscheck/internal/metrics"
)

// serveMetrics exposes m on addr until ctx ends. An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logf func(string, ...any)) (func(), error) {
	if addr == "" || m == nil {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logf("metrics server: %v", err)
		}
	}()
	logf("metrics on http://%s/metrics", ln.Addr())
	stop := func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}
