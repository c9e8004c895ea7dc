package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/cellage/infra/logger"
)

// Handler serves the metrics of g on /metrics and every extra route. A nil
// gatherer uses the default registry.
func Handler(g prometheus.Gatherer, routes map[string]http.Handler) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	return mux
}

// StartPromServer serves Handler(g, routes) on addr until ctx is canceled.
func StartPromServer(ctx context.Context, addr string, g prometheus.Gatherer, routes map[string]http.Handler) error {
	log := logger.New("prom-server")
	srv := &http.Server{Addr: addr, Handler: Handler(g, routes), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
