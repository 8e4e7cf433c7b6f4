// Package metrics exposes Prometheus counters for the enforcement engine.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// EventsTotal counts foreground-change events received from the host.
	EventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_foreground_events_total",
			Help: "Total foreground-change events received",
		},
	)

	// Interventions counts interventions fired, per package.
	Interventions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenguard_interventions_total",
			Help: "Total interventions fired (overlay and/or home navigation)",
		},
		[]string{"package"},
	)

	// InterventionsSwallowed counts exceeded-events dropped inside the
	// intervention cooldown window.
	InterventionsSwallowed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_interventions_swallowed_total",
			Help: "Exceeded-events swallowed within the intervention cooldown",
		},
	)

	// OverlaysShown counts successful overlay shows.
	OverlaysShown = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_overlays_shown_total",
			Help: "Total block overlays shown",
		},
	)

	// OverlayFailures counts overlay show failures (e.g., surface denied).
	OverlayFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_overlay_failures_total",
			Help: "Total block overlay show failures",
		},
	)

	// HomeNavigations counts forced navigations to the neutral screen.
	HomeNavigations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_home_navigations_total",
			Help: "Total forced navigations to the home screen",
		},
	)

	// QueryFailures counts transient usage/limit query failures.
	QueryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenguard_query_failures_total",
			Help: "Total transient usage or limit query failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		Interventions,
		InterventionsSwallowed,
		OverlaysShown,
		OverlayFailures,
		HomeNavigations,
		QueryFailures,
	)
}

// Serve starts the metrics HTTP listener on the given address.
// It returns once the listener is up; the server runs until ctx is canceled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("metrics listener started", zap.String("addr", addr))
	return nil
}
