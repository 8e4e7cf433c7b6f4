package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/metrics"
)

// Monitor is the entry point driven by the host's foreground-change
// notifications. Pure dispatch: its only state is the engine's own
// package id, which is never evaluated (never self-block).
type Monitor struct {
	selfPackage domain.PackageID
	evaluator   *Evaluator
	coordinator *Coordinator
	logger      *zap.Logger
}

// NewMonitor creates a foreground event monitor.
func NewMonitor(selfPackage domain.PackageID, evaluator *Evaluator, coordinator *Coordinator, logger *zap.Logger) *Monitor {
	return &Monitor{
		selfPackage: selfPackage,
		evaluator:   evaluator,
		coordinator: coordinator,
		logger:      logger,
	}
}

// HandleEvent processes a single foreground-change event. Duplicate and
// out-of-order events are expected; the coordinator's cooldowns absorb them.
func (m *Monitor) HandleEvent(ctx context.Context, event domain.ForegroundEvent) {
	metrics.EventsTotal.Inc()

	if event.Package == "" || event.Package == m.selfPackage {
		return
	}

	m.logger.Debug("foreground change",
		zap.String("package", string(event.Package)),
		zap.Time("at", event.At))

	if !m.evaluator.Exceeded(ctx, event.Package, event.At) {
		return
	}

	m.coordinator.Intervene(ctx, event.Package)
}

// ResetCooldowns clears the coordinator's in-memory cooldown state.
// A fresh monitoring run must not remember old cooldowns.
func (m *Monitor) ResetCooldowns() {
	m.coordinator.Reset()
}

// Run consumes events from the source until the context is canceled.
// Cooldown bookkeeping is cleared on exit.
func (m *Monitor) Run(ctx context.Context, source domain.EventSource) error {
	defer m.coordinator.Reset()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping")
			return ctx.Err()
		case event, ok := <-source.Events():
			if !ok {
				m.logger.Info("event source closed")
				return nil
			}
			m.HandleEvent(ctx, event)
		}
	}
}
