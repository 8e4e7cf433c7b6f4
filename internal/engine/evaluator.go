// Package engine implements the usage limit enforcement engine:
// quota evaluation, foreground event dispatch, and the intervention
// state machine.
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/metrics"
)

// DefaultQueryTimeout bounds a single usage query. A stalled provider is
// treated as a transient failure instead of blocking event processing.
const DefaultQueryTimeout = 500 * time.Millisecond

// Evaluator decides whether a package has exceeded its daily limit.
// It fails open: any inability to determine the limit or usage yields
// "not exceeded". Side-effect free and safe to call at any frequency.
type Evaluator struct {
	limits       domain.LimitStore
	usage        domain.UsageProvider
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewEvaluator creates a quota evaluator.
func NewEvaluator(limits domain.LimitStore, usage domain.UsageProvider, queryTimeout time.Duration, logger *zap.Logger) *Evaluator {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &Evaluator{
		limits:       limits,
		usage:        usage,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Exceeded reports whether the package's usage today has reached its limit.
// The window is [local midnight of now, now).
func (e *Evaluator) Exceeded(ctx context.Context, pkg domain.PackageID, now time.Time) bool {
	ignored, err := e.limits.IsIgnored(pkg)
	if err != nil {
		e.logger.Warn("ignore lookup failed",
			zap.String("package", string(pkg)),
			zap.Error(err))
		metrics.QueryFailures.Inc()
		return false
	}
	if ignored {
		return false
	}

	limit, err := e.limits.Limit(pkg)
	if err != nil {
		if !errors.Is(err, domain.ErrNoLimit) {
			e.logger.Warn("limit lookup failed",
				zap.String("package", string(pkg)),
				zap.Error(err))
			metrics.QueryFailures.Inc()
		}
		return false
	}
	if limit == nil || limit.LimitMinutes <= 0 {
		return false
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	snapshot, err := e.usage.TodayUsage(queryCtx, pkg, now)
	if err != nil {
		e.logger.Warn("usage query failed",
			zap.String("package", string(pkg)),
			zap.Error(err))
		metrics.QueryFailures.Inc()
		return false
	}

	usageMinutes := snapshot.Minutes()
	exceeded := usageMinutes >= limit.LimitMinutes

	e.logger.Debug("quota evaluated",
		zap.String("package", string(pkg)),
		zap.Int("limit_minutes", limit.LimitMinutes),
		zap.Int("usage_minutes", usageMinutes),
		zap.Bool("exceeded", exceeded))

	return exceeded
}
