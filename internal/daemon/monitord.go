// Package daemon implements the monitoring daemon loop.
package daemon

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/engine"
	"github.com/screenguard/screenguard/internal/usage"
)

// Config holds monitord configuration.
type Config struct {
	RetentionDays   int           // How long recorded sessions are kept
	CleanupInterval time.Duration // How often old sessions are purged
}

// DefaultConfig returns default monitord configuration.
func DefaultConfig() Config {
	return Config{
		RetentionDays:   90,
		CleanupInterval: time.Hour,
	}
}

// Monitord owns the monitoring run: it pumps the host event stream into
// the usage recorder and the enforcement monitor, and purges expired
// sessions on a schedule. It blocks until the context is canceled.
type Monitord struct {
	config   Config
	source   domain.EventSource
	recorder *usage.Recorder
	monitor  *engine.Monitor
	sessions domain.SessionStore
	clock    clock.Clock
	logger   *zap.Logger
}

// New creates a monitord.
func New(
	config Config,
	source domain.EventSource,
	recorder *usage.Recorder,
	monitor *engine.Monitor,
	sessions domain.SessionStore,
	clk clock.Clock,
	logger *zap.Logger,
) *Monitord {
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultConfig().RetentionDays
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	return &Monitord{
		config:   config,
		source:   source,
		recorder: recorder,
		monitor:  monitor,
		sessions: sessions,
		clock:    clk,
		logger:   logger,
	}
}

// Run starts the monitoring loop. This blocks until context is canceled.
func (d *Monitord) Run(ctx context.Context) error {
	d.logger.Info("monitord started",
		zap.Int("retention_days", d.config.RetentionDays))

	sourceCtx, cancelSource := context.WithCancel(ctx)
	defer cancelSource()

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- d.source.Run(sourceCtx)
	}()

	// Purge expired sessions once on startup, then on a ticker.
	d.purgeExpired()

	cleanupTicker := d.clock.Ticker(d.config.CleanupInterval)
	defer cleanupTicker.Stop()

	defer func() {
		d.recorder.Flush()
		d.monitor.ResetCooldowns()
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("monitord stopping")
			return ctx.Err()

		case err := <-sourceDone:
			if err != nil && err != context.Canceled {
				d.logger.Error("event source failed", zap.Error(err))
				return err
			}
			return nil

		case event, ok := <-d.source.Events():
			if !ok {
				d.logger.Info("event stream closed")
				return nil
			}
			// Record first so evaluation sees up-to-date usage.
			d.recorder.Record(event)
			d.monitor.HandleEvent(ctx, event)

		case <-cleanupTicker.C:
			d.purgeExpired()
		}
	}
}

// purgeExpired deletes sessions older than the retention window.
func (d *Monitord) purgeExpired() {
	cutoff := d.clock.Now().AddDate(0, 0, -d.config.RetentionDays)
	removed, err := d.sessions.PurgeBefore(cutoff)
	if err != nil {
		d.logger.Warn("session purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		d.logger.Info("purged expired sessions",
			zap.Int64("rows_deleted", removed),
			zap.Time("cutoff", cutoff))
	}
}
