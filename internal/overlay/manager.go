// Package overlay owns the lifetime of the single blocking surface:
// creation, auto-dismiss, user-dismiss, and teardown.
package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/metrics"
)

// DefaultAutoDismissTimeout is how long an overlay stays up before it is
// torn down on its own. Configurable; not load-bearing for correctness.
const DefaultAutoDismissTimeout = 3 * time.Second

// Manager owns the single overlay slot. At most one overlay is visible at
// any time; showing a new one first tears down the old one. All slot
// mutations happen under one mutex so a firing auto-dismiss timer can never
// race a newer Show.
type Manager struct {
	surface     domain.BlockSurface
	navigator   domain.HomeNavigator
	limits      domain.LimitStore
	usage       domain.UsageProvider
	appInfo     domain.AppInfoProvider
	autoDismiss time.Duration
	clock       clock.Clock
	logger      *zap.Logger

	mu      sync.Mutex
	visible bool
	current domain.OverlayState
	timer   *clock.Timer
	gen     uint64 // identity of the scheduled auto-dismiss
}

// NewManager creates an overlay lifecycle manager.
func NewManager(
	surface domain.BlockSurface,
	navigator domain.HomeNavigator,
	limits domain.LimitStore,
	usage domain.UsageProvider,
	appInfo domain.AppInfoProvider,
	autoDismiss time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *Manager {
	if autoDismiss <= 0 {
		autoDismiss = DefaultAutoDismissTimeout
	}
	return &Manager{
		surface:     surface,
		navigator:   navigator,
		limits:      limits,
		usage:       usage,
		appInfo:     appInfo,
		autoDismiss: autoDismiss,
		clock:       clk,
		logger:      logger,
	}
}

// Show renders the block overlay for a package. A visible overlay is torn
// down first (render-and-replace, never stack). If the host refuses the
// surface the state stays Hidden and the error is returned for logging.
func (m *Manager) Show(ctx context.Context, pkg domain.PackageID) error {
	text := m.contextLine(ctx, pkg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.visible {
		m.teardownLocked(ctx)
	}

	if err := m.surface.Show(ctx, pkg, text); err != nil {
		metrics.OverlayFailures.Inc()
		return fmt.Errorf("show block surface: %w", err)
	}

	now := m.clock.Now()
	m.visible = true
	m.current = domain.OverlayState{
		Visible:       true,
		Package:       pkg,
		ShownAt:       now,
		AutoDismissAt: now.Add(m.autoDismiss),
	}
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.autoDismiss, func() {
		m.autoDismissFired(gen)
	})

	metrics.OverlaysShown.Inc()
	m.logger.Info("overlay shown",
		zap.String("package", string(pkg)),
		zap.Duration("auto_dismiss", m.autoDismiss))
	return nil
}

// autoDismissFired tears the overlay down when its timer fires, unless a
// later Show already replaced it (generation check).
func (m *Manager) autoDismissFired(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.visible || m.gen != gen {
		return
	}

	m.logger.Debug("overlay auto-dismissed",
		zap.String("package", string(m.current.Package)))
	m.teardownLocked(context.Background())
}

// Dismiss handles the user's explicit acknowledgement: the pending
// auto-dismiss is canceled, the overlay hidden, and the user sent home
// (the blocked app must not stay in the foreground behind the overlay).
func (m *Manager) Dismiss(ctx context.Context) {
	m.mu.Lock()
	wasVisible := m.visible
	m.teardownLocked(ctx)
	m.mu.Unlock()

	if !wasVisible {
		return
	}

	if err := m.navigator.NavigateHome(ctx); err != nil {
		m.logger.Warn("home navigation on dismiss failed", zap.Error(err))
	}
}

// Hide tears the overlay down. Idempotent: hiding when hidden is a no-op.
func (m *Manager) Hide(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx)
}

// State returns a copy of the current overlay state.
func (m *Manager) State() domain.OverlayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible {
		return domain.OverlayState{}
	}
	return m.current
}

// teardownLocked hides the surface and resets the slot. Caller holds mu.
func (m *Manager) teardownLocked(ctx context.Context) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.visible {
		return
	}
	m.visible = false
	m.current = domain.OverlayState{}
	if err := m.surface.Hide(ctx); err != nil {
		m.logger.Warn("surface hide failed", zap.Error(err))
	}
}

// contextLine builds the human-readable overlay text from the limit, the
// usage so far, and the app's display name.
func (m *Manager) contextLine(ctx context.Context, pkg domain.PackageID) string {
	name := m.appInfo.DisplayName(pkg)

	limit, err := m.limits.Limit(pkg)
	if err != nil || limit == nil {
		return fmt.Sprintf("Time's up for %s today.", name)
	}

	snapshot, err := m.usage.TodayUsage(ctx, pkg, m.clock.Now())
	if err != nil {
		return fmt.Sprintf("You've reached your %d minute limit for %s today.", limit.LimitMinutes, name)
	}

	return fmt.Sprintf("You've reached your %d minute limit for %s today (used %dm).",
		limit.LimitMinutes, name, snapshot.Minutes())
}
