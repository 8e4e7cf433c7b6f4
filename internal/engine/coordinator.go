package engine

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/metrics"
)

// Default cooldowns. Both are configuration, never hard-coded at call sites.
const (
	DefaultInterventionCooldown = 5 * time.Second
	DefaultHomeActionCooldown   = 2 * time.Second
)

// CoordinatorConfig holds the intervention cooldown settings.
type CoordinatorConfig struct {
	// InterventionCooldown is the per-package minimum gap between
	// interventions. Exceeded-events inside the window are swallowed.
	InterventionCooldown time.Duration

	// HomeActionCooldown is the global minimum gap between forced
	// home navigations, across all packages.
	HomeActionCooldown time.Duration
}

// DefaultCoordinatorConfig returns the default cooldown configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		InterventionCooldown: DefaultInterventionCooldown,
		HomeActionCooldown:   DefaultHomeActionCooldown,
	}
}

// OverlayManager is the coordinator's view of the overlay lifecycle.
type OverlayManager interface {
	// Show renders the block overlay for a package, replacing any
	// visible overlay.
	Show(ctx context.Context, pkg domain.PackageID) error
}

// Coordinator converts an "intervene" decision into a bounded sequence of
// side effects: forced home navigation and overlay display.
//
// Per-package intervention state is derived from the last-intervention
// timestamp rather than stored as an enum, so there is no reset timer per
// package: a package is "in cooldown" exactly while
// now - lastInterventionAt < InterventionCooldown.
//
// Home navigation is the urgent action and fires first, bounded by its own
// short global cooldown. Overlay display is informational and bounded by
// the per-package cooldown. The two side effects fail independently.
type Coordinator struct {
	config    CoordinatorConfig
	overlay   OverlayManager
	navigator domain.HomeNavigator
	clock     clock.Clock
	logger    *zap.Logger

	mu               sync.Mutex
	records          map[domain.PackageID]*domain.InterventionRecord
	lastHomeActionAt time.Time
}

// NewCoordinator creates an intervention coordinator.
func NewCoordinator(
	config CoordinatorConfig,
	overlay OverlayManager,
	navigator domain.HomeNavigator,
	clk clock.Clock,
	logger *zap.Logger,
) *Coordinator {
	if config.InterventionCooldown <= 0 {
		config.InterventionCooldown = DefaultInterventionCooldown
	}
	if config.HomeActionCooldown <= 0 {
		config.HomeActionCooldown = DefaultHomeActionCooldown
	}
	return &Coordinator{
		config:    config,
		overlay:   overlay,
		navigator: navigator,
		clock:     clk,
		logger:    logger,
		records:   make(map[domain.PackageID]*domain.InterventionRecord),
	}
}

// Intervene handles one exceeded-event for a package. It fires at most one
// intervention per package per InterventionCooldown; further events in the
// window are swallowed. Returns true if an intervention fired.
func (c *Coordinator) Intervene(ctx context.Context, pkg domain.PackageID) bool {
	now := c.clock.Now()

	c.mu.Lock()
	rec, ok := c.records[pkg]
	if ok && now.Sub(rec.LastInterventionAt) < c.config.InterventionCooldown {
		c.mu.Unlock()
		c.logger.Debug("intervention swallowed (cooldown)",
			zap.String("package", string(pkg)),
			zap.Duration("since_last", now.Sub(rec.LastInterventionAt)))
		metrics.InterventionsSwallowed.Inc()
		return false
	}
	if !ok {
		rec = &domain.InterventionRecord{Package: pkg}
		c.records[pkg] = rec
	}
	rec.LastInterventionAt = now

	navigate := now.Sub(c.lastHomeActionAt) >= c.config.HomeActionCooldown || c.lastHomeActionAt.IsZero()
	if navigate {
		c.lastHomeActionAt = now
	}
	c.mu.Unlock()

	c.logger.Info("intervention fired",
		zap.String("package", string(pkg)),
		zap.Bool("navigate_home", navigate))
	metrics.Interventions.WithLabelValues(string(pkg)).Inc()

	// Home first: getting the user off the blocked app is the urgent part.
	if navigate {
		if err := c.navigator.NavigateHome(ctx); err != nil {
			c.logger.Warn("home navigation failed",
				zap.String("package", string(pkg)),
				zap.Error(err))
		} else {
			metrics.HomeNavigations.Inc()
		}
	}

	// Overlay failure must not undo the navigation above.
	if err := c.overlay.Show(ctx, pkg); err != nil {
		c.logger.Warn("overlay show failed",
			zap.String("package", string(pkg)),
			zap.Error(err))
	}

	return true
}

// LastIntervention returns the last intervention time for a package,
// or a zero time if none fired yet.
func (c *Coordinator) LastIntervention(pkg domain.PackageID) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[pkg]; ok {
		return rec.LastInterventionAt
	}
	return time.Time{}
}

// Reset clears all cooldown bookkeeping. Called on monitor shutdown; a
// fresh process must not remember old cooldowns.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[domain.PackageID]*domain.InterventionRecord)
	c.lastHomeActionAt = time.Time{}
}
