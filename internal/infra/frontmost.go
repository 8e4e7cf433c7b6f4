package infra

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
)

// DefaultPollInterval is how often the frontmost application is sampled.
const DefaultPollInterval = time.Second

// FrontmostFunc resolves the package id of the current foreground
// application. Returning an empty id means "could not determine".
type FrontmostFunc func(ctx context.Context) (domain.PackageID, error)

// PollingEventSource implements domain.EventSource by sampling the
// frontmost application on an interval. It emits an event on every sample,
// not only on change: duplicates are part of the engine's contract (the
// cooldowns absorb them) and keep enforcement live while the user stays
// inside a blocked app.
type PollingEventSource struct {
	frontmost FrontmostFunc
	interval  time.Duration
	clock     clock.Clock
	events    chan domain.ForegroundEvent
	logger    *zap.Logger
}

// NewPollingEventSource creates a polling event source.
func NewPollingEventSource(frontmost FrontmostFunc, interval time.Duration, clk clock.Clock, logger *zap.Logger) *PollingEventSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingEventSource{
		frontmost: frontmost,
		interval:  interval,
		clock:     clk,
		events:    make(chan domain.ForegroundEvent, 16),
		logger:    logger,
	}
}

// Events returns the channel events are delivered on.
func (s *PollingEventSource) Events() <-chan domain.ForegroundEvent {
	return s.events
}

// Run samples the frontmost application until the context is canceled.
func (s *PollingEventSource) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()
	defer close(s.events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *PollingEventSource) sample(ctx context.Context) {
	pkg, err := s.frontmost(ctx)
	if err != nil {
		s.logger.Debug("frontmost lookup failed", zap.Error(err))
		return
	}
	if pkg == "" {
		return
	}

	event := domain.ForegroundEvent{Package: pkg, At: s.clock.Now()}
	select {
	case s.events <- event:
	default:
		// Consumer is behind; dropping a duplicate sample is harmless.
	}
}

// HostFrontmost returns the platform resolver for the frontmost
// application, or nil when the platform is unsupported.
func HostFrontmost() FrontmostFunc {
	switch runtime.GOOS {
	case "darwin":
		return darwinFrontmost
	case "linux":
		return linuxFrontmost
	default:
		return nil
	}
}

// darwinFrontmost asks System Events for the frontmost process's bundle id.
func darwinFrontmost(ctx context.Context) (domain.PackageID, error) {
	out, err := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "System Events" to get bundle identifier of first application process whose frontmost is true`,
	).Output()
	if err != nil {
		return "", err
	}
	return domain.PackageID(strings.TrimSpace(string(out))), nil
}

// linuxFrontmost resolves the active window's pid via xdotool and maps it
// to a process name with gopsutil.
func linuxFrontmost(ctx context.Context) (domain.PackageID, error) {
	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow", "getwindowpid").Output()
	if err != nil {
		return "", err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return "", err
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", err
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return "", err
	}
	return domain.PackageID(name), nil
}

// Ensure PollingEventSource implements domain.EventSource.
var _ domain.EventSource = (*PollingEventSource)(nil)
