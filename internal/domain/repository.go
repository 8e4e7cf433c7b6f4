package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the failure taxonomy at the engine boundary.
// All of them are absorbed and logged; none crashes the monitor.
var (
	// ErrNoLimit indicates no limit is configured for a package.
	ErrNoLimit = errors.New("no limit configured")

	// ErrSurfaceDenied indicates the host refused to render the block
	// surface (e.g., missing overlay permission). Not retried.
	ErrSurfaceDenied = errors.New("block surface denied by host")
)

// UsageProvider answers "how much time has this package accumulated today?".
// The window is always [local midnight of now, now). Implementations must
// return a zero snapshot rather than panic on internal failure; callers treat
// any error as "usage unknown" and fail open.
type UsageProvider interface {
	// TodayUsage returns the fresh usage snapshot for a package.
	TodayUsage(ctx context.Context, pkg PackageID, now time.Time) (UsageSnapshot, error)
}

// LimitStore provides access to configured limits and the ignore list.
// The engine only reads; the CLI owns writes.
type LimitStore interface {
	// Limit returns the configured limit, or ErrNoLimit if absent.
	Limit(pkg PackageID) (*TimerLimit, error)

	// IsIgnored reports whether the package is on the ignore list.
	IsIgnored(pkg PackageID) (bool, error)

	// SetLimit creates or updates a limit. LimitMinutes must be > 0.
	SetLimit(limit TimerLimit) error

	// RemoveLimit deletes a limit. Removing an absent limit is a no-op.
	RemoveLimit(pkg PackageID) error

	// Limits returns all configured limits.
	Limits() ([]TimerLimit, error)

	// SetIgnored adds or removes a package from the ignore list.
	SetIgnored(pkg PackageID, ignored bool) error

	// Ignored returns all ignored packages.
	Ignored() ([]PackageID, error)
}

// HomeNavigator performs the forced navigation to the neutral screen.
// Must be safe to invoke repeatedly; failure is reported, never fatal.
type HomeNavigator interface {
	NavigateHome(ctx context.Context) error
}

// BlockSurface renders the blocking overlay above other content.
// Show and Hide are idempotent with respect to the target state.
type BlockSurface interface {
	// Show renders the surface for a package with a context line.
	Show(ctx context.Context, pkg PackageID, text string) error

	// Hide tears the surface down. Hiding when hidden is a no-op.
	Hide(ctx context.Context) error
}

// AppInfoProvider resolves a package id to a human-readable name.
// Best effort: falls back to a derived name when the host can't answer.
type AppInfoProvider interface {
	DisplayName(pkg PackageID) string
}

// EventSource delivers foreground-change notifications from the host.
// The engine has no control over delivery rate or ordering.
type EventSource interface {
	// Events returns the channel events are delivered on.
	Events() <-chan ForegroundEvent

	// Run pumps events until the context is canceled.
	Run(ctx context.Context) error
}

// SessionStore persists recorded foreground sessions.
type SessionStore interface {
	// UpsertSession inserts a session or updates its end time and
	// duration. Returns the session id.
	UpsertSession(rec SessionRecord) (int64, error)

	// UsageSince aggregates sessions starting in [since, until)
	// for one package.
	UsageSince(ctx context.Context, pkg PackageID, since, until time.Time) (UsageSnapshot, error)

	// TotalsSince aggregates sessions per package for reporting.
	TotalsSince(ctx context.Context, since, until time.Time) ([]UsageTotal, error)

	// PurgeBefore deletes sessions that started before the cutoff.
	// Returns the number of rows removed.
	PurgeBefore(cutoff time.Time) (int64, error)
}

// KeyProvider abstracts the source of the store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
