// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// PackageID is the opaque key identifying an application.
// It is used as the map key everywhere.
type PackageID string

// TimerLimit is the configured daily allowance for a package.
// Absence of a limit (or LimitMinutes <= 0) means unlimited.
type TimerLimit struct {
	Package      PackageID
	LimitMinutes int
}

// UsageSnapshot is today's accumulated foreground usage for a package,
// computed fresh on every query for the window [local midnight, now).
type UsageSnapshot struct {
	Package         PackageID
	TotalForeground time.Duration
	SessionStarts   []time.Time // chronological, possibly empty
}

// Minutes returns whole foreground minutes (integer division).
func (s UsageSnapshot) Minutes() int {
	return int(s.TotalForeground / time.Minute)
}

// ForegroundEvent is a host notification that a package became the
// foreground application. Duplicates and rapid redelivery are expected.
type ForegroundEvent struct {
	Package PackageID
	At      time.Time
}

// InterventionRecord tracks when the coordinator last acted on a package.
// Owned exclusively by the coordinator; in-memory only, reset on restart.
type InterventionRecord struct {
	Package            PackageID
	LastInterventionAt time.Time
}

// OverlayState describes the single process-wide overlay slot.
// At most one overlay is visible at any time.
type OverlayState struct {
	Visible       bool
	Package       PackageID
	ShownAt       time.Time
	AutoDismissAt time.Time
}

// SessionRecord is one recorded foreground session, persisted by the
// usage recorder. Open sessions have a zero EndedAt.
type SessionRecord struct {
	ID        int64
	Package   PackageID
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// UsageTotal is an aggregated per-package usage row, used by the status
// and export commands.
type UsageTotal struct {
	Package         PackageID
	TotalForeground time.Duration
	SessionStarts   []time.Time
}
