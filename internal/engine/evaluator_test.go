package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
)

const pkgGames = domain.PackageID("games.example")

// TestExceeded_NoLimit verifies packages without a limit are never blocked
func TestExceeded_NoLimit(t *testing.T) {
	limits := newMockLimitStore()
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		"notes.example": 500 * time.Hour,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.False(t, e.Exceeded(context.Background(), "notes.example", time.Now()))
	assert.Zero(t, provider.queries, "usage should not be queried without a limit")
}

// TestExceeded_NonPositiveLimit verifies a limit <= 0 means unlimited
func TestExceeded_NonPositiveLimit(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 0
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		pkgGames: time.Hour,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.False(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
}

// TestExceeded_UnderLimit verifies usage below the limit does not block
func TestExceeded_UnderLimit(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		pkgGames: 29*time.Minute + 59*time.Second,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	// 29m59s is 29 whole minutes: under the 30 minute limit.
	assert.False(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
}

// TestExceeded_AtLimit verifies reaching the limit blocks (>=, not >)
func TestExceeded_AtLimit(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		pkgGames: 30 * time.Minute,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.True(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
}

// TestExceeded_OverLimit verifies usage above the limit blocks
func TestExceeded_OverLimit(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		pkgGames: 31 * time.Minute,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.True(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
}

// TestExceeded_FailsOpenOnUsageError verifies query failures never block
func TestExceeded_FailsOpenOnUsageError(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	provider := &mockUsageProvider{err: errBoom}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.False(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
}

// TestExceeded_FailsOpenOnLimitError verifies limit lookup failures never block
func TestExceeded_FailsOpenOnLimitError(t *testing.T) {
	limits := newMockLimitStore()
	limits.limitErr = errBoom
	provider := &mockUsageProvider{}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.False(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
	assert.Zero(t, provider.queries)
}

// TestExceeded_FailsOpenOnStalledQuery verifies a stalled provider is
// bounded by the query timeout instead of hanging the monitor
func TestExceeded_FailsOpenOnStalledQuery(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	provider := &mockUsageProvider{
		usage: map[domain.PackageID]time.Duration{pkgGames: time.Hour},
		stall: 5 * time.Second,
	}

	e := NewEvaluator(limits, provider, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	exceeded := e.Exceeded(context.Background(), pkgGames, time.Now())

	assert.False(t, exceeded)
	assert.Less(t, time.Since(start), time.Second)
}

// TestExceeded_IgnoredPackage verifies ignored packages are never evaluated
func TestExceeded_IgnoredPackage(t *testing.T) {
	limits := newMockLimitStore()
	limits.limits[pkgGames] = 30
	limits.ignored[pkgGames] = true
	provider := &mockUsageProvider{usage: map[domain.PackageID]time.Duration{
		pkgGames: time.Hour,
	}}

	e := NewEvaluator(limits, provider, 0, zap.NewNop())

	assert.False(t, e.Exceeded(context.Background(), pkgGames, time.Now()))
	assert.Zero(t, provider.queries)
}
