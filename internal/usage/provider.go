// Package usage records foreground sessions and answers daily usage
// queries over them.
package usage

import (
	"context"
	"time"

	"github.com/screenguard/screenguard/internal/domain"
)

// StoreProvider implements domain.UsageProvider on top of the session
// store. Every query is computed fresh for [local midnight of now, now);
// nothing is cached.
type StoreProvider struct {
	store domain.SessionStore
}

// NewStoreProvider creates a store-backed usage provider.
func NewStoreProvider(store domain.SessionStore) *StoreProvider {
	return &StoreProvider{store: store}
}

// TodayUsage returns the usage snapshot for today's window.
func (p *StoreProvider) TodayUsage(ctx context.Context, pkg domain.PackageID, now time.Time) (domain.UsageSnapshot, error) {
	return p.store.UsageSince(ctx, pkg, LocalMidnight(now), now)
}

// LocalMidnight returns midnight of the given instant's local calendar day.
func LocalMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Ensure StoreProvider implements domain.UsageProvider.
var _ domain.UsageProvider = (*StoreProvider)(nil)
