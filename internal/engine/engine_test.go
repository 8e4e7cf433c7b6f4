package engine

import (
	"context"
	"errors"
	"time"

	"github.com/screenguard/screenguard/internal/domain"
)

// mockLimitStore implements domain.LimitStore for testing
type mockLimitStore struct {
	limits     map[domain.PackageID]int
	ignored    map[domain.PackageID]bool
	limitErr   error
	ignoredErr error
}

func newMockLimitStore() *mockLimitStore {
	return &mockLimitStore{
		limits:  make(map[domain.PackageID]int),
		ignored: make(map[domain.PackageID]bool),
	}
}

func (m *mockLimitStore) Limit(pkg domain.PackageID) (*domain.TimerLimit, error) {
	if m.limitErr != nil {
		return nil, m.limitErr
	}
	minutes, ok := m.limits[pkg]
	if !ok {
		return nil, domain.ErrNoLimit
	}
	return &domain.TimerLimit{Package: pkg, LimitMinutes: minutes}, nil
}

func (m *mockLimitStore) IsIgnored(pkg domain.PackageID) (bool, error) {
	if m.ignoredErr != nil {
		return false, m.ignoredErr
	}
	return m.ignored[pkg], nil
}

func (m *mockLimitStore) SetLimit(limit domain.TimerLimit) error {
	m.limits[limit.Package] = limit.LimitMinutes
	return nil
}

func (m *mockLimitStore) RemoveLimit(pkg domain.PackageID) error {
	delete(m.limits, pkg)
	return nil
}

func (m *mockLimitStore) Limits() ([]domain.TimerLimit, error) {
	var limits []domain.TimerLimit
	for pkg, minutes := range m.limits {
		limits = append(limits, domain.TimerLimit{Package: pkg, LimitMinutes: minutes})
	}
	return limits, nil
}

func (m *mockLimitStore) SetIgnored(pkg domain.PackageID, ignored bool) error {
	m.ignored[pkg] = ignored
	return nil
}

func (m *mockLimitStore) Ignored() ([]domain.PackageID, error) {
	var pkgs []domain.PackageID
	for pkg, ignored := range m.ignored {
		if ignored {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}

// mockUsageProvider implements domain.UsageProvider for testing
type mockUsageProvider struct {
	usage   map[domain.PackageID]time.Duration
	err     error
	stall   time.Duration
	queries int
}

func (m *mockUsageProvider) TodayUsage(ctx context.Context, pkg domain.PackageID, now time.Time) (domain.UsageSnapshot, error) {
	m.queries++
	if m.stall > 0 {
		select {
		case <-ctx.Done():
			return domain.UsageSnapshot{}, ctx.Err()
		case <-time.After(m.stall):
		}
	}
	if m.err != nil {
		return domain.UsageSnapshot{}, m.err
	}
	return domain.UsageSnapshot{
		Package:         pkg,
		TotalForeground: m.usage[pkg],
	}, nil
}

// fakeOverlay implements OverlayManager for testing
type fakeOverlay struct {
	shown []domain.PackageID
	err   error
}

func (f *fakeOverlay) Show(ctx context.Context, pkg domain.PackageID) error {
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, pkg)
	return nil
}

// fakeNavigator implements domain.HomeNavigator for testing
type fakeNavigator struct {
	calls int
	err   error
}

func (f *fakeNavigator) NavigateHome(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	return nil
}

var errBoom = errors.New("boom")
