// Package fixtures provides fake host adapters for integration tests.
package fixtures

import (
	"context"
	"sync"

	"github.com/screenguard/screenguard/internal/domain"
)

// FakeHost stands in for the real desktop: it records home navigations and
// overlay calls instead of touching the window system.
type FakeHost struct {
	mu          sync.Mutex
	navigations int
	surfaceUp   bool
	shown       []ShownOverlay
	showErr     error
}

// ShownOverlay is one recorded Show call.
type ShownOverlay struct {
	Package domain.PackageID
	Text    string
}

// NewFakeHost creates a fake host with all surfaces working.
func NewFakeHost() *FakeHost {
	return &FakeHost{}
}

// NavigateHome records a forced home navigation.
func (h *FakeHost) NavigateHome(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigations++
	return nil
}

// Show records an overlay display.
func (h *FakeHost) Show(ctx context.Context, pkg domain.PackageID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.showErr != nil {
		return h.showErr
	}
	h.surfaceUp = true
	h.shown = append(h.shown, ShownOverlay{Package: pkg, Text: text})
	return nil
}

// Hide records an overlay teardown.
func (h *FakeHost) Hide(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaceUp = false
	return nil
}

// FailSurface makes every subsequent Show return the given error.
func (h *FakeHost) FailSurface(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.showErr = err
}

// Navigations returns the number of home navigations so far.
func (h *FakeHost) Navigations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.navigations
}

// Shown returns a copy of the recorded overlay calls.
func (h *FakeHost) Shown() []ShownOverlay {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ShownOverlay, len(h.shown))
	copy(out, h.shown)
	return out
}

// SurfaceUp reports whether an overlay is currently rendered.
func (h *FakeHost) SurfaceUp() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaceUp
}

var (
	_ domain.HomeNavigator = (*FakeHost)(nil)
	_ domain.BlockSurface  = (*FakeHost)(nil)
)

// ScriptedEvents is an EventSource fed by the test instead of the host.
type ScriptedEvents struct {
	ch chan domain.ForegroundEvent
}

// NewScriptedEvents creates a scripted event source.
func NewScriptedEvents() *ScriptedEvents {
	return &ScriptedEvents{ch: make(chan domain.ForegroundEvent, 64)}
}

// Emit queues one foreground event.
func (s *ScriptedEvents) Emit(event domain.ForegroundEvent) {
	s.ch <- event
}

// Close ends the stream.
func (s *ScriptedEvents) Close() {
	close(s.ch)
}

// Events returns the event channel.
func (s *ScriptedEvents) Events() <-chan domain.ForegroundEvent {
	return s.ch
}

// Run blocks until the context is canceled; the test drives delivery.
func (s *ScriptedEvents) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var _ domain.EventSource = (*ScriptedEvents)(nil)

// StaticNames resolves display names from a fixed map, falling back to the
// raw package id.
type StaticNames map[domain.PackageID]string

// DisplayName implements domain.AppInfoProvider.
func (n StaticNames) DisplayName(pkg domain.PackageID) string {
	if name, ok := n[pkg]; ok {
		return name
	}
	return string(pkg)
}

var _ domain.AppInfoProvider = (StaticNames)(nil)
