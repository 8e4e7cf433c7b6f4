package infra

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
)

// ExecNavigator implements domain.HomeNavigator by shelling out to the
// platform's "go to neutral screen" command. Failures are returned for
// logging, never fatal.
type ExecNavigator struct {
	logger *zap.Logger
}

// NewExecNavigator creates a host home navigator.
func NewExecNavigator(logger *zap.Logger) *ExecNavigator {
	return &ExecNavigator{logger: logger}
}

// NavigateHome forces the foreground away from the current application.
func (n *ExecNavigator) NavigateHome(ctx context.Context) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "osascript", "-e",
			`tell application "Finder" to activate`)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdotool", "getactivewindow", "windowminimize")
	default:
		return fmt.Errorf("home navigation unsupported on %s", runtime.GOOS)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("home navigation failed: %w", err)
	}
	n.logger.Debug("navigated to neutral screen")
	return nil
}

// DialogSurface implements domain.BlockSurface with a host dialog helper
// process. At most one helper runs at a time; Show replaces a running
// helper and Hide kills it. Both are idempotent.
type DialogSurface struct {
	logger *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewDialogSurface creates a host block surface.
func NewDialogSurface(logger *zap.Logger) *DialogSurface {
	return &DialogSurface{logger: logger}
}

// Show renders the blocking dialog. The helper runs detached; its exit
// (user pressing OK) is not waited on here.
func (s *DialogSurface) Show(ctx context.Context, pkg domain.PackageID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.killLocked()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display dialog %q with title "Time's Up!" buttons {"OK"} default button "OK" with icon stop`, text)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("zenity", "--warning", "--title=Time's Up!", "--text="+text)
	default:
		return fmt.Errorf("%w: no surface on %s", domain.ErrSurfaceDenied, runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSurfaceDenied, err)
	}
	s.cmd = cmd

	// Reap the helper so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()

	s.logger.Debug("block surface shown", zap.String("package", string(pkg)))
	return nil
}

// Hide tears the dialog down. Hiding when hidden is a no-op.
func (s *DialogSurface) Hide(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

// killLocked terminates the running helper, if any. Caller holds mu.
func (s *DialogSurface) killLocked() {
	if s.cmd == nil || s.cmd.Process == nil {
		s.cmd = nil
		return
	}
	_ = s.cmd.Process.Kill()
	s.cmd = nil
}

// Ensure host adapters implement the domain interfaces.
var (
	_ domain.HomeNavigator = (*ExecNavigator)(nil)
	_ domain.BlockSurface  = (*DialogSurface)(nil)
)
