// Package main is the CLI entry point for screenguard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/screenguard/screenguard/internal/config"
	"github.com/screenguard/screenguard/internal/daemon"
	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/engine"
	"github.com/screenguard/screenguard/internal/infra"
	"github.com/screenguard/screenguard/internal/metrics"
	"github.com/screenguard/screenguard/internal/overlay"
	"github.com/screenguard/screenguard/internal/usage"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	configFile string
	jsonOutput bool
	exportOut  string
	exportFrom string
	exportTo   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screenguard",
	Short: "Personal screen-time limits with enforcement",
	Long: `screenguard watches which application is in the foreground, compares
today's accumulated usage against per-application daily limits, and when a
limit is exceeded forces the user back to a neutral screen and shows a
blocking notice.

Limits persist across restarts; cooldown state does not.`,
	Version: Version,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the enforcement monitor (foreground)",
	Long: `Runs the monitoring loop: samples the foreground application, records
usage sessions, evaluates limits, and intervenes on violations. Blocks
until interrupted.`,
	RunE: runMonitor,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show limits and today's usage",
	RunE:  runStatus,
}

var limitCmd = &cobra.Command{
	Use:   "limit",
	Short: "Manage per-application daily limits",
}

var limitSetCmd = &cobra.Command{
	Use:   "set <package> <minutes>",
	Short: "Set a daily limit for a package",
	Args:  cobra.ExactArgs(2),
	RunE:  runLimitSet,
}

var limitRemoveCmd = &cobra.Command{
	Use:   "remove <package>",
	Short: "Remove a package's daily limit",
	Args:  cobra.ExactArgs(1),
	RunE:  runLimitRemove,
}

var limitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured limits",
	RunE:  runLimitList,
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage the ignore list",
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <package>",
	Short: "Never evaluate a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreAdd,
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <package>",
	Short: "Evaluate a package again",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreRemove,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ignored packages",
	RunE:  runIgnoreList,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's recorded usage per package",
	RunE:  runUsage,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded usage as CSV",
	RunE:  runExport,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default usage_stats_<timestamp>.csv)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD, inclusive, default today)")

	limitCmd.AddCommand(limitSetCmd)
	limitCmd.AddCommand(limitRemoveCmd)
	limitCmd.AddCommand(limitListCmd)
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
	ignoreCmd.AddCommand(ignoreListCmd)

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(limitCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore loads config and opens the encrypted store, generating the
// key on first run.
func openStore() (*config.Config, *infra.EncryptedStore, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	keys := infra.NewFileKeyProvider(cfg.Storage.DataDir)
	key, err := infra.EnsureKey(keys)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare store key: %w", err)
	}

	store, err := infra.NewEncryptedStore(cfg.Storage.DataDir, key)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	logger := createLogger(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	clk := clock.New()

	frontmost := infra.HostFrontmost()
	if frontmost == nil {
		return fmt.Errorf("foreground detection is not supported on this platform")
	}

	source := infra.NewPollingEventSource(frontmost, cfg.Engine.PollInterval, clk, logger)
	recorder := usage.NewRecorder(store, cfg.Engine.InactivityTimeout, logger)
	provider := usage.NewStoreProvider(store)
	appInfo := infra.NewCachedAppInfo(nil)
	navigator := infra.NewExecNavigator(logger)
	surface := infra.NewDialogSurface(logger)

	overlayMgr := overlay.NewManager(
		surface, navigator, store, provider, appInfo,
		cfg.Engine.AutoDismissTimeout, clk, logger)

	evaluator := engine.NewEvaluator(store, provider, cfg.Engine.QueryTimeout, logger)
	coordinator := engine.NewCoordinator(
		engine.CoordinatorConfig{
			InterventionCooldown: cfg.Engine.InterventionCooldown,
			HomeActionCooldown:   cfg.Engine.HomeActionCooldown,
		},
		overlayMgr, navigator, clk, logger)
	monitor := engine.NewMonitor(
		domain.PackageID(cfg.Engine.SelfPackage), evaluator, coordinator, logger)

	monitord := daemon.New(
		daemon.Config{RetentionDays: cfg.Storage.RetentionDays, CleanupInterval: time.Hour},
		source, recorder, monitor, store, clk, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		if err := metrics.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
			logger.Warn("metrics listener failed to start", zap.Error(err))
		}
	}

	if err := monitord.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	// Don't leave a stale overlay behind.
	overlayMgr.Hide(context.Background())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limits, err := store.Limits()
	if err != nil {
		return err
	}

	fmt.Println("\n=== screenguard Status ===")
	fmt.Printf("Store: %s\n", store.Path())
	fmt.Printf("Intervention cooldown: %s, home cooldown: %s, auto-dismiss: %s\n",
		cfg.Engine.InterventionCooldown, cfg.Engine.HomeActionCooldown, cfg.Engine.AutoDismissTimeout)

	if len(limits) == 0 {
		fmt.Println("\nNo limits configured. Use 'screenguard limit set <package> <minutes>'.")
		return nil
	}

	provider := usage.NewStoreProvider(store)
	now := time.Now()

	fmt.Println("\nLimits:")
	for _, limit := range limits {
		snapshot, err := provider.TodayUsage(context.Background(), limit.Package, now)
		if err != nil {
			fmt.Printf("  %-40s %4dm limit (usage unavailable)\n", limit.Package, limit.LimitMinutes)
			continue
		}
		marker := ""
		if snapshot.Minutes() >= limit.LimitMinutes {
			marker = "  [EXCEEDED]"
		}
		fmt.Printf("  %-40s %4dm limit, used %s%s\n",
			limit.Package, limit.LimitMinutes,
			usage.FormatDuration(snapshot.TotalForeground), marker)
	}

	ignored, err := store.Ignored()
	if err == nil && len(ignored) > 0 {
		fmt.Println("\nIgnored packages:")
		for _, pkg := range ignored {
			fmt.Printf("  - %s\n", pkg)
		}
	}

	fmt.Println("==========================")
	return nil
}

func runLimitSet(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.Atoi(args[1])
	if err != nil || minutes <= 0 {
		return fmt.Errorf("minutes must be a positive integer, got %q", args[1])
	}

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit := domain.TimerLimit{Package: domain.PackageID(args[0]), LimitMinutes: minutes}
	if err := store.SetLimit(limit); err != nil {
		return err
	}

	fmt.Printf("Limit set: %s -> %d minutes/day\n", limit.Package, limit.LimitMinutes)
	return nil
}

func runLimitRemove(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveLimit(domain.PackageID(args[0])); err != nil {
		return err
	}
	fmt.Printf("Limit removed: %s\n", args[0])
	return nil
}

func runLimitList(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limits, err := store.Limits()
	if err != nil {
		return err
	}
	if len(limits) == 0 {
		fmt.Println("No limits configured.")
		return nil
	}
	for _, limit := range limits {
		fmt.Printf("%-40s %d minutes/day\n", limit.Package, limit.LimitMinutes)
	}
	return nil
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	return setIgnored(args[0], true)
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	return setIgnored(args[0], false)
}

func setIgnored(pkg string, ignored bool) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetIgnored(domain.PackageID(pkg), ignored); err != nil {
		return err
	}
	if ignored {
		fmt.Printf("Ignoring %s\n", pkg)
	} else {
		fmt.Printf("No longer ignoring %s\n", pkg)
	}
	return nil
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ignored, err := store.Ignored()
	if err != nil {
		return err
	}
	if len(ignored) == 0 {
		fmt.Println("Ignore list is empty.")
		return nil
	}
	for _, pkg := range ignored {
		fmt.Println(pkg)
	}
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	totals, err := store.TotalsSince(context.Background(), usage.LocalMidnight(now), now)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Println("No usage recorded today.")
		return nil
	}

	appInfo := infra.NewCachedAppInfo(nil)
	for _, total := range totals {
		fmt.Printf("%-40s %-20s %8s  %d sessions\n",
			total.Package,
			appInfo.DisplayName(total.Package),
			usage.FormatDuration(total.TotalForeground),
			len(total.SessionStarts))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	since := usage.LocalMidnight(now)
	until := now

	if exportFrom != "" {
		since, err = time.ParseInLocation("2006-01-02", exportFrom, now.Location())
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if exportTo != "" {
		to, err := time.ParseInLocation("2006-01-02", exportTo, now.Location())
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		until = to.AddDate(0, 0, 1)
	}

	totals, err := store.TotalsSince(context.Background(), since, until)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = filepath.Join(".", usage.ExportFileName(now))
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	appInfo := infra.NewCachedAppInfo(nil)
	if err := usage.WriteCSV(f, totals, appInfo); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d packages to %s\n", len(totals), out)
	return nil
}

func createLogger(cfg config.LoggingConfig) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("screenguard %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
