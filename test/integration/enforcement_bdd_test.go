//go:build integration

package integration

import (
	"bytes"
	"context"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/screenguard/screenguard/internal/domain"
	"github.com/screenguard/screenguard/internal/engine"
	"github.com/screenguard/screenguard/internal/infra"
	"github.com/screenguard/screenguard/internal/overlay"
	"github.com/screenguard/screenguard/internal/usage"
	"github.com/screenguard/screenguard/test/fixtures"
)

const (
	pkgGames = domain.PackageID("com.example.games")
	pkgNotes = domain.PackageID("com.example.notes")
)

var _ = Describe("Usage Limit Enforcement", func() {
	var (
		dataDir  string
		key      []byte
		store    *infra.EncryptedStore
		host     *fixtures.FakeHost
		mock     *clock.Mock
		monitor  *engine.Monitor
		recorder *usage.Recorder
		ctx      context.Context
	)

	// sample delivers one foreground event for pkg at the current mock
	// time, the way the daemon loop does: record first, then evaluate.
	sample := func(pkg domain.PackageID) {
		event := domain.ForegroundEvent{Package: pkg, At: mock.Now()}
		recorder.Record(event)
		monitor.HandleEvent(ctx, event)
	}

	BeforeEach(func() {
		ctx = context.Background()
		dataDir = GinkgoT().TempDir()

		var err error
		key, err = infra.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.NewEncryptedStore(dataDir, key)
		Expect(err).NotTo(HaveOccurred())

		host = fixtures.NewFakeHost()
		mock = clock.NewMock()
		mock.Set(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local))

		logger := zap.NewNop()
		provider := usage.NewStoreProvider(store)
		recorder = usage.NewRecorder(store, 2*time.Minute, logger)

		names := fixtures.StaticNames{pkgGames: "Games"}
		overlayMgr := overlay.NewManager(host, host, store, provider, names,
			3*time.Second, mock, logger)

		evaluator := engine.NewEvaluator(store, provider, 500*time.Millisecond, logger)
		coordinator := engine.NewCoordinator(engine.DefaultCoordinatorConfig(),
			overlayMgr, host, mock, logger)
		monitor = engine.NewMonitor("screenguard", evaluator, coordinator, logger)
	})

	AfterEach(func() {
		store.Close()
	})

	Describe("reaching a daily limit", func() {
		BeforeEach(func() {
			Expect(store.SetLimit(domain.TimerLimit{
				Package: pkgGames, LimitMinutes: 1,
			})).To(Succeed())
		})

		It("blocks the app once accumulated usage reaches the limit", func() {
			// Six 10s gaps accumulate exactly one minute of usage.
			for i := 0; i < 6; i++ {
				sample(pkgGames)
				Expect(host.Shown()).To(BeEmpty(), "must not block before the limit")
				mock.Add(10 * time.Second)
			}

			sample(pkgGames)

			shown := host.Shown()
			Expect(shown).To(HaveLen(1))
			Expect(shown[0].Package).To(Equal(pkgGames))
			Expect(shown[0].Text).To(ContainSubstring("1 minute limit for Games"))
			Expect(host.Navigations()).To(Equal(1))
		})

		It("swallows repeated exceeded events inside the cooldown", func() {
			for i := 0; i < 6; i++ {
				sample(pkgGames)
				mock.Add(10 * time.Second)
			}
			sample(pkgGames)
			Expect(host.Shown()).To(HaveLen(1))

			// The app stays in front; samples keep arriving every second.
			for i := 0; i < 4; i++ {
				mock.Add(time.Second)
				sample(pkgGames)
			}
			Expect(host.Shown()).To(HaveLen(1), "cooldown must absorb the burst")

			mock.Add(time.Second)
			sample(pkgGames)
			Expect(host.Shown()).To(HaveLen(2), "next intervention after the cooldown")
		})

		It("auto-dismisses the overlay without navigating again", func() {
			for i := 0; i < 6; i++ {
				sample(pkgGames)
				mock.Add(10 * time.Second)
			}
			sample(pkgGames)
			Expect(host.SurfaceUp()).To(BeTrue())
			navigations := host.Navigations()

			mock.Add(3 * time.Second)

			Expect(host.SurfaceUp()).To(BeFalse())
			Expect(host.Navigations()).To(Equal(navigations))
		})

		It("keeps enforcing when the surface is denied", func() {
			host.FailSurface(domain.ErrSurfaceDenied)

			for i := 0; i < 6; i++ {
				sample(pkgGames)
				mock.Add(10 * time.Second)
			}
			sample(pkgGames)

			Expect(host.Shown()).To(BeEmpty())
			Expect(host.Navigations()).To(Equal(1), "home navigation still fires")
		})
	})

	Describe("apps outside enforcement", func() {
		It("leaves apps without a limit alone", func() {
			for i := 0; i < 20; i++ {
				sample(pkgNotes)
				mock.Add(time.Minute)
			}

			Expect(host.Shown()).To(BeEmpty())
			Expect(host.Navigations()).To(BeZero())
		})

		It("respects the ignore list even when a limit exists", func() {
			Expect(store.SetLimit(domain.TimerLimit{
				Package: pkgGames, LimitMinutes: 1,
			})).To(Succeed())
			Expect(store.SetIgnored(pkgGames, true)).To(Succeed())

			for i := 0; i < 10; i++ {
				sample(pkgGames)
				mock.Add(time.Minute)
			}

			Expect(host.Shown()).To(BeEmpty())
		})
	})

	Describe("persistence", func() {
		It("keeps limits and recorded usage across a restart", func() {
			Expect(store.SetLimit(domain.TimerLimit{
				Package: pkgGames, LimitMinutes: 30,
			})).To(Succeed())

			sample(pkgGames)
			mock.Add(10 * time.Second)
			sample(pkgGames)
			recorder.Flush()

			Expect(store.Close()).To(Succeed())

			reopened, err := infra.NewEncryptedStore(dataDir, key)
			Expect(err).NotTo(HaveOccurred())
			store = reopened

			limit, err := store.Limit(pkgGames)
			Expect(err).NotTo(HaveOccurred())
			Expect(limit.LimitMinutes).To(Equal(30))

			snapshot, err := store.UsageSince(ctx, pkgGames,
				usage.LocalMidnight(mock.Now()), mock.Now().Add(time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.TotalForeground).To(Equal(10 * time.Second))
		})
	})

	Describe("usage export", func() {
		It("writes recorded sessions as CSV", func() {
			sample(pkgGames)
			mock.Add(30 * time.Second)
			sample(pkgGames)
			recorder.Flush()

			totals, err := store.TotalsSince(ctx,
				usage.LocalMidnight(mock.Now()), mock.Now().Add(time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(totals).To(HaveLen(1))

			var buf bytes.Buffer
			names := fixtures.StaticNames{pkgGames: "Games"}
			Expect(usage.WriteCSV(&buf, totals, names)).To(Succeed())

			Expect(buf.String()).To(ContainSubstring("Package Name,App Name,Total Time (ms)"))
			Expect(buf.String()).To(ContainSubstring("com.example.games,Games,30000"))
		})
	})
})
