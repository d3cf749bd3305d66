package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menusync/internal/api"
	"menusync/internal/backends"
	"menusync/internal/cache"
	"menusync/internal/config"
	"menusync/internal/gate"
	"menusync/internal/hours"
	"menusync/internal/menu"
	"menusync/internal/metrics"
	"menusync/internal/mirror"
	"menusync/internal/square"
	"menusync/internal/syncer"
	"menusync/internal/types"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	config.LoadEnvFile()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	config.ApplyLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("menusync stopped")
	}
}

func run(ctx context.Context, cfg types.Config) error {
	seed, err := menu.DefaultSeed()
	if err != nil {
		return err
	}
	loc := cfg.Location()
	c := cache.NewTTL[any]()
	rec := metrics.New(c.Len)

	opts := []syncer.Option{
		syncer.WithCatalogTTL(cfg.Sync.CatalogTTL),
		syncer.WithRecorder(rec),
		syncer.WithStatusInfo(cfg.Square.Environment, syncer.DescribeHours(cfg.Sync.CatalogHours)),
	}
	if cfg.Square.Enabled() {
		client := square.NewClient(cfg.Square)
		opts = append(opts, syncer.WithMirror(mirror.New(client, cfg.Square.LocationID)))
	} else {
		log.Warn("Square credentials not configured, serving the static menu only")
	}
	if cfg.Hours.SourceURL != "" {
		src, err := hours.NewHTTPSource(cfg.Hours.SourceURL, cfg.Hours.PeriodsExpr, cfg.Square.Timeout)
		if err != nil {
			return err
		}
		opts = append(opts, syncer.WithHoursSource(src))
	}
	snapshots, err := backends.SnapshotStoreFromEnv(cfg)
	if err != nil {
		return err
	}
	if snapshots != nil {
		opts = append(opts, syncer.WithSnapshotStore(snapshots))
	}
	alerter, err := backends.AlerterFromEnv(ctx, cfg)
	if err != nil {
		return err
	}
	if alerter != nil {
		opts = append(opts, syncer.WithAlerter(alerter))
	}
	sy := syncer.New(c, seed, opts...)

	if _, err := sy.Restore(ctx); err != nil {
		log.WithError(err).Warn("snapshot restore failed")
	}
	if _, err := sy.SyncHours(ctx); err != nil {
		log.WithError(err).Warn("initial hours sync failed, using default schedule")
	}

	g := gate.New(
		gate.WithCooldown(cfg.Sync.VisitorCooldown),
		gate.WithLocation(loc),
	)
	sched, err := syncer.NewScheduler(sy, loc, cfg.Sync.CatalogSpec(), cfg.Sync.HoursSpec())
	if err != nil {
		return err
	}

	h := api.NewHandler(menu.NewReader(c, seed, cfg.Sync.CatalogTTL), sy, g, rec, cfg.AdminKey)
	if cfg.Square.Timeout > 0 {
		h.PullTimeout = cfg.Square.Timeout + 5*time.Second
	}

	log.WithFields(log.Fields{
		"environment": cfg.Square.Environment,
		"square":      cfg.Square.Enabled(),
		"timezone":    loc.String(),
		"sync":        sched.Describe(),
		"snapshots":   cfg.SnapshotBackend,
	}).Info("menusync starting")

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return api.Serve(egCtx, cfg.HTTPPort, h) })
	eg.Go(func() error { return sched.Run(egCtx) })
	eg.Go(func() error { return c.Run(egCtx, cacheSweepInterval) })
	eg.Go(func() error { return g.Run(egCtx, gate.DefaultSweepInterval) })
	return eg.Wait()
}
