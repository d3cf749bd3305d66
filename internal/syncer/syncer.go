package syncer

import (
	"context"
	"time"

	"menusync/internal/cache"
	"menusync/internal/metrics"
	"menusync/internal/mirror"
	"menusync/internal/ports"
	"menusync/internal/types"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	KindCatalog = "catalog"
	KindHours   = "hours"
)

const (
	DefaultCatalogTTL   = 6 * time.Hour
	DefaultCycleTimeout = 2 * time.Minute
	HoursTTL            = 25 * time.Hour
	FallbackHoursTTL    = 24 * time.Hour
	StatusTTL           = 5 * time.Minute
)

// Syncer runs sync cycles and is the only writer of the catalog, inventory, menu and
// hours cache keys. A Syncer without a mirror has the Square integration disabled.
type Syncer struct {
	cache     *cache.TTL[any]
	seed      []types.LocalMenuItem
	mirror    *mirror.Mirror
	hours     ports.HoursSource
	snapshots ports.SnapshotStore
	alerter   ports.Alerter
	metrics   *metrics.Recorder

	catalogTTL   time.Duration
	cycleTimeout time.Duration
	environment  string
	frequency    string
	now          func() time.Time

	flights singleflight.Group
}

type Option func(*Syncer)

func WithMirror(m *mirror.Mirror) Option              { return func(s *Syncer) { s.mirror = m } }
func WithHoursSource(h ports.HoursSource) Option      { return func(s *Syncer) { s.hours = h } }
func WithSnapshotStore(st ports.SnapshotStore) Option { return func(s *Syncer) { s.snapshots = st } }
func WithAlerter(a ports.Alerter) Option              { return func(s *Syncer) { s.alerter = a } }
func WithRecorder(r *metrics.Recorder) Option         { return func(s *Syncer) { s.metrics = r } }
func WithCatalogTTL(d time.Duration) Option           { return func(s *Syncer) { s.catalogTTL = d } }
func WithCycleTimeout(d time.Duration) Option         { return func(s *Syncer) { s.cycleTimeout = d } }
func WithClock(now func() time.Time) Option           { return func(s *Syncer) { s.now = now } }
func WithStatusInfo(environment, frequency string) Option {
	return func(s *Syncer) { s.environment, s.frequency = environment, frequency }
}

func New(c *cache.TTL[any], seed []types.LocalMenuItem, opts ...Option) *Syncer {
	s := &Syncer{
		cache:        c,
		seed:         seed,
		catalogTTL:   DefaultCatalogTTL,
		cycleTimeout: DefaultCycleTimeout,
		environment:  types.EnvironmentSandbox,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enabled reports whether catalog cycles can run at all.
func (s *Syncer) Enabled() bool {
	return s.mirror != nil
}

// SyncCatalog runs one catalog cycle: fetch, inventory, reconcile, write-through.
// A trigger that arrives while a cycle is running waits for it and gets its result with
// Joined set. On failure the cache keeps its previous contents.
func (s *Syncer) SyncCatalog(ctx context.Context) (*types.CycleResult, error) {
	if s.mirror == nil {
		return nil, types.Err(types.ErrCredentialsMissing, nil, "catalog sync")
	}

	led := false
	ch := s.flights.DoChan(KindCatalog, func() (any, error) {
		led = true
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
		defer cancel()
		return s.runCatalog(cctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*types.CycleResult)
		if !led {
			res.Joined = true
			s.metrics.SyncCycle(KindCatalog, metrics.ResultJoined, 0)
		}
		return &res, nil
	}
}

func (s *Syncer) runCatalog(ctx context.Context) (*types.CycleResult, error) {
	res := &types.CycleResult{ID: uuid.NewString(), Kind: KindCatalog, StartedAt: s.now()}
	logger := log.WithFields(log.Fields{"cycle": res.ID, "kind": KindCatalog})
	logger.Info("sync cycle started")

	items, err := s.mirror.FetchCatalogItems(ctx)
	if err != nil {
		return nil, s.fail(ctx, res, err)
	}
	counts := s.mirror.FetchInventory(ctx, mirror.InventoryIDs(items))
	items = mirror.ApplyInventory(items, counts)

	base, ok := cache.Lookup[[]types.LocalMenuItem](s.cache, cache.KeyMenu)
	if !ok || len(base) == 0 {
		base = s.seed
	}
	rec := s.mirror.Reconcile(base, items)

	res.FinishedAt = s.now()
	res.ItemCount = len(items)
	res.MatchedCount = rec.Matched
	res.Unmatched = rec.Unmatched
	res.Diagnostics = rec.Diagnostics

	s.cache.Set(cache.KeyCatalog, items, s.catalogTTL)
	s.cache.Set(cache.KeyInventory, counts, s.catalogTTL)
	s.cache.Set(cache.KeyMenu, rec.Items, s.catalogTTL)
	s.cache.Set(cache.KeyLastCycle, *res, s.catalogTTL)
	dropped := s.cache.InvalidatePattern(cache.KeyCategoryPrefix)

	if s.snapshots != nil {
		snap := types.Snapshot{Catalog: items, Inventory: counts, Menu: rec.Items, SavedAt: res.FinishedAt}
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			logger.WithError(err).Warn("snapshot not saved")
		}
	}

	took := res.FinishedAt.Sub(res.StartedAt)
	s.metrics.SyncCycle(KindCatalog, metrics.ResultSuccess, took)
	for _, d := range rec.Diagnostics {
		logger.Debug(d)
	}
	logger.WithFields(log.Fields{
		"items":       res.ItemCount,
		"tracked":     len(counts),
		"matched":     res.MatchedCount,
		"unmatched":   len(res.Unmatched),
		"invalidated": dropped,
		"took":        took.String(),
	}).Info("sync cycle finished")
	return res, nil
}

// SyncHours refreshes the operating schedule. Without an upstream, or when it fails, the
// compiled default is cached for FallbackHoursTTL; the error is still returned.
func (s *Syncer) SyncHours(ctx context.Context) (types.HoursSnapshot, error) {
	v, err, _ := s.flights.Do(KindHours, func() (any, error) {
		return s.runHours(ctx)
	})
	return v.(types.HoursSnapshot), err
}

func (s *Syncer) runHours(ctx context.Context) (types.HoursSnapshot, error) {
	start := s.now()
	if s.hours == nil {
		snap := types.HoursSnapshot{Schedule: types.DefaultSchedule, Source: types.HoursSourceDefault, FetchedAt: start}
		s.cache.Set(cache.KeyHours, snap, FallbackHoursTTL)
		log.Debug("no hours upstream, default schedule cached")
		return snap, nil
	}

	sched, err := s.hours.FetchSchedule(ctx)
	if err != nil {
		snap := types.HoursSnapshot{Schedule: types.DefaultSchedule, Source: types.HoursSourceDefault, FetchedAt: start}
		s.cache.Set(cache.KeyHours, snap, FallbackHoursTTL)
		res := &types.CycleResult{ID: uuid.NewString(), Kind: KindHours, StartedAt: start}
		return snap, s.fail(ctx, res, err)
	}

	snap := types.HoursSnapshot{Schedule: sched, Source: types.HoursSourceUpstream, FetchedAt: start}
	s.cache.Set(cache.KeyHours, snap, HoursTTL)
	s.metrics.SyncCycle(KindHours, metrics.ResultSuccess, s.now().Sub(start))
	log.WithField("kind", KindHours).Info("operating hours refreshed")
	return snap, nil
}

// Hours returns the cached schedule, or the compiled default when none is cached.
func (s *Syncer) Hours() types.HoursSnapshot {
	if snap, ok := cache.Lookup[types.HoursSnapshot](s.cache, cache.KeyHours); ok {
		return snap
	}
	return types.HoursSnapshot{Schedule: types.DefaultSchedule, Source: types.HoursSourceDefault}
}

// LastCycle returns the most recent successful catalog cycle still in cache.
func (s *Syncer) LastCycle() (types.CycleResult, bool) {
	return cache.Lookup[types.CycleResult](s.cache, cache.KeyLastCycle)
}

// Restore warms the cache from the snapshot store. Snapshots older than the catalog TTL are
// ignored. It reports whether anything was restored.
func (s *Syncer) Restore(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}
	snap, err := s.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return false, err
	}
	if snap == nil || len(snap.Catalog) == 0 {
		return false, nil
	}
	remaining := s.catalogTTL - s.now().Sub(snap.SavedAt)
	if remaining <= 0 {
		log.WithField("saved_at", snap.SavedAt).Info("snapshot too old, not restored")
		return false, nil
	}
	s.cache.Set(cache.KeyCatalog, snap.Catalog, remaining)
	s.cache.Set(cache.KeyInventory, snap.Inventory, remaining)
	if len(snap.Menu) > 0 {
		s.cache.Set(cache.KeyMenu, snap.Menu, remaining)
	}
	s.cache.InvalidatePattern(cache.KeyCategoryPrefix)
	log.WithFields(log.Fields{
		"items":    len(snap.Catalog),
		"saved_at": snap.SavedAt,
	}).Info("catalog restored from snapshot")
	return true, nil
}

// Status probes Square and reports connectivity. The report is cached for StatusTTL.
func (s *Syncer) Status(ctx context.Context) types.RemoteStatus {
	if st, ok := cache.Lookup[types.RemoteStatus](s.cache, cache.KeyStatus); ok {
		return st
	}
	st := types.RemoteStatus{
		Environment:           s.environment,
		LastCheck:             s.now(),
		SyncFrequency:         s.frequency,
		CredentialsConfigured: s.mirror != nil,
	}
	if s.mirror == nil {
		st.LastError = types.ErrCredentialsMissing.Error()
		s.cache.Set(cache.KeyStatus, st, StatusTTL)
		return st
	}

	n, err := s.mirror.ProbeLocations(ctx)
	if err != nil {
		st.LastError = err.Error()
		log.WithError(err).Warn("square status probe failed")
	} else {
		st.ServiceAvailable = true
		st.APIWorking = true
		st.LocationCount = &n
	}
	s.cache.Set(cache.KeyStatus, st, StatusTTL)
	return st
}

// Inventory answers a stock query for ids. Once a cycle has cached inventory the answer
// comes from the cache alone, ids it lacks being untracked. Before that, counts are fetched
// live when the integration is enabled.
func (s *Syncer) Inventory(ctx context.Context, ids []string) types.InventoryCounts {
	out := make(types.InventoryCounts, len(ids))
	if cached, ok := cache.Lookup[types.InventoryCounts](s.cache, cache.KeyInventory); ok {
		for _, id := range ids {
			if q, ok := cached[id]; ok {
				out[id] = q
			}
		}
		return out
	}
	if s.mirror == nil {
		return out
	}
	return s.mirror.FetchInventory(ctx, ids)
}

// Debug fetches catalog and inventory directly, bypassing the cache.
func (s *Syncer) Debug(ctx context.Context) ([]types.CatalogItem, types.InventoryCounts, error) {
	if s.mirror == nil {
		return nil, nil, types.Err(types.ErrCredentialsMissing, nil, "debug inventory")
	}
	items, err := s.mirror.FetchCatalogItems(ctx)
	if err != nil {
		return nil, nil, err
	}
	counts := s.mirror.FetchInventory(ctx, mirror.InventoryIDs(items))
	return mirror.ApplyInventory(items, counts), counts, nil
}

type alertPayload struct {
	Cycle string    `json:"cycle"`
	Kind  string    `json:"kind"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

func (s *Syncer) fail(ctx context.Context, res *types.CycleResult, cause error) error {
	err := types.Err(types.ErrSyncCycleFailure, cause, "%s cycle %s", res.Kind, res.ID)
	s.metrics.SyncCycle(res.Kind, metrics.ResultFailure, s.now().Sub(res.StartedAt))
	log.WithError(cause).WithFields(log.Fields{"cycle": res.ID, "kind": res.Kind}).Error("sync cycle failed, keeping last known good data")

	if s.alerter != nil {
		payload, _ := json.Marshal(alertPayload{Cycle: res.ID, Kind: res.Kind, Error: cause.Error(), At: s.now()})
		if aerr := s.alerter.Alert(ctx, res.Kind+" sync failed", payload); aerr != nil {
			log.WithError(aerr).Warn("sync failure alert not sent")
		}
	}
	return err
}
