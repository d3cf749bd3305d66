package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultJobTimeout bounds one scheduled run.
const DefaultJobTimeout = 5 * time.Minute

// Trigger is one row of the scheduler's trigger table.
type Trigger struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
}

// Scheduler fires sync cycles at fixed wall-clock times in the configured timezone.
type Scheduler struct {
	syncer     *Syncer
	cron       *cron.Cron
	jobTimeout time.Duration
	running    atomic.Bool

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler registers the catalog windows and, when hoursSpec is not empty, the daily
// hours refresh. A catalog spec is ignored when the Syncer has no Square integration.
func NewScheduler(s *Syncer, loc *time.Location, catalogSpec, hoursSpec string) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	sc := &Scheduler{
		syncer: s,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		jobTimeout: DefaultJobTimeout,
		entries:    make(map[string]cron.EntryID),
		specs:      make(map[string]string),
		ctx:        ctx,
		cancel:     cancel,
	}

	if s.Enabled() && catalogSpec != "" {
		if err := sc.add(KindCatalog, catalogSpec, func(ctx context.Context) error {
			_, err := s.SyncCatalog(ctx)
			return err
		}); err != nil {
			cancel()
			return nil, err
		}
	}
	if hoursSpec != "" {
		if err := sc.add(KindHours, hoursSpec, func(ctx context.Context) error {
			_, err := s.SyncHours(ctx)
			return err
		}); err != nil {
			cancel()
			return nil, err
		}
	}
	return sc, nil
}

func (sc *Scheduler) add(name, spec string, job func(ctx context.Context) error) error {
	id, err := sc.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(sc.ctx, sc.jobTimeout)
		defer cancel()
		logger := log.WithField("trigger", name)
		logger.Debug("scheduled sync fired")
		if err := job(ctx); err != nil {
			logger.WithError(err).Warn("scheduled sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	sc.mu.Lock()
	sc.entries[name] = id
	sc.specs[name] = spec
	sc.mu.Unlock()
	return nil
}

// Start begins firing triggers. A second call is a no-op.
func (sc *Scheduler) Start() error {
	if !sc.running.CompareAndSwap(false, true) {
		log.Info("scheduler already running")
		return nil
	}
	sc.cron.Start()
	for _, t := range sc.Triggers() {
		log.WithFields(log.Fields{
			"trigger": t.Name,
			"spec":    t.Spec,
			"next":    t.Next.Format(time.RFC3339),
		}).Info("sync trigger registered")
	}
	return nil
}

// Stop halts the triggers, cancels running jobs and waits for them or for ctx.
func (sc *Scheduler) Stop(ctx context.Context) error {
	if !sc.running.CompareAndSwap(true, false) {
		return nil
	}
	done := sc.cron.Stop()
	sc.cancel()
	select {
	case <-done.Done():
		log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and stops it when ctx is done.
func (sc *Scheduler) Run(ctx context.Context) error {
	if err := sc.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = sc.Stop(stopCtx)
	return nil
}

// Triggers lists the registered triggers sorted by name. Next is zero until Start.
func (sc *Scheduler) Triggers() []Trigger {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]Trigger, 0, len(sc.entries))
	for name, id := range sc.entries {
		out = append(out, Trigger{Name: name, Spec: sc.specs[name], Next: sc.cron.Entry(id).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe renders the catalog windows as operators read them.
func (sc *Scheduler) Describe() string {
	sc.mu.Lock()
	spec, ok := sc.specs[KindCatalog]
	sc.mu.Unlock()
	if !ok {
		return "disabled"
	}
	return DescribeSpec(spec)
}

// DescribeHours renders daily sync hours, e.g. "daily at 09:00, 12:00".
func DescribeHours(hours []int) string {
	if len(hours) == 0 {
		return "disabled"
	}
	parts := make([]string, 0, len(hours))
	for _, h := range hours {
		parts = append(parts, fmt.Sprintf("%02d:00", h))
	}
	return "daily at " + strings.Join(parts, ", ")
}

// DescribeSpec renders a "0 H1,H2 * * *" spec with DescribeHours and returns any other
// spec unchanged.
func DescribeSpec(spec string) string {
	f := strings.Fields(spec)
	if len(f) != 5 || f[0] != "0" || f[2] != "*" || f[3] != "*" || f[4] != "*" {
		return spec
	}
	var hours []int
	for _, p := range strings.Split(f[1], ",") {
		var h int
		if _, err := fmt.Sscanf(p, "%d", &h); err != nil || fmt.Sprint(h) != p {
			return spec
		}
		hours = append(hours, h)
	}
	return DescribeHours(hours)
}

// cronLogger routes robfig/cron's own logging through logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(kv []any) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
