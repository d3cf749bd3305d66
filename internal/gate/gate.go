package gate

import (
	"context"
	"sync"
	"time"

	"menusync/internal/types"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultCooldown      = time.Hour
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultSweepInterval = 4 * time.Hour
)

const (
	ReasonClosed          = "closed"
	ReasonFirstVisit      = "first_visit"
	ReasonCooldownElapsed = "cooldown_elapsed"
	ReasonCooldown        = "cooldown"
)

// Decision tells the caller whether a request may pay for a live Square pull.
type Decision struct {
	Permit bool
	Reason string
}

// Gate throttles live catalog pulls per client IP and refuses them while the store is closed.
// It is the only owner of visitor records.
type Gate struct {
	mu        sync.Mutex
	visitors  map[string]*types.VisitorRecord
	schedule  types.Schedule
	cooldown  time.Duration
	retention time.Duration
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Gate)

func WithCooldown(d time.Duration) Option    { return func(g *Gate) { g.cooldown = d } }
func WithRetention(d time.Duration) Option   { return func(g *Gate) { g.retention = d } }
func WithSchedule(s types.Schedule) Option   { return func(g *Gate) { g.schedule = s } }
func WithLocation(loc *time.Location) Option { return func(g *Gate) { g.loc = loc } }
func WithClock(now func() time.Time) Option  { return func(g *Gate) { g.now = now } }

func New(opts ...Option) *Gate {
	g := &Gate{
		visitors:  make(map[string]*types.VisitorRecord),
		schedule:  types.DefaultSchedule,
		cooldown:  DefaultCooldown,
		retention: DefaultRetention,
		loc:       time.Local,
		now:       time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Decide records the request from ip and reports whether a fresh pull is warranted.
// While the store is closed nothing is recorded.
func (g *Gate) Decide(ip string) Decision {
	now := g.now().In(g.loc)
	if !g.schedule.IsOpen(now) {
		return Decision{Permit: false, Reason: ReasonClosed}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.visitors[ip]
	if !ok {
		g.visitors[ip] = &types.VisitorRecord{FirstVisit: now, LastAPICall: now, VisitCount: 1}
		log.WithField("ip", MaskIP(ip)).Debug("new visitor, fresh pull permitted")
		return Decision{Permit: true, Reason: ReasonFirstVisit}
	}

	rec.VisitCount++
	if now.Sub(rec.LastAPICall) >= g.cooldown {
		rec.LastAPICall = now
		log.WithFields(log.Fields{
			"ip":     MaskIP(ip),
			"visits": rec.VisitCount,
		}).Debug("visitor cooldown elapsed, fresh pull permitted")
		return Decision{Permit: true, Reason: ReasonCooldownElapsed}
	}
	return Decision{Permit: false, Reason: ReasonCooldown}
}

// Now is the gate's clock in its configured location.
func (g *Gate) Now() time.Time {
	return g.now().In(g.loc)
}

// Record returns a copy of the visitor record for ip.
func (g *Gate) Record(ip string) (types.VisitorRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.visitors[ip]
	if !ok {
		return types.VisitorRecord{}, false
	}
	return *rec, true
}

func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.visitors)
}

// Sweep purges records whose first visit is older than the retention period.
func (g *Gate) Sweep() int {
	cutoff := g.now().Add(-g.retention)
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for ip, rec := range g.visitors {
		if rec.FirstVisit.Before(cutoff) {
			delete(g.visitors, ip)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done. This is a blocking call.
func (g *Gate) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				log.WithField("purged", n).Info("visitor records purged")
			}
		}
	}
}
