package gate

import (
	"testing"
	"time"

	"menusync/internal/types"

	"github.com/stretchr/testify/suite"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// friday16 is Friday 2025-03-07 16:00 UTC, open until 21:00.
var friday16 = time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)

type GateTestSuite struct {
	suite.Suite

	clock *fakeClock
	gate  *Gate
}

func TestGateTestSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (s *GateTestSuite) SetupTest() {
	s.clock = &fakeClock{t: friday16}
	s.gate = New(WithClock(s.clock.Now), WithLocation(time.UTC))
}

func (s *GateTestSuite) TestCooldown() {
	d := s.gate.Decide("203.0.113.7")
	s.True(d.Permit)
	s.Equal(ReasonFirstVisit, d.Reason)

	s.clock.Advance(30 * time.Minute)
	d = s.gate.Decide("203.0.113.7")
	s.False(d.Permit)
	s.Equal(ReasonCooldown, d.Reason)

	s.clock.Advance(31 * time.Minute)
	d = s.gate.Decide("203.0.113.7")
	s.True(d.Permit)
	s.Equal(ReasonCooldownElapsed, d.Reason)

	// The permit above restarted the cooldown clock.
	s.clock.Advance(59 * time.Minute)
	s.False(s.gate.Decide("203.0.113.7").Permit)

	rec, ok := s.gate.Record("203.0.113.7")
	s.True(ok)
	s.Equal(4, rec.VisitCount)
	s.Equal(friday16, rec.FirstVisit)
	s.Equal(friday16.Add(61*time.Minute), rec.LastAPICall)
}

func (s *GateTestSuite) TestCooldownBoundaryIsInclusive() {
	s.True(s.gate.Decide("198.51.100.1").Permit)
	s.clock.Advance(time.Hour)
	s.True(s.gate.Decide("198.51.100.1").Permit)
}

func (s *GateTestSuite) TestIPsAreIndependent() {
	s.True(s.gate.Decide("10.0.0.1").Permit)
	s.True(s.gate.Decide("10.0.0.2").Permit)
	s.False(s.gate.Decide("10.0.0.1").Permit)
}

func (s *GateTestSuite) TestClosedMondayDeniesNewVisitor() {
	s.clock.t = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	d := s.gate.Decide("192.0.2.55")
	s.False(d.Permit)
	s.Equal(ReasonClosed, d.Reason)
	s.Equal(0, s.gate.Len(), "closed store records nothing")
}

func (s *GateTestSuite) TestFridayAfternoonPermitsNewVisitor() {
	s.True(s.gate.Decide("192.0.2.55").Permit)
}

func (s *GateTestSuite) TestClosedAfterHours() {
	// Sunday 15:00 is the exclusive end of the window.
	s.clock.t = time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	s.False(s.gate.Decide("192.0.2.1").Permit)
	s.clock.t = time.Date(2025, 3, 9, 14, 59, 0, 0, time.UTC)
	s.True(s.gate.Decide("192.0.2.1").Permit)
}

func (s *GateTestSuite) TestWithSchedule() {
	sched := types.DefaultSchedule
	sched[time.Friday] = types.DayHours{}
	g := New(WithClock(s.clock.Now), WithLocation(time.UTC), WithSchedule(sched))
	s.Equal(ReasonClosed, g.Decide("192.0.2.21").Reason)
}

func (s *GateTestSuite) TestUsesConfiguredLocation() {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		s.T().Skip("tzdata not available")
	}
	// 02:00 UTC Saturday is 21:00 Friday in New York: closed there.
	s.clock.t = time.Date(2025, 3, 8, 2, 0, 0, 0, time.UTC)
	g := New(WithClock(s.clock.Now), WithLocation(ny))
	s.False(g.Decide("192.0.2.9").Permit)
}

func (s *GateTestSuite) TestSweep() {
	s.gate.Decide("10.0.0.1")
	// Saturday 16:00 is still inside opening hours.
	s.clock.Advance(24 * time.Hour)
	s.Require().True(s.gate.Decide("10.0.0.2").Permit)

	s.clock.Advance(6*24*time.Hour + time.Minute)
	s.Equal(1, s.gate.Sweep())
	_, ok := s.gate.Record("10.0.0.1")
	s.False(ok)
	_, ok = s.gate.Record("10.0.0.2")
	s.True(ok)
}

func (s *GateTestSuite) TestMaskIP() {
	s.Equal("203.0.x.x", MaskIP("203.0.113.7"))
	s.Equal("2001:db*******", MaskIP("2001:db8::1234"))
	s.Equal("***", MaskIP("abc"))
	s.NotContains(MaskIP("2001:db8::1234"), "1234")
}
