package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type TTLTestSuite struct {
	suite.Suite

	clock *fakeClock
	c     *TTL[any]
}

func TestTTLTestSuite(t *testing.T) {
	suite.Run(t, new(TTLTestSuite))
}

func (s *TTLTestSuite) SetupTest() {
	s.clock = &fakeClock{t: time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)}
	s.c = NewTTL[any](WithClock[any](s.clock.Now))
}

func (s *TTLTestSuite) TestExpiry() {
	for _, ttl := range []time.Duration{time.Minute, 5 * time.Minute, 6 * time.Hour} {
		s.c.Set("key1", "value1", ttl)
		v, ok := s.c.Get("key1")
		s.True(ok)
		s.Equal("value1", v)

		// Still there exactly at the boundary.
		s.clock.Advance(ttl)
		s.True(s.c.Has("key1"))

		s.clock.Advance(time.Nanosecond)
		v, ok = s.c.Get("key1")
		s.False(ok)
		s.Nil(v)
		s.Equal(0, s.c.Len(), "expired entry is removed by the lookup")
	}
}

func (s *TTLTestSuite) TestSetOverwrites() {
	s.c.Set("k", 1, time.Minute)
	s.clock.Advance(50 * time.Second)
	s.c.Set("k", 2, time.Minute)
	s.clock.Advance(50 * time.Second)
	v, ok := s.c.Get("k")
	s.True(ok)
	s.Equal(2, v)
}

func (s *TTLTestSuite) TestInvalidate() {
	s.c.Set("a", 1, time.Hour)
	s.c.Invalidate("a")
	s.False(s.c.Has("a"))
	// Unknown keys are fine.
	s.c.Invalidate("missing")
}

func (s *TTLTestSuite) TestInvalidatePattern() {
	s.c.Set("menu_category_pancakes", 1, time.Hour)
	s.c.Set("menu_category_burgers", 2, time.Hour)
	s.c.Set("square_status", 3, time.Hour)

	n := s.c.InvalidatePattern(KeyCategoryPrefix)
	s.Equal(2, n)
	s.False(s.c.Has("menu_category_pancakes"))
	s.False(s.c.Has("menu_category_burgers"))
	s.True(s.c.Has("square_status"))
}

func (s *TTLTestSuite) TestClear() {
	s.c.Set("a", 1, time.Hour)
	s.c.Set("b", 2, time.Hour)
	s.c.Clear()
	s.Equal(0, s.c.Len())
}

func (s *TTLTestSuite) TestSweep() {
	s.c.Set("short", 1, time.Minute)
	s.c.Set("long", 2, time.Hour)
	s.clock.Advance(2 * time.Minute)
	s.Equal(1, s.c.Sweep())
	s.Equal(1, s.c.Len())
	s.True(s.c.Has("long"))
}

func (s *TTLTestSuite) TestLookupTyped() {
	s.c.Set("items", []string{"a", "b"}, time.Hour)
	items, ok := Lookup[[]string](s.c, "items")
	s.True(ok)
	s.Equal([]string{"a", "b"}, items)

	_, ok = Lookup[int](s.c, "items")
	s.False(ok, "type mismatch is a miss")
}

func (s *TTLTestSuite) TestRunStopsWithContext() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.c.Run(ctx, time.Millisecond) }()
	cancel()
	s.NoError(<-done)
}

func (s *TTLTestSuite) TestCategoryKey() {
	s.Equal("menu_category_all", CategoryKey(""))
	s.Equal("menu_category_pancakes", CategoryKey(" Pancakes "))
	s.Equal("menu_category_breakfast plates", CategoryKey("Breakfast Plates"))
	s.NotEqual(CategoryKey("menu_items"), CategoryKey("Menu Items"))
}
