package syncer

import (
	"context"
	"testing"
	"time"

	"menusync/internal/cache"
	"menusync/internal/mirror"

	"github.com/stretchr/testify/suite"
)

type SchedulerTestSuite struct {
	suite.Suite
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) enabledSyncer() *Syncer {
	return New(cache.NewTTL[any](), nil, WithMirror(mirror.New(&fakeAPI{}, "L1")))
}

func (s *SchedulerTestSuite) TestTriggerTable() {
	sc, err := NewScheduler(s.enabledSyncer(), time.UTC, "0 9,12 * * *", "0 6 * * *")
	s.Require().NoError(err)

	tr := sc.Triggers()
	s.Require().Len(tr, 2)
	s.Equal(KindCatalog, tr[0].Name)
	s.Equal("0 9,12 * * *", tr[0].Spec)
	s.Equal(KindHours, tr[1].Name)
	s.True(tr[0].Next.IsZero(), "not started")
	s.Equal("daily at 09:00, 12:00", sc.Describe())
}

func (s *SchedulerTestSuite) TestStartIsIdempotent() {
	sc, err := NewScheduler(s.enabledSyncer(), time.UTC, "0 9,12 * * *", "")
	s.Require().NoError(err)

	s.NoError(sc.Start())
	s.NoError(sc.Start())
	tr := sc.Triggers()
	s.Require().Len(tr, 1)
	s.False(tr[0].Next.IsZero())
	s.Contains([]int{9, 12}, tr[0].Next.In(time.UTC).Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.NoError(sc.Stop(ctx))
	s.NoError(sc.Stop(ctx), "second stop is a no-op")
}

func (s *SchedulerTestSuite) TestDisabledIntegrationSkipsCatalog() {
	sc, err := NewScheduler(New(cache.NewTTL[any](), nil), time.UTC, "0 9,12 * * *", "0 6 * * *")
	s.Require().NoError(err)
	tr := sc.Triggers()
	s.Require().Len(tr, 1)
	s.Equal(KindHours, tr[0].Name)
	s.Equal("disabled", sc.Describe())
}

func (s *SchedulerTestSuite) TestInvalidSpec() {
	_, err := NewScheduler(s.enabledSyncer(), time.UTC, "not a spec", "")
	s.Error(err)
}

func (s *SchedulerTestSuite) TestRunStopsWithContext() {
	sc, err := NewScheduler(s.enabledSyncer(), time.UTC, "0 9 * * *", "")
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("scheduler did not stop")
	}
}

func (s *SchedulerTestSuite) TestDescribe() {
	s.Equal("daily at 09:00, 12:00", DescribeHours([]int{9, 12}))
	s.Equal("disabled", DescribeHours(nil))
	s.Equal("daily at 06:00", DescribeSpec("0 6 * * *"))
	s.Equal("*/15 * * * *", DescribeSpec("*/15 * * * *"))
	s.Equal("0 9-17 * * *", DescribeSpec("0 9-17 * * *"))
}
