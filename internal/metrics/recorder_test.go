package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type RecorderTestSuite struct {
	suite.Suite
}

func TestRecorderTestSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (s *RecorderTestSuite) TestCounters() {
	r := New(func() int { return 3 })
	r.SyncCycle("catalog", ResultSuccess, 200*time.Millisecond)
	r.SyncCycle("catalog", ResultSuccess, time.Second)
	r.SyncCycle("catalog", ResultJoined, 0)
	r.GateDecision("cooldown")
	r.MenuRead("square")
	r.MenuRead("static")
	r.MenuRead("static")

	s.Equal(2.0, testutil.ToFloat64(r.syncCycles.WithLabelValues("catalog", ResultSuccess)))
	s.Equal(1.0, testutil.ToFloat64(r.syncCycles.WithLabelValues("catalog", ResultJoined)))
	s.Equal(1.0, testutil.ToFloat64(r.gateDecision.WithLabelValues("cooldown")))
	s.Equal(2.0, testutil.ToFloat64(r.menuReads.WithLabelValues("static")))
	s.Equal(3.0, testutil.ToFloat64(r.cacheEntries))
}

func (s *RecorderTestSuite) TestNilRecorder() {
	var r *Recorder
	s.NotPanics(func() {
		r.SyncCycle("hours", ResultFailure, time.Second)
		r.GateDecision("closed")
		r.MenuRead("static")
	})
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RecorderTestSuite) TestHandlerExposition() {
	r := New(nil)
	r.MenuRead("square")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	s.Contains(string(body), `menusync_menu_reads_total{source="square"} 1`)
}
