package hours

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"menusync/internal/types"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// DefaultPeriodsExpr selects opening periods from a Places-style details response.
const DefaultPeriodsExpr = "result.opening_hours.periods"

// HTTPSource reads the weekly schedule from a JSON document. The JMESPath expression must
// select a list of periods shaped {open:{day,time}, close:{day,time}} where day is 0-6
// starting Sunday and time is "HHMM".
type HTTPSource struct {
	url    string
	expr   *jmespath.JMESPath
	client *http.Client
}

func NewHTTPSource(url, expr string, timeout time.Duration) (*HTTPSource, error) {
	if expr == "" {
		expr = DefaultPeriodsExpr
	}
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "hours periods expression %q", expr)
	}
	return &HTTPSource{url: url, expr: compiled, client: &http.Client{Timeout: timeout}}, nil
}

func (s *HTTPSource) FetchSchedule(ctx context.Context) (types.Schedule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return types.Schedule{}, fmt.Errorf("build hours request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return types.Schedule{}, types.Err(types.ErrRemoteUnavailable, err, "GET hours")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Schedule{}, types.Err(types.ErrRemoteUnavailable, nil, "GET hours: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return types.Schedule{}, types.Err(types.ErrRemoteUnavailable, err, "GET hours: read body")
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return types.Schedule{}, types.Err(types.ErrRemoteUnavailable, err, "GET hours: decode")
	}
	return s.Extract(doc)
}

// Extract evaluates the periods expression against a decoded document.
func (s *HTTPSource) Extract(doc any) (types.Schedule, error) {
	v, err := s.expr.Search(doc)
	if err != nil {
		return types.Schedule{}, fmt.Errorf("jmespath: %w", err)
	}
	periods, ok := v.([]any)
	if !ok || len(periods) == 0 {
		return types.Schedule{}, types.Err(types.ErrRemoteUnavailable, nil, "hours document has no periods")
	}
	return ParsePeriods(periods)
}

// ParsePeriods builds a schedule from decoded periods. Days without a period are closed.
// Periods of the same day merge into one range from the earliest open to the latest close.
// A close on a later day, or no close at all, runs to midnight. A single period opening
// Sunday 00:00 with no close means open around the clock.
func ParsePeriods(periods []any) (types.Schedule, error) {
	var sched types.Schedule
	for i, p := range periods {
		m, ok := p.(map[string]any)
		if !ok {
			return types.Schedule{}, fmt.Errorf("period %d: not an object", i)
		}
		openDay, openMin, err := point(m["open"])
		if err != nil {
			return types.Schedule{}, fmt.Errorf("period %d open: %w", i, err)
		}
		closeMin := minutesPerDay
		if c, ok := m["close"]; ok && c != nil {
			closeDay, cm, err := point(c)
			if err != nil {
				return types.Schedule{}, fmt.Errorf("period %d close: %w", i, err)
			}
			if closeDay == openDay {
				closeMin = cm
			}
		} else if len(periods) == 1 && openDay == 0 && openMin == 0 {
			return allDay(), nil
		}
		if closeMin <= openMin {
			return types.Schedule{}, fmt.Errorf("period %d: closes before it opens", i)
		}

		d := sched[openDay]
		if !d.Open {
			d = types.DayHours{Open: true, OpenMinute: openMin, CloseMinute: closeMin}
		} else {
			d.OpenMinute = min(d.OpenMinute, openMin)
			d.CloseMinute = max(d.CloseMinute, closeMin)
		}
		sched[openDay] = d
	}
	return sched, nil
}

const minutesPerDay = 24 * 60

func allDay() types.Schedule {
	var sched types.Schedule
	for d := range sched {
		sched[d] = types.DayHours{Open: true, OpenMinute: 0, CloseMinute: minutesPerDay}
	}
	return sched
}

func point(v any) (day int, minute int, err error) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, 0, fmt.Errorf("missing")
	}
	d, ok := m["day"].(float64)
	if !ok || d < 0 || d > 6 || d != float64(int(d)) {
		return 0, 0, fmt.Errorf("bad day %v", m["day"])
	}
	t, ok := m["time"].(string)
	if !ok || len(t) != 4 {
		return 0, 0, fmt.Errorf("bad time %v", m["time"])
	}
	hh, err1 := strconv.Atoi(t[:2])
	mm, err2 := strconv.Atoi(t[2:])
	if err1 != nil || err2 != nil || hh < 0 || mm < 0 || mm > 59 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, 0, fmt.Errorf("bad time %q", t)
	}
	return int(d), hh*60 + mm, nil
}
