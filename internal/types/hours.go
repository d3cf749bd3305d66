package types

import (
	"fmt"
	"time"
)

const (
	HoursSourceUpstream = "upstream"
	HoursSourceDefault  = "default"
)

// DayHours is a half-open [OpenMinute, CloseMinute) range in minutes since midnight.
type DayHours struct {
	Open        bool `json:"open"`
	OpenMinute  int  `json:"open_minute"`
	CloseMinute int  `json:"close_minute"`
}

// Schedule is a weekly schedule indexed by time.Weekday (Sunday = 0).
type Schedule [7]DayHours

func hours(from, to int) DayHours {
	return DayHours{Open: true, OpenMinute: from * 60, CloseMinute: to * 60}
}

// DefaultSchedule is the compiled-in opening schedule. Mondays are closed.
var DefaultSchedule = Schedule{
	time.Sunday:    hours(9, 15),
	time.Monday:    {},
	time.Tuesday:   hours(9, 15),
	time.Wednesday: hours(9, 15),
	time.Thursday:  hours(9, 15),
	time.Friday:    hours(9, 21),
	time.Saturday:  hours(9, 21),
}

// IsOpen reports whether t falls inside the opening range of its weekday.
// t is evaluated in its own location.
func (s Schedule) IsOpen(t time.Time) bool {
	d := s[t.Weekday()]
	if !d.Open {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= d.OpenMinute && m < d.CloseMinute
}

// Label renders the day range as "09:00-15:00" or "closed".
func (d DayHours) Label() string {
	if !d.Open {
		return "closed"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", d.OpenMinute/60, d.OpenMinute%60, d.CloseMinute/60, d.CloseMinute%60)
}

// HoursSnapshot is what the hours sync caches.
type HoursSnapshot struct {
	Schedule  Schedule  `json:"schedule"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}
