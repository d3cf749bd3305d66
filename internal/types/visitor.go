package types

import "time"

// VisitorRecord tracks how often a client IP asked for the menu and when it last
// caused a live Square pull.
type VisitorRecord struct {
	FirstVisit  time.Time `json:"first_visit"`
	LastAPICall time.Time `json:"last_api_call"`
	VisitCount  int       `json:"visit_count"`
}
