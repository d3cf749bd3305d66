package ports

import "context"

// Alerter notifies operators, e.g. of a failed sync cycle.
type Alerter interface {
	Alert(ctx context.Context, subject string, payload []byte) error
}
