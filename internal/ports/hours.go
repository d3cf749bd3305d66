package ports

import (
	"context"

	"menusync/internal/types"
)

// HoursSource fetches the weekly operating schedule from an upstream other than Square.
type HoursSource interface {
	FetchSchedule(ctx context.Context) (types.Schedule, error)
}
