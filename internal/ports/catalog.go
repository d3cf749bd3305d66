package ports

import (
	"context"

	"menusync/internal/square"
)

// CatalogAPI is the narrow slice of the Square API the catalog mirror consumes.
// Implementations MUST report transport failures, timeouts and non-2xx answers as
// types.ErrRemoteUnavailable.
type CatalogAPI interface {
	ListCatalog(ctx context.Context, objectTypes ...string) ([]square.CatalogObject, error)

	BatchRetrieveInventoryCounts(ctx context.Context, ids, locationIDs []string) ([]square.InventoryCount, error)

	ListLocations(ctx context.Context) ([]square.Location, error)
}
