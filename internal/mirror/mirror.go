package mirror

import (
	"context"
	"time"

	"menusync/internal/ports"
	"menusync/internal/square"
	"menusync/internal/types"

	log "github.com/sirupsen/logrus"
)

// Mirror produces a normalized, stock-annotated view of the Square catalog and reconciles
// it against the curated local menu.
type Mirror struct {
	api        ports.CatalogAPI
	locationID string
	categories map[string]string
	now        func() time.Time
}

type Option func(*Mirror)

func WithClock(now func() time.Time) Option { return func(m *Mirror) { m.now = now } }

func New(api ports.CatalogAPI, locationID string, opts ...Option) *Mirror {
	m := &Mirror{
		api:        api,
		locationID: locationID,
		categories: DefaultCategories,
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// FetchCatalogItems lists every ITEM in the catalog and normalizes it.
// A failure is types.ErrRemoteUnavailable; callers treat it as "no data".
func (m *Mirror) FetchCatalogItems(ctx context.Context) ([]types.CatalogItem, error) {
	objs, err := m.api.ListCatalog(ctx, square.ObjectTypeItem, square.ObjectTypeImage)
	if err != nil {
		return nil, err
	}
	items := Normalize(objs, m.categories)
	log.WithFields(log.Fields{
		"objects": len(objs),
		"items":   len(items),
	}).Debug("catalog fetched")
	return items, nil
}

// FetchInventory retrieves quantities for ids at the configured location. It never fails:
// a remote error in any batch degrades to an empty mapping and every item counts as untracked.
func (m *Mirror) FetchInventory(ctx context.Context, ids []string) types.InventoryCounts {
	counts := make(types.InventoryCounts)
	for start := 0; start < len(ids); start += square.BatchRetrieveLimit {
		end := min(start+square.BatchRetrieveLimit, len(ids))
		batch, err := m.api.BatchRetrieveInventoryCounts(ctx, ids[start:end], []string{m.locationID})
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"ids":     len(ids),
				"fetched": len(counts),
			}).Warn("inventory unavailable, treating items as untracked")
			return types.InventoryCounts{}
		}
		for _, c := range batch {
			if c.Quantity == nil {
				continue
			}
			if c.State != "" && c.State != square.StateInStock {
				continue
			}
			if c.LocationID != "" && c.LocationID != m.locationID {
				continue
			}
			counts[c.CatalogObjectID] = *c.Quantity
		}
	}
	return counts
}

// InventoryIDs lists the ids worth asking inventory for: each item and its first variation,
// since Square tracks stock on variations.
func InventoryIDs(items []types.CatalogItem) []string {
	ids := make([]string, 0, 2*len(items))
	seen := make(map[string]struct{}, 2*len(items))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, it := range items {
		add(it.ID)
		if len(it.Variations) > 0 {
			add(it.Variations[0].ID)
		}
	}
	return ids
}

// ApplyInventory returns a copy of items with Quantity and InStock set from counts.
func ApplyInventory(items []types.CatalogItem, counts types.InventoryCounts) []types.CatalogItem {
	out := make([]types.CatalogItem, len(items))
	for i, it := range items {
		it.Quantity = nil
		if q, ok := counts[it.ID]; ok {
			it.Quantity = &q
		} else if len(it.Variations) > 0 {
			if q, ok := counts[it.Variations[0].ID]; ok {
				it.Quantity = &q
			}
		}
		it.InStock = InStock(it.Quantity)
		out[i] = it
	}
	return out
}

// ProbeLocations checks connectivity and credentials and returns the location count.
func (m *Mirror) ProbeLocations(ctx context.Context) (int, error) {
	locs, err := m.api.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	return len(locs), nil
}
