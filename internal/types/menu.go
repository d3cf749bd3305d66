package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxFeaturedItems is the number of items the landing page shows.
const MaxFeaturedItems = 6

// DefaultCategory is the label for catalog categories the lookup table does not know.
const DefaultCategory = "Menu Items"

// Variation is a priced variant of a catalog item.
type Variation struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceMinorUnits int64  `json:"price_minor_units"`
}

// CatalogItem is a Square ITEM normalized to what this service needs.
// Price is PriceMinorUnits converted to a decimal currency amount.
// Quantity is the raw inventory count string, nil when Square reported none.
type CatalogItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	PriceMinorUnits int64           `json:"price_minor_units"`
	Price           decimal.Decimal `json:"price"`
	CategoryID      string          `json:"category_id,omitempty"`
	Category        string          `json:"category"`
	Variations      []Variation     `json:"variations,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	Quantity        *string         `json:"quantity,omitempty"`
	InStock         bool            `json:"in_stock"`
}

// InventoryCounts maps a catalog object id to the quantity string Square reported.
type InventoryCounts map[string]string

// LocalMenuItem is a curated menu entry. Seed data creates it; only a successful sync cycle
// changes Price, InStock, SquareID and LastSync.
type LocalMenuItem struct {
	LocalID     string          `json:"local_id"`
	SquareID    string          `json:"square_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Featured    bool            `json:"featured"`
	InStock     bool            `json:"in_stock"`
	LastSync    *time.Time      `json:"last_sync,omitempty"`
}

// CycleResult describes one catalog sync cycle.
// Joined is set for callers that arrived while the cycle was already in flight.
type CycleResult struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	ItemCount    int           `json:"item_count"`
	MatchedCount int           `json:"matched_count"`
	Unmatched    []CatalogItem `json:"unmatched,omitempty"`
	Diagnostics  []string      `json:"diagnostics,omitempty"`
	Joined       bool          `json:"joined"`
}

// Snapshot is the last-known-good catalog state persisted by the optional snapshot backend.
type Snapshot struct {
	Catalog   []CatalogItem   `json:"catalog"`
	Inventory InventoryCounts `json:"inventory"`
	Menu      []LocalMenuItem `json:"menu"`
	SavedAt   time.Time       `json:"saved_at"`
}
