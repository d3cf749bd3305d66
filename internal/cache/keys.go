package cache

import "strings"

const (
	KeyCatalog        = "square_catalog"
	KeyInventory      = "square_inventory"
	KeyMenu           = "menu_items"
	KeyCategoryPrefix = "menu_category_"
	KeyStatus         = "square_status"
	KeyHours          = "store_hours"
	KeyLastCycle      = "last_sync_cycle"
)

// CategoryKey is the per-category menu key, the lowercased label. An empty category maps to "all".
func CategoryKey(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		c = "all"
	}
	return KeyCategoryPrefix + c
}
