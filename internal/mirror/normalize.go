package mirror

import (
	"strings"

	"menusync/internal/square"
	"menusync/internal/types"

	"github.com/shopspring/decimal"
)

// MinorUnitsToPrice converts integer cents into a currency amount.
func MinorUnitsToPrice(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Normalize turns raw catalog objects into catalog items. IMAGE objects in objs resolve
// image ids; deleted objects and other types are skipped. Missing nested fields fall back
// to defaults, nothing here fails.
func Normalize(objs []square.CatalogObject, categories map[string]string) []types.CatalogItem {
	images := make(map[string]string)
	for _, o := range objs {
		if o.Type == square.ObjectTypeImage && o.ImageData != nil && o.ImageData.URL != nil {
			images[o.ID] = *o.ImageData.URL
		}
	}

	items := make([]types.CatalogItem, 0, len(objs))
	for _, o := range objs {
		if o.Type != square.ObjectTypeItem || o.IsDeleted {
			continue
		}
		items = append(items, normalizeItem(o, categories, images))
	}
	return items
}

func normalizeItem(o square.CatalogObject, categories map[string]string, images map[string]string) types.CatalogItem {
	// Untracked until inventory says otherwise.
	item := types.CatalogItem{ID: o.ID, Category: types.DefaultCategory, Price: decimal.Zero, InStock: true}
	d := o.ItemData
	if d == nil {
		return item
	}

	item.Name = strings.TrimSpace(deref(d.Name))
	item.Description = strings.TrimSpace(deref(d.Description))

	categoryID := deref(d.CategoryID)
	if categoryID == "" && len(d.Categories) > 0 {
		categoryID = d.Categories[0].ID
	}
	item.CategoryID = categoryID
	item.Category = CategoryLabel(categories, categoryID)

	for _, v := range d.Variations {
		variation := types.Variation{ID: v.ID}
		if vd := v.ItemVariationData; vd != nil {
			variation.Name = deref(vd.Name)
			if vd.PriceMoney != nil && vd.PriceMoney.Amount != nil {
				variation.PriceMinorUnits = *vd.PriceMoney.Amount
			}
		}
		item.Variations = append(item.Variations, variation)
	}
	if len(item.Variations) > 0 {
		item.PriceMinorUnits = item.Variations[0].PriceMinorUnits
	}
	item.Price = MinorUnitsToPrice(item.PriceMinorUnits)

	for _, id := range d.ImageIDs {
		if u, ok := images[id]; ok {
			item.ImageURL = u
			break
		}
	}
	return item
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
