package menu

import (
	"sort"
	"strings"
	"time"

	"menusync/internal/cache"
	"menusync/internal/types"
)

const (
	SourceSquare = "square"
	SourceStatic = "static"
)

// Result is what the read path hands the rendering layer. UsingFallback tells the UI the
// items come from the curated list and may be stale.
type Result struct {
	Items         []types.LocalMenuItem
	Source        string
	UsingFallback bool
}

// Reader serves menus from the cache only. It never calls Square, so reads cannot fail
// or block on the network.
type Reader struct {
	cache *cache.TTL[any]
	seed  []types.LocalMenuItem
	ttl   time.Duration
}

// NewReader serves seed when the cache holds no live catalog. Per-category results are
// memoized for ttl; a sync cycle drops them.
func NewReader(c *cache.TTL[any], seed []types.LocalMenuItem, ttl time.Duration) *Reader {
	return &Reader{cache: c, seed: seed, ttl: ttl}
}

// Items returns the menu for category, or the whole menu for an empty category.
func (r *Reader) Items(category string) Result {
	catalog, ok := cache.Lookup[[]types.CatalogItem](r.cache, cache.KeyCatalog)
	if !ok || len(catalog) == 0 {
		return Result{Items: filter(r.seed, category), Source: SourceStatic, UsingFallback: true}
	}

	key := cache.CategoryKey(category)
	if items, ok := cache.Lookup[[]types.LocalMenuItem](r.cache, key); ok {
		return Result{Items: items, Source: SourceSquare}
	}

	local, _ := cache.Lookup[[]types.LocalMenuItem](r.cache, cache.KeyMenu)
	items := filter(FromCatalog(catalog, local), category)
	r.cache.Set(key, items, r.ttl)
	return Result{Items: items, Source: SourceSquare}
}

// Featured returns the landing-page subset, from the last reconciled menu when there is one.
func (r *Reader) Featured() Result {
	if local, ok := cache.Lookup[[]types.LocalMenuItem](r.cache, cache.KeyMenu); ok && len(local) > 0 {
		return Result{Items: featured(local), Source: SourceSquare}
	}
	return Result{Items: featured(r.seed), Source: SourceStatic, UsingFallback: true}
}

// Categories lists the category labels of the current menu, sorted.
func (r *Reader) Categories() []string {
	res := r.Items("")
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, it := range res.Items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	sort.Strings(out)
	return out
}

// FromCatalog converts catalog items to the local shape. Curated fields (local id, image,
// featured flag) are taken from the reconciled local item that claimed the catalog item.
func FromCatalog(catalog []types.CatalogItem, local []types.LocalMenuItem) []types.LocalMenuItem {
	bySquareID := make(map[string]types.LocalMenuItem, len(local))
	for _, l := range local {
		if l.SquareID != "" {
			bySquareID[l.SquareID] = l
		}
	}
	out := make([]types.LocalMenuItem, 0, len(catalog))
	for _, c := range catalog {
		it := types.LocalMenuItem{
			LocalID:     c.ID,
			SquareID:    c.ID,
			Name:        c.Name,
			Description: c.Description,
			Price:       c.Price,
			Category:    c.Category,
			Image:       c.ImageURL,
			InStock:     c.InStock,
		}
		if l, ok := bySquareID[c.ID]; ok {
			it.LocalID = l.LocalID
			it.Featured = l.Featured
			it.LastSync = l.LastSync
			if it.Image == "" {
				it.Image = l.Image
			}
			if it.Description == "" {
				it.Description = l.Description
			}
		}
		out = append(out, it)
	}
	return out
}

func filter(items []types.LocalMenuItem, category string) []types.LocalMenuItem {
	c := strings.TrimSpace(category)
	out := make([]types.LocalMenuItem, 0, len(items))
	for _, it := range items {
		if c == "" || strings.EqualFold(c, "all") || strings.EqualFold(it.Category, c) {
			out = append(out, it)
		}
	}
	return out
}

func featured(items []types.LocalMenuItem) []types.LocalMenuItem {
	out := make([]types.LocalMenuItem, 0, types.MaxFeaturedItems)
	for _, it := range items {
		if it.Featured {
			out = append(out, it)
		}
		if len(out) == types.MaxFeaturedItems {
			break
		}
	}
	return out
}
