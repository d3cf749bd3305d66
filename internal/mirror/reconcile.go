package mirror

import (
	"fmt"
	"strings"

	"menusync/internal/types"
)

// Reconciliation is the outcome of matching the local menu against the catalog.
// Unmatched holds catalog items no local item claimed; Diagnostics one line per local miss.
type Reconciliation struct {
	Items       []types.LocalMenuItem
	Matched     int
	Unmatched   []types.CatalogItem
	Diagnostics []string
}

// Reconcile matches every local item to a catalog item, first by stored Square id and then
// by case-insensitive name containment in either direction. A match overwrites price,
// stock, Square id and sync time; a miss leaves the local item as it was. The input slices
// are not modified and the output keeps the local order.
func (m *Mirror) Reconcile(local []types.LocalMenuItem, remote []types.CatalogItem) Reconciliation {
	now := m.now()
	byID := make(map[string]int, len(remote))
	for i, r := range remote {
		byID[r.ID] = i
	}
	claimed := make(map[string]struct{}, len(remote))

	res := Reconciliation{Items: make([]types.LocalMenuItem, len(local))}
	for i, l := range local {
		idx := -1
		if l.SquareID != "" {
			if j, ok := byID[l.SquareID]; ok {
				idx = j
			}
		}
		if idx < 0 {
			idx = matchByName(l.Name, remote)
		}
		if idx < 0 {
			res.Items[i] = l
			res.Diagnostics = append(res.Diagnostics,
				fmt.Sprintf("%s: no catalog item for %q (%s)", types.ErrReconciliationMiss, l.Name, l.LocalID))
			continue
		}

		r := remote[idx]
		synced := now
		l.Price = r.Price
		l.InStock = r.InStock
		l.SquareID = r.ID
		l.LastSync = &synced
		res.Items[i] = l
		res.Matched++
		claimed[r.ID] = struct{}{}
	}

	for _, r := range remote {
		if _, ok := claimed[r.ID]; !ok {
			res.Unmatched = append(res.Unmatched, r)
		}
	}
	return res
}

func matchByName(name string, remote []types.CatalogItem) int {
	ln := strings.ToLower(strings.TrimSpace(name))
	if ln == "" {
		return -1
	}
	for i, r := range remote {
		rn := strings.ToLower(strings.TrimSpace(r.Name))
		if rn == "" {
			continue
		}
		if strings.Contains(rn, ln) || strings.Contains(ln, rn) {
			return i
		}
	}
	return -1
}
