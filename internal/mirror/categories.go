package mirror

import (
	"strings"

	"menusync/internal/types"
)

// DefaultCategories maps Square category ids to menu labels. Ids the table does not know
// land in types.DefaultCategory.
var DefaultCategories = map[string]string{
	"BREAKFAST":  "Breakfast",
	"PANCAKES":   "Pancakes",
	"WAFFLES":    "Waffles",
	"BURGERS":    "Burgers",
	"SANDWICHES": "Sandwiches",
	"SALADS":     "Salads",
	"SIDES":      "Sides",
	"KIDS":       "Kids",
	"DRINKS":     "Drinks",
	"DESSERTS":   "Desserts",
}

// CategoryLabel resolves id against table, ignoring case.
func CategoryLabel(table map[string]string, id string) string {
	if id == "" {
		return types.DefaultCategory
	}
	if l, ok := table[id]; ok {
		return l
	}
	if l, ok := table[strings.ToUpper(id)]; ok {
		return l
	}
	return types.DefaultCategory
}
