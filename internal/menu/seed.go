package menu

import (
	_ "embed"
	"fmt"

	"menusync/internal/types"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
)

//go:embed menu.yml
var defaultSeed []byte

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

type seedItem struct {
	ID          string `yaml:"id"`
	SquareID    string `yaml:"square_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Image       string `yaml:"image"`
	Featured    bool   `yaml:"featured"`
}

// DefaultSeed parses the curated menu compiled into the binary.
func DefaultSeed() ([]types.LocalMenuItem, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes and validates a curated menu document. Items start in stock: nothing
// is known about their inventory until a sync cycle runs.
func ParseSeed(data []byte) ([]types.LocalMenuItem, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, types.Err(types.ErrInvalidMenu, err, "")
	}
	if len(f.Items) == 0 {
		return nil, types.Err(types.ErrInvalidMenu, nil, "no items")
	}

	seen := make(map[string]struct{}, len(f.Items))
	featured := 0
	items := make([]types.LocalMenuItem, 0, len(f.Items))
	for i, it := range f.Items {
		if it.ID == "" || it.Name == "" {
			return nil, types.Err(types.ErrInvalidMenu, nil, "item %d: id and name are required", i)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, types.Err(types.ErrInvalidMenu, nil, "duplicate id %q", it.ID)
		}
		seen[it.ID] = struct{}{}

		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, types.Err(types.ErrInvalidMenu, err, "item %q: price %q", it.ID, it.Price)
		}
		if it.Featured {
			featured++
		}
		category := it.Category
		if category == "" {
			category = types.DefaultCategory
		}
		items = append(items, types.LocalMenuItem{
			LocalID:     it.ID,
			SquareID:    it.SquareID,
			Name:        it.Name,
			Description: it.Description,
			Price:       price,
			Category:    category,
			Image:       it.Image,
			Featured:    it.Featured,
			InStock:     true,
		})
	}
	if featured > types.MaxFeaturedItems {
		return nil, types.Err(types.ErrInvalidMenu, nil, "%d featured items, at most %d allowed", featured, types.MaxFeaturedItems)
	}
	return items, nil
}

// MustDefaultSeed panics on an invalid compiled-in menu.
func MustDefaultSeed() []types.LocalMenuItem {
	items, err := DefaultSeed()
	if err != nil {
		panic(fmt.Sprintf("compiled-in menu: %v", err))
	}
	return items
}
