package mirror

import (
	"context"
	"fmt"
	"testing"
	"time"

	"menusync/internal/square"
	"menusync/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type fakeAPI struct {
	objects    []square.CatalogObject
	counts     []square.InventoryCount
	locations  []square.Location
	catalogErr error
	countsErr  error
	// failFrom makes every batch after the first failFrom ones fail with countsErr.
	failFrom int
	batches  [][]string
}

func (f *fakeAPI) ListCatalog(ctx context.Context, objectTypes ...string) ([]square.CatalogObject, error) {
	return f.objects, f.catalogErr
}

func (f *fakeAPI) BatchRetrieveInventoryCounts(ctx context.Context, ids, locationIDs []string) ([]square.InventoryCount, error) {
	f.batches = append(f.batches, ids)
	if f.countsErr != nil && len(f.batches) > f.failFrom {
		return nil, f.countsErr
	}
	return f.counts, nil
}

func (f *fakeAPI) ListLocations(ctx context.Context) ([]square.Location, error) {
	return f.locations, f.catalogErr
}

func str(s string) *string { return &s }
func i64(n int64) *int64   { return &n }

func item(id, name, category string, cents int64, images ...string) square.CatalogObject {
	return square.CatalogObject{
		Type: square.ObjectTypeItem,
		ID:   id,
		ItemData: &square.ItemData{
			Name:       str(name),
			CategoryID: str(category),
			ImageIDs:   images,
			Variations: []square.CatalogObject{{
				Type: square.ObjectTypeVariation,
				ID:   id + "-V",
				ItemVariationData: &square.ItemVariationData{
					Name:       str("Regular"),
					PriceMoney: &square.Money{Amount: i64(cents), Currency: "USD"},
				},
			}},
		},
	}
}

type MirrorTestSuite struct {
	suite.Suite

	api    *fakeAPI
	mirror *Mirror
	now    time.Time
}

func TestMirrorTestSuite(t *testing.T) {
	suite.Run(t, new(MirrorTestSuite))
}

func (s *MirrorTestSuite) SetupTest() {
	s.now = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	s.api = &fakeAPI{}
	s.mirror = New(s.api, "L1", WithClock(func() time.Time { return s.now }))
}

func (s *MirrorTestSuite) TestStockDerivation() {
	cases := []struct {
		raw     *string
		inStock bool
	}{
		{nil, true},
		{str(""), true},
		{str("   "), true},
		{str("abc"), true},
		{str("NaN"), true},
		{str("0"), false},
		{str("0.000"), false},
		{str("-3"), false},
		{str("-1"), false},
		{str("5"), true},
		{str("0.5"), true},
	}
	for _, c := range cases {
		label := "<nil>"
		if c.raw != nil {
			label = *c.raw
		}
		s.Equal(c.inStock, InStock(c.raw), label)
	}
}

func (s *MirrorTestSuite) TestNormalize() {
	objs := []square.CatalogObject{
		{Type: square.ObjectTypeImage, ID: "IMG1", ImageData: &square.ImageData{URL: str("https://img/1.jpg")}},
		item("A", "Buttermilk Pancakes", "PANCAKES", 1299, "IMG1"),
		item("B", "Mystery Plate", "cat-unknown", 850),
		{Type: square.ObjectTypeItem, ID: "C"},
		{Type: square.ObjectTypeItem, ID: "D", IsDeleted: true, ItemData: &square.ItemData{Name: str("Gone")}},
		{Type: square.ObjectTypeItem, ID: "E", ItemData: &square.ItemData{
			Name:       str("No Price"),
			Categories: []square.CategoryRef{{ID: "drinks"}},
			Variations: []square.CatalogObject{{ID: "E-V"}},
		}},
	}
	items := Normalize(objs, DefaultCategories)
	s.Len(items, 4)

	s.Equal("A", items[0].ID)
	s.Equal(int64(1299), items[0].PriceMinorUnits)
	s.True(decimal.RequireFromString("12.99").Equal(items[0].Price))
	s.Equal("Pancakes", items[0].Category)
	s.Equal("https://img/1.jpg", items[0].ImageURL)
	s.True(items[0].InStock)

	s.Equal(types.DefaultCategory, items[1].Category)
	s.Equal("", items[1].ImageURL)

	s.Equal("C", items[2].ID)
	s.Equal(types.DefaultCategory, items[2].Category)
	s.True(items[2].Price.IsZero())

	s.Equal("Drinks", items[3].Category)
	s.True(items[3].Price.IsZero())
	s.Len(items[3].Variations, 1)
}

func (s *MirrorTestSuite) TestFetchCatalogItemsPropagatesRemoteUnavailable() {
	s.api.catalogErr = types.ErrRemoteUnavailable
	items, err := s.mirror.FetchCatalogItems(context.Background())
	s.ErrorIs(err, types.ErrRemoteUnavailable)
	s.Nil(items)
}

func (s *MirrorTestSuite) TestFetchInventory() {
	s.api.counts = []square.InventoryCount{
		{CatalogObjectID: "A", State: square.StateInStock, LocationID: "L1", Quantity: str("4")},
		{CatalogObjectID: "A", State: "SOLD", LocationID: "L1", Quantity: str("10")},
		{CatalogObjectID: "B", State: square.StateInStock, LocationID: "L2", Quantity: str("9")},
		{CatalogObjectID: "C", State: square.StateInStock, LocationID: "L1"},
	}
	counts := s.mirror.FetchInventory(context.Background(), []string{"A", "B", "C"})
	s.Equal(types.InventoryCounts{"A": "4"}, counts)
}

func (s *MirrorTestSuite) TestFetchInventoryDegradesToEmpty() {
	s.api.countsErr = types.ErrRemoteUnavailable
	counts := s.mirror.FetchInventory(context.Background(), []string{"A"})
	s.NotNil(counts)
	s.Empty(counts)
}

func (s *MirrorTestSuite) TestFetchInventoryLaterBatchFailureDropsEarlierCounts() {
	ids := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	s.api.counts = []square.InventoryCount{{CatalogObjectID: "id-1", State: square.StateInStock, LocationID: "L1", Quantity: str("3")}}
	s.api.countsErr = types.ErrRemoteUnavailable
	s.api.failFrom = 1

	counts := s.mirror.FetchInventory(context.Background(), ids)
	s.Len(s.api.batches, 2)
	s.NotNil(counts)
	s.Empty(counts)
}

func (s *MirrorTestSuite) TestFetchInventoryChunks() {
	ids := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	s.mirror.FetchInventory(context.Background(), ids)
	s.Len(s.api.batches, 3)
	s.Len(s.api.batches[0], 100)
	s.Len(s.api.batches[2], 50)
}

func (s *MirrorTestSuite) TestApplyInventory() {
	items := Normalize([]square.CatalogObject{
		item("A", "Pancakes", "PANCAKES", 1000),
		item("B", "Burger", "BURGERS", 1500),
		item("C", "Fries", "SIDES", 400),
		item("D", "Shake", "DRINKS", 600),
	}, DefaultCategories)
	counts := types.InventoryCounts{"A": "0", "B-V": "0.5", "D": "-2"}

	out := ApplyInventory(items, counts)
	s.False(out[0].InStock)
	s.Equal("0", *out[0].Quantity)
	s.True(out[1].InStock, "variation count is used when the item has none")
	s.True(out[2].InStock, "untracked")
	s.Nil(out[2].Quantity)
	s.False(out[3].InStock)

	s.Nil(items[0].Quantity, "input is not modified")
}

func (s *MirrorTestSuite) TestInventoryIDs() {
	items := []types.CatalogItem{
		{ID: "A", Variations: []types.Variation{{ID: "A-V"}, {ID: "A-V2"}}},
		{ID: "B"},
		{ID: "A"},
	}
	s.Equal([]string{"A", "A-V", "B"}, InventoryIDs(items))
}

func (s *MirrorTestSuite) localMenu() []types.LocalMenuItem {
	return []types.LocalMenuItem{
		{LocalID: "pancakes", Name: "Pancakes", Price: decimal.RequireFromString("9.00"), Category: "Pancakes", InStock: true},
		{LocalID: "club", Name: "The Club Sandwich Deluxe", Price: decimal.RequireFromString("11.00"), Category: "Sandwiches", InStock: true},
		{LocalID: "burger", SquareID: "B", Name: "House Burger", Price: decimal.RequireFromString("13.00"), Category: "Burgers", InStock: true},
		{LocalID: "pie", Name: "Key Lime Pie", Price: decimal.RequireFromString("6.00"), Category: "Desserts", InStock: true},
	}
}

func (s *MirrorTestSuite) remoteItems() []types.CatalogItem {
	items := Normalize([]square.CatalogObject{
		item("A", "Buttermilk Pancakes", "PANCAKES", 1299),
		item("B", "Smash Burger", "BURGERS", 1450),
		item("C", "Club Sandwich", "SANDWICHES", 1150),
		item("D", "Seasonal Soup", "SIDES", 700),
	}, DefaultCategories)
	return ApplyInventory(items, types.InventoryCounts{"B": "0"})
}

func (s *MirrorTestSuite) TestReconcile() {
	res := s.mirror.Reconcile(s.localMenu(), s.remoteItems())
	s.Len(res.Items, 4)
	s.Equal(3, res.Matched)

	pancakes := res.Items[0]
	s.Equal("A", pancakes.SquareID, "local name contained in remote name")
	s.True(decimal.RequireFromString("12.99").Equal(pancakes.Price))
	s.Equal(s.now, *pancakes.LastSync)

	club := res.Items[1]
	s.Equal("C", club.SquareID, "remote name contained in local name")

	burger := res.Items[2]
	s.Equal("B", burger.SquareID, "stored id wins over names")
	s.False(burger.InStock)
	s.True(decimal.RequireFromString("14.50").Equal(burger.Price))

	pie := res.Items[3]
	s.Equal(s.localMenu()[3], pie, "unmatched local item is unchanged")
	s.Len(res.Diagnostics, 1)
	s.Contains(res.Diagnostics[0], "Key Lime Pie")
	s.Contains(res.Diagnostics[0], types.ErrReconciliationMiss.Error())

	s.Len(res.Unmatched, 1)
	s.Equal("D", res.Unmatched[0].ID)
}

func (s *MirrorTestSuite) TestReconcileIsIdempotent() {
	first := s.mirror.Reconcile(s.localMenu(), s.remoteItems())
	s.now = s.now.Add(3 * time.Hour)
	second := s.mirror.Reconcile(first.Items, s.remoteItems())

	s.Equal(len(first.Items), len(second.Items))
	for i := range first.Items {
		a, b := first.Items[i], second.Items[i]
		a.LastSync, b.LastSync = nil, nil
		s.Equal(a, b)
	}
	s.Equal(first.Unmatched, second.Unmatched)
	s.Equal(first.Diagnostics, second.Diagnostics)
}

func (s *MirrorTestSuite) TestReconcileIgnoresEmptyNames() {
	local := []types.LocalMenuItem{{LocalID: "x", Name: "Waffles"}}
	remote := []types.CatalogItem{{ID: "N"}, {ID: "W", Name: "Belgian Waffles"}}
	res := s.mirror.Reconcile(local, remote)
	s.Equal("W", res.Items[0].SquareID)
}

func (s *MirrorTestSuite) TestProbeLocations() {
	s.api.locations = []square.Location{{ID: "L1"}, {ID: "L2"}}
	n, err := s.mirror.ProbeLocations(context.Background())
	s.NoError(err)
	s.Equal(2, n)
}
