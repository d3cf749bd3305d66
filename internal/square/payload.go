package square

// Wire shapes of the Square v2 API, limited to the fields this service reads.
// Nested fields are optional on the wire; pointers and nil slices mark "not reported".

const (
	ObjectTypeItem      = "ITEM"
	ObjectTypeImage     = "IMAGE"
	ObjectTypeVariation = "ITEM_VARIATION"

	StateInStock = "IN_STOCK"
)

type Money struct {
	Amount   *int64 `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type CategoryRef struct {
	ID string `json:"id"`
}

type ItemData struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Categories  []CategoryRef   `json:"categories,omitempty"`
	Variations  []CatalogObject `json:"variations,omitempty"`
	ImageIDs    []string        `json:"image_ids,omitempty"`
}

type ItemVariationData struct {
	ItemID     string  `json:"item_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	PriceMoney *Money  `json:"price_money,omitempty"`
}

type ImageData struct {
	Name *string `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

// CatalogObject is one entry of /v2/catalog/list. Which *Data field is set depends on Type.
type CatalogObject struct {
	Type              string             `json:"type"`
	ID                string             `json:"id"`
	IsDeleted         bool               `json:"is_deleted,omitempty"`
	ItemData          *ItemData          `json:"item_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
	ImageData         *ImageData         `json:"image_data,omitempty"`
}

// InventoryCount is one entry of /v2/inventory/counts/batch-retrieve.
// Quantity is a decimal string and may be missing, fractional or negative.
type InventoryCount struct {
	CatalogObjectID   string  `json:"catalog_object_id"`
	CatalogObjectType string  `json:"catalog_object_type,omitempty"`
	State             string  `json:"state,omitempty"`
	LocationID        string  `json:"location_id,omitempty"`
	Quantity          *string `json:"quantity,omitempty"`
	CalculatedAt      string  `json:"calculated_at,omitempty"`
}

type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

type APIError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
}

type catalogListResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor,omitempty"`
	Errors  []APIError      `json:"errors,omitempty"`
}

type batchRetrieveRequest struct {
	CatalogObjectIDs []string `json:"catalog_object_ids"`
	LocationIDs      []string `json:"location_ids"`
	Cursor           string   `json:"cursor,omitempty"`
}

type batchRetrieveResponse struct {
	Counts []InventoryCount `json:"counts"`
	Cursor string           `json:"cursor,omitempty"`
	Errors []APIError       `json:"errors,omitempty"`
}

type locationsResponse struct {
	Locations []Location `json:"locations"`
	Errors    []APIError `json:"errors,omitempty"`
}

type errorResponse struct {
	Errors []APIError `json:"errors"`
}
