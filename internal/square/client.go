package square

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"menusync/internal/types"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	// BatchRetrieveLimit is the maximum number of ids one batch-retrieve call accepts.
	BatchRetrieveLimit = 100

	// maxPages caps cursor pagination in case the remote keeps returning a cursor.
	maxPages = 50
)

// Client talks to the Square v2 HTTP API. Every call runs under the configured timeout and
// is paced by a token bucket; any transport failure, timeout or non-2xx answer is reported
// as types.ErrRemoteUnavailable.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Timeout is left as given.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(cfg types.SquareConfig, opts ...Option) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: cfg.Endpoint(),
		token:   cfg.AccessToken,
		version: cfg.APIVersion,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListCatalog returns every catalog object of the given types, following pagination.
func (c *Client) ListCatalog(ctx context.Context, objectTypes ...string) ([]CatalogObject, error) {
	var out []CatalogObject
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("types", strings.Join(objectTypes, ","))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var resp catalogListResponse
		if err := c.do(ctx, http.MethodGet, "/v2/catalog/list?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Objects...)
		if resp.Cursor == "" || resp.Cursor == cursor {
			return out, nil
		}
		cursor = resp.Cursor
	}
	return nil, types.Err(types.ErrRemoteUnavailable, nil, "GET /v2/catalog/list: still paginating after %d pages", maxPages)
}

// BatchRetrieveInventoryCounts fetches counts for ids at the given locations.
// Callers chunk ids to BatchRetrieveLimit.
func (c *Client) BatchRetrieveInventoryCounts(ctx context.Context, ids, locationIDs []string) ([]InventoryCount, error) {
	var out []InventoryCount
	req := batchRetrieveRequest{CatalogObjectIDs: ids, LocationIDs: locationIDs}
	for page := 0; page < maxPages; page++ {
		var resp batchRetrieveResponse
		if err := c.do(ctx, http.MethodPost, "/v2/inventory/counts/batch-retrieve", req, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Counts...)
		if resp.Cursor == "" || resp.Cursor == req.Cursor {
			return out, nil
		}
		req.Cursor = resp.Cursor
	}
	return nil, types.Err(types.ErrRemoteUnavailable, nil, "POST /v2/inventory/counts/batch-retrieve: still paginating after %d pages", maxPages)
}

// ListLocations doubles as the credentials probe.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp locationsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/locations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.Err(types.ErrRemoteUnavailable, err, "%s %s: rate limiter", method, path)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.version != "" {
		req.Header.Set("Square-Version", c.version)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Err(types.ErrRemoteUnavailable, err, "%s %s", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	content, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return types.Err(types.ErrRemoteUnavailable, err, "%s %s: read body", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Err(types.ErrRemoteUnavailable, nil, "%s %s: status %d%s", method, path, resp.StatusCode, errorDetail(content))
	}
	if out == nil || len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, out); err != nil {
		return types.Err(types.ErrRemoteUnavailable, err, "%s %s: decode", method, path)
	}
	return nil
}

// errorDetail extracts Square's error codes from a failed response, if any.
func errorDetail(content []byte) string {
	var er errorResponse
	if err := json.Unmarshal(content, &er); err != nil || len(er.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(er.Errors))
	for _, e := range er.Errors {
		p := e.Code
		if e.Detail != "" {
			p += ": " + e.Detail
		}
		parts = append(parts, p)
	}
	return " (" + strings.Join(parts, "; ") + ")"
}
