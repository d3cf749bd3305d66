package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"menusync/internal/gate"
	"menusync/internal/menu"
	"menusync/internal/metrics"
	"menusync/internal/mirror"
	"menusync/internal/syncer"
	"menusync/internal/types"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPullTimeout bounds the gated sync a menu request may trigger.
	DefaultPullTimeout = 15 * time.Second

	debugSampleSize = 5
	maxInventoryIDs = 500
)

type Handler struct {
	Reader   *menu.Reader
	Syncer   *syncer.Syncer
	Gate     *gate.Gate
	Metrics  *metrics.Recorder
	AdminKey string

	PullTimeout time.Duration
}

func NewHandler(reader *menu.Reader, sy *syncer.Syncer, g *gate.Gate, rec *metrics.Recorder, adminKey string) *Handler {
	return &Handler{
		Reader:      reader,
		Syncer:      sy,
		Gate:        g,
		Metrics:     rec,
		AdminKey:    adminKey,
		PullTimeout: DefaultPullTimeout,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/menu", h.handleMenu)
	mux.HandleFunc("/api/menu/featured", h.handleFeatured)
	mux.HandleFunc("/api/inventory/check", h.handleInventoryCheck)
	mux.HandleFunc("/api/square/sync", h.admin(h.handleSync))
	mux.HandleFunc("/api/square-status", h.handleStatus)
	mux.HandleFunc("/api/debug-inventory", h.admin(h.handleDebugInventory))
	mux.HandleFunc("/api/hours", h.handleHours)
	mux.Handle("/metrics", h.Metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type menuItem struct {
	ID          string     `json:"id"`
	SquareID    string     `json:"squareId,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Image       string     `json:"image,omitempty"`
	Featured    bool       `json:"featured"`
	InStock     bool       `json:"inStock"`
	Available   bool       `json:"available"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
}

type menuResponse struct {
	Success       bool       `json:"success"`
	Items         []menuItem `json:"items"`
	Source        string     `json:"source"`
	UsingFallback bool       `json:"usingFallback"`
	Error         string     `json:"error,omitempty"`
}

func toMenuItems(items []types.LocalMenuItem) []menuItem {
	out := make([]menuItem, 0, len(items))
	for _, it := range items {
		out = append(out, menuItem{
			ID:          it.LocalID,
			SquareID:    it.SquareID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price.InexactFloat64(),
			Category:    it.Category,
			Image:       it.Image,
			Featured:    it.Featured,
			InStock:     it.InStock,
			Available:   it.InStock,
			LastSync:    it.LastSync,
		})
	}
	return out
}

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.maybePull(r)
	res := h.Reader.Items(r.URL.Query().Get("category"))
	h.Metrics.MenuRead(res.Source)
	h.respond(w, http.StatusOK, menuResponse{
		Success:       true,
		Items:         toMenuItems(res.Items),
		Source:        res.Source,
		UsingFallback: res.UsingFallback,
	})
}

func (h *Handler) handleFeatured(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	res := h.Reader.Featured()
	h.Metrics.MenuRead(res.Source)
	h.respond(w, http.StatusOK, menuResponse{
		Success:       true,
		Items:         toMenuItems(res.Items),
		Source:        res.Source,
		UsingFallback: res.UsingFallback,
	})
}

// maybePull runs a sync cycle when the gate grants this client a fresh pull. Failures only
// reach the log; the read that follows serves whatever the cache holds.
func (h *Handler) maybePull(r *http.Request) {
	if !h.Syncer.Enabled() {
		return
	}
	ip := clientIP(r)
	d := h.Gate.Decide(ip)
	h.Metrics.GateDecision(d.Reason)
	if !d.Permit {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.PullTimeout)
	defer cancel()
	if _, err := h.Syncer.SyncCatalog(ctx); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"ip":     gate.MaskIP(ip),
			"reason": d.Reason,
		}).Warn("visitor sync failed, serving cached menu")
	}
}

type inventoryRequest struct {
	ItemIDs []string `json:"itemIds"`
}

type inventoryResponse struct {
	Success   bool                  `json:"success"`
	Inventory types.InventoryCounts `json:"inventory"`
	InStock   map[string]bool       `json:"inStock"`
	Error     string                `json:"error,omitempty"`
}

func (h *Handler) handleInventoryCheck(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	defer func() {
		_ = r.Body.Close()
	}()
	if err != nil {
		h.respond(w, http.StatusBadRequest, inventoryResponse{Error: "read error"})
		return
	}
	var req inventoryRequest
	if len(body) == 0 || json.Unmarshal(body, &req) != nil {
		h.respond(w, http.StatusBadRequest, inventoryResponse{Error: "invalid json"})
		return
	}
	ids := dedupe(req.ItemIDs)
	if len(ids) == 0 {
		h.respond(w, http.StatusBadRequest, inventoryResponse{Error: "itemIds is required"})
		return
	}
	if len(ids) > maxInventoryIDs {
		h.respond(w, http.StatusBadRequest, inventoryResponse{Error: "too many itemIds"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.PullTimeout)
	defer cancel()
	counts := h.Syncer.Inventory(ctx, ids)
	inStock := make(map[string]bool, len(ids))
	for _, id := range ids {
		var q *string
		if v, ok := counts[id]; ok {
			q = &v
		}
		inStock[id] = mirror.InStock(q)
	}
	h.respond(w, http.StatusOK, inventoryResponse{Success: true, Inventory: counts, InStock: inStock})
}

type syncResponse struct {
	Success bool               `json:"success"`
	Cycle   *types.CycleResult `json:"cycle,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	res, err := h.Syncer.SyncCatalog(r.Context())
	if err != nil {
		h.respond(w, errorStatus(err), syncResponse{Error: err.Error()})
		return
	}
	h.respond(w, http.StatusOK, syncResponse{Success: true, Cycle: res})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.respond(w, http.StatusOK, h.Syncer.Status(r.Context()))
}

type debugResponse struct {
	Success      bool                  `json:"success"`
	CatalogCount int                   `json:"catalogCount"`
	SampleItems  []types.CatalogItem   `json:"sampleItems"`
	Inventory    types.InventoryCounts `json:"inventory"`
	Error        string                `json:"error,omitempty"`
}

func (h *Handler) handleDebugInventory(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	items, counts, err := h.Syncer.Debug(r.Context())
	if err != nil {
		h.respond(w, errorStatus(err), debugResponse{Error: err.Error()})
		return
	}
	h.respond(w, http.StatusOK, debugResponse{
		Success:      true,
		CatalogCount: len(items),
		SampleItems:  items[:min(debugSampleSize, len(items))],
		Inventory:    counts,
	})
}

type dayHours struct {
	Day   string `json:"day"`
	Open  bool   `json:"open"`
	Hours string `json:"hours"`
}

type hoursResponse struct {
	Success   bool       `json:"success"`
	Source    string     `json:"source"`
	OpenNow   bool       `json:"openNow"`
	Hours     []dayHours `json:"hours"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

func (h *Handler) handleHours(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	snap := h.Syncer.Hours()
	days := make([]dayHours, 0, len(snap.Schedule))
	for d, dh := range snap.Schedule {
		days = append(days, dayHours{Day: time.Weekday(d).String(), Open: dh.Open, Hours: dh.Label()})
	}
	res := hoursResponse{Success: true, Source: snap.Source, OpenNow: snap.Schedule.IsOpen(h.Gate.Now()), Hours: days}
	if !snap.FetchedAt.IsZero() {
		res.FetchedAt = &snap.FetchedAt
	}
	h.respond(w, http.StatusOK, res)
}

// admin guards operator endpoints with the shared admin key, when one is configured.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.AdminKey != "" {
			got := r.Header.Get(types.AdminKeyHdrName)
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminKey)) != 1 {
				log.WithFields(log.Fields{
					"ip":   gate.MaskIP(clientIP(r)),
					"path": r.URL.Path,
				}).Warn("admin request rejected")
				h.respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": types.ErrUnauthorized.Error()})
				return
			}
		}
		next(w, r)
	}
}

func (h *Handler) respond(w http.ResponseWriter, code int, v any) {
	if err := writeJSON(w, code, v); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrCredentialsMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// clientIP extracts the real client IP from X-Forwarded-For or RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
