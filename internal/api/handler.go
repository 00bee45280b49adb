// Package api implements the read-only operator HTTP surface.
//
// Routes:
//
//	GET /health                           → liveness
//	GET /metrics                          → Prometheus exposition
//	GET /sources                          → registrations with stored counts
//	GET /sources/{nickname}/records?limit → newest stored records of a source
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/scraper"
	"github.com/benny59/architetti/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ─── Response types ───────────────────────────────────────────────────────────

// Source is the JSON shape of one registration.
type Source struct {
	Nickname string   `json:"nickname"`
	Enabled  bool     `json:"enabled"`
	Seeds    []string `json:"seeds"`
	Stored   int      `json:"stored"`
}

// RecordsResponse is the JSON shape of a record listing.
type RecordsResponse struct {
	Source  string         `json:"source"`
	Count   int            `json:"count"`
	Records []model.Record `json:"records"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	store   store.Store
	regs    []scraper.Registration
	metrics http.Handler
	version string
	log     logger.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(st store.Store, regs []scraper.Registration, metrics http.Handler, version string, log logger.Logger) *Handler {
	return &Handler{
		store:   st,
		regs:    regs,
		metrics: metrics,
		version: version,
		log:     log.With(logger.Component("api")),
	}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.Handle("/metrics", h.metrics)
	mux.HandleFunc("/sources", h.handleSources)
	mux.HandleFunc("/sources/", h.handleSourceAction)
}

// Routes returns a new mux with every route mounted.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "architetti",
		"version": h.version,
	})
}

// handleSources handles GET /sources
func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	out := make([]Source, 0, len(h.regs))
	for _, reg := range h.regs {
		n, err := h.store.Count(r.Context(), reg.Nickname)
		if err != nil {
			h.log.Error("Count failed", logger.String("source", reg.Nickname), logger.Error(err))
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		out = append(out, Source{Nickname: reg.Nickname, Enabled: reg.Enabled, Seeds: reg.Seeds, Stored: n})
	}
	jsonOK(w, out)
}

// handleSourceAction handles GET /sources/{nickname}/records
func (h *Handler) handleSourceAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "records" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	nickname := parts[1]
	if !h.registered(nickname) {
		jsonError(w, fmt.Sprintf("unknown source %q", nickname), http.StatusNotFound)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.store.Records(r.Context(), nickname, limit)
	if err != nil {
		h.log.Error("Records query failed", logger.String("source", nickname), logger.Error(err))
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	jsonOK(w, RecordsResponse{Source: nickname, Count: len(records), Records: records})
}

func (h *Handler) registered(nickname string) bool {
	for _, reg := range h.regs {
		if reg.Nickname == nickname {
			return true
		}
	}
	return false
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return n, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
