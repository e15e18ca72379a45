package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kr1s57/lookupx/internal/usecase/lookup"
)

// LookupHandler handles risk lookup HTTP requests
type LookupHandler struct {
	service *lookup.Service
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(service *lookup.Service) *LookupHandler {
	return &LookupHandler{service: service}
}

// rejectionMessage maps input errors to the message returned to callers
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, lookup.ErrIdentifierRequired):
		return "Identifier required"
	case errors.Is(err, lookup.ErrUnclassifiable):
		return "Invalid identifier format"
	case errors.Is(err, lookup.ErrInvalidType):
		return "Invalid identifier type"
	case errors.Is(err, lookup.ErrEmptyBatch):
		return "No identifiers provided"
	case errors.Is(err, lookup.ErrBatchTooLarge):
		return "Too many identifiers in batch"
	default:
		return "Invalid request"
	}
}

// Lookup aggregates risk signals for one identifier
// POST /api/lookup
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookup.Request
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.service.Lookup(r.Context(), req)
	if err != nil {
		if lookup.IsRejection(err) {
			ErrorResponse(w, http.StatusBadRequest, rejectionMessage(err), nil)
			return
		}
		slog.Error("[LOOKUP] Lookup failed", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Lookup failed", nil)
		return
	}

	JSONResponse(w, http.StatusOK, result)
}

// BatchLookup aggregates risk signals for several identifiers
// POST /api/lookup/batch
func (h *LookupHandler) BatchLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifiers []string `json:"identifiers"`
		BatchSize   int      `json:"batchSize"`
		SkipCache   bool     `json:"skipCache"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.service.BatchLookup(r.Context(), req.Identifiers, lookup.BatchOptions{
		BatchSize: req.BatchSize,
		SkipCache: req.SkipCache,
	})
	if err != nil {
		if lookup.IsRejection(err) {
			ErrorResponse(w, http.StatusBadRequest, rejectionMessage(err), err)
			return
		}
		slog.Error("[BATCH] Batch lookup failed", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Batch lookup failed", nil)
		return
	}

	JSONResponse(w, http.StatusOK, report)
}

// Usage returns remaining provider budgets
// GET /api/usage
func (h *LookupHandler) Usage(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"providers": h.service.Usage(),
	})
}

// CacheStats returns cache hit/miss statistics
// GET /api/cache/stats
func (h *LookupHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.service.CacheStats(r.Context())
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "Cache statistics not available", nil)
		return
	}
	JSONResponse(w, http.StatusOK, stats)
}
