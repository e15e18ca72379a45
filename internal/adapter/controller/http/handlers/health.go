package handlers

import (
	"net/http"

	"github.com/kr1s57/lookupx/internal/usecase/lookup"
)

// HealthCheck returns a handler for the health check endpoint.
// Callers use it to decide whether to call /api/lookup at all.
// GET /health
func HealthCheck(service *lookup.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, http.StatusOK, service.Health())
	}
}

// NotFound answers unknown routes with a JSON error
func NotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, http.StatusNotFound, "Not found", nil)
}
