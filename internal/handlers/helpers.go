package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/greenarc/esgpipe/internal/common"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteFault maps a classified error onto an HTTP status: bad input is the
// caller's fault, misconfiguration is ours, everything else is a 502 so
// clients know to retry.
func WriteFault(w http.ResponseWriter, err error) error {
	switch common.KindOf(err) {
	case common.FaultPermanentInput:
		return WriteError(w, http.StatusBadRequest, err.Error())
	case common.FaultPermanentSystem:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		return WriteError(w, http.StatusBadGateway, err.Error())
	}
}

// PaginationResponse contains pagination metadata for list endpoints.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// GetPaginationParams extracts page (1-indexed) and limit from the query
// string. Defaults: page 1, limit 20, limit capped at 100.
func GetPaginationParams(r *http.Request) (page, limit int) {
	page = 1
	limit = 20

	if s := r.URL.Query().Get("page"); s != "" {
		if p, err := strconv.Atoi(s); err == nil && p >= 1 {
			page = p
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l >= 1 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}

func totalPages(totalItems, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := totalItems / limit
	if totalItems%limit != 0 {
		pages++
	}
	return pages
}
