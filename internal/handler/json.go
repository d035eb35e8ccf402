// Package handler contains the HTTP handlers for the turfplot JSON API.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// APIPrefix is the mount point of the research API.
const APIPrefix = "/api/turf-research"

// maxBodyBytes caps JSON request bodies. Polygons with a few hundred
// vertices fit comfortably.
const maxBodyBytes = 1 << 20

// Middleware wraps a handler; route registration takes one to apply auth.
type Middleware func(http.Handler) http.Handler

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	const op = "handler.decodeJSON"

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		}
		return domain.Invalid(op, "Failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.Invalid(op, "Request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.Invalid(op, "Request body is not valid JSON")
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("handler.pathID", "Invalid id")
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.NewValidationError("handler.queryID", name, "Must be a positive integer.")
	}
	return &id, nil
}

// queryBool reports whether a query parameter is set to a true value.
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// parseIDList parses "1,2, 3" into ids. Blank entries are skipped.
func parseIDList(raw, field string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, domain.NewValidationError("handler.parseIDList", field, "Must be a comma separated list of plot ids.")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
