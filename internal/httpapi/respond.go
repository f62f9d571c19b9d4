package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tillpoint.org/internal/audit"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the flat error envelope every failure path uses.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]any{"message": message}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a request body strictly: unknown fields and trailing
// garbage are both rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
