package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func badRequest(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Kind: KindBadRequest, Message: msg}
}

// decodeJSON reads a size limited JSON body into v. An empty body is
// accepted when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &APIError{Status: http.StatusRequestEntityTooLarge, Kind: KindBadRequest, Message: "Request body too large."}
		}
		return badRequest("Invalid JSON body.")
	}
	return nil
}

// parseID reads a positive integer URL parameter
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid " + name + ".")
	}
	return id, nil
}

// parseLimit reads the optional ?limit= query parameter, 0 when absent
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, badRequest("Invalid limit.")
	}
	return limit, nil
}
