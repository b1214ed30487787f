package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the shape of every JSON response body.
type Envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Respond writes a success envelope. An empty message falls back to the
// status text.
func Respond(w http.ResponseWriter, code int, message string, data any) {
	if message == "" {
		message = http.StatusText(code)
	}
	WriteJSON(w, code, Envelope{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return BadRequest("Content-Type must be application/json", nil)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return BadRequest("Request body must not be empty", nil)
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return BadRequest("Request body contains malformed JSON", nil)
		case errors.As(err, &typeErr):
			return BadRequest("Bad Request", map[string]string{typeErr.Field: fmt.Sprintf("must be a %s", typeErr.Type)})
		case errors.As(err, &maxErr):
			return BadRequest("Request body too large", nil)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return BadRequest("Bad Request", map[string]string{field: "unknown field"})
		default:
			return BadRequest("", nil).Wrap(err)
		}
	}

	if dec.More() {
		return BadRequest("Request body must contain a single JSON object", nil)
	}
	return nil
}
