package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/timesheet-engine/core"
)

// =============================================================================
// RESPONSES
// =============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses. Anything that is
// not a business error is logged and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		notFound   *core.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Details: validation.Field})
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", capitalize(notFound.Resource)), nil)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		log.Printf("[API] %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// =============================================================================
// REQUEST DECODING
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads and validates a JSON body. It writes the 400 itself and
// reports false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	// an empty body decodes as {} and goes through validation
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", describeValidation(err))
		return false
	}
	return true
}

func describeValidation(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f.Tag() {
		case "required":
			parts = append(parts, f.Field()+" is required")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", f.Field(), f.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
