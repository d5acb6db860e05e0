package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
)

// CodeRateLimited is the error code of a 429 response.
const CodeRateLimited = "RATE_LIMITED"

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a request-level failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func fail(w http.ResponseWriter, status int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorBody{Error: detail}); err != nil {
		slog.Warn("write error response", "error", err)
	}
}

// failErr writes err with the status of its sync error code. Internal
// causes are logged, not returned.
func failErr(w http.ResponseWriter, r *http.Request, err error) {
	code := engine.CodeOf(err)
	detail := ErrorDetail{Code: string(code), Message: "internal error"}
	var se *engine.SyncError
	if errors.As(err, &se) && code != engine.ErrCodeInternal {
		detail.Message = se.Message
		detail.Field = se.Field
	} else {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	fail(w, statusFor(code), detail)
}

func statusFor(code engine.ErrorCode) int {
	switch code {
	case engine.ErrCodeValidation:
		return http.StatusBadRequest
	case engine.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case engine.ErrCodeNotFound:
		return http.StatusNotFound
	case engine.ErrCodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
