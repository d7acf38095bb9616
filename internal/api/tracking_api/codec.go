package tracking_api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/BearBump/carego/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	statusSuccess = "success"
	statusError   = "error"
)

type jsonRaw = json.RawMessage

type createOrderResponse struct {
	Status       string `json:"status"`
	TrackingCode string `json:"tracking_code"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type tokenResponse struct {
	Status    string    `json:"status"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// decodeObject reads the body as a single JSON object, keeping field values
// raw so that type checks can be done per field.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]jsonRaw, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var m map[string]jsonRaw
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, models.InvalidInput("request body must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, models.InvalidInput("request body must contain a single JSON object")
	}
	return m, nil
}

func isNull(raw jsonRaw) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// stringField reports present=false for an absent or null field.
func stringField(m map[string]jsonRaw, name string) (string, bool, error) {
	raw, ok := m[name]
	if !ok || isNull(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true, models.InvalidInput(name + " must be a string")
	}
	return s, true, nil
}

// numberField returns nil for an absent or null field. Strings and
// booleans are rejected even when they look numeric.
func numberField(m map[string]jsonRaw, name string) (*float64, error) {
	raw, ok := m[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, models.InvalidInput(name + " must be a number")
	}
	return &f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds to HTTP statuses. Internal details are logged, never returned.
func (a *TrackingAPI) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, models.ErrUnauthorized.Error()
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, models.ErrNotFound.Error()
	case errors.Is(err, models.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, models.ErrRateLimited.Error()
	default:
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, messageResponse{Status: statusError, Message: msg})
}
