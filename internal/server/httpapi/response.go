package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
)

const maxJSONBody = 1 << 20

// apiResponse is the envelope for every successful response.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, apiResponse{StatusCode: status, Data: data, Message: msg, Success: true})
}

// writeError is the single point where errors become HTTP responses. Only
// common.Error messages reach the client; anything else is logged and
// reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, fallback logging.Logger, err error) {
	log := logging.FromContext(r.Context(), fallback)

	status := http.StatusInternalServerError
	msg := "internal server error"

	var e *common.Error
	if errors.As(err, &e) {
		status = e.Status()
		if status != http.StatusInternalServerError {
			msg = e.Message
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", "status", status, "error", err.Error())
	} else {
		log.Debug(r.Context(), "request rejected", "status", status, "error", err.Error())
	}

	writeJSON(w, status, apiError{StatusCode: status, Message: msg, Success: false})
}

// decodeJSON reads a single JSON value. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return common.Validation("request body is required")
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return common.Validation("invalid JSON body")
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return common.Validation("extra data after JSON object")
	}
	return nil
}
