package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/reqctx"
	"github.com/rs/zerolog/log"
)

// APIError is the body of every error response
type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = reqctx.ID(r.Context())
	writeJSON(w, status, e)
}

// writeErr maps pipeline errors onto HTTP statuses
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	message := "internal error"

	if c, ok := errs.CodeOf(err); ok {
		code = string(c)
		message = err.Error()
		switch c {
		case errs.CodeValidation:
			status = http.StatusBadRequest
		case errs.CodeNotFound:
			status = http.StatusNotFound
		case errs.CodeQueueFull:
			status = http.StatusServiceUnavailable
		}
	} else if errors.Is(err, errs.ErrQueueClosed) {
		status = http.StatusServiceUnavailable
		code = "UNAVAILABLE"
		message = err.Error()
	}

	if status >= 500 {
		log.Error().Err(reqctx.NewRequestError(r.Context(), err)).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeError(w, r, status, code, message)
}
