package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ludoarena/match-engine/internal/match"
)

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error maps the engine's error taxonomy onto HTTP. Anything outside it
// is logged and answered with a generic 500.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrValidation):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, match.ErrAuthorization):
		Forbidden(w, err.Error())
	case errors.Is(err, match.ErrNotFound):
		NotFound(w, err.Error(), nil)
	case errors.Is(err, match.ErrConflict):
		JSON(w, http.StatusConflict, errorBody{Error: match.ErrConflict.Error()})
	case errors.Is(err, match.ErrInsufficientFunds):
		JSON(w, http.StatusPaymentRequired, errorBody{Error: err.Error()})
	case errors.Is(err, match.ErrMatchesDisabled):
		JSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		InternalServerError(w, "request failed", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Forbidden(w http.ResponseWriter, msg string) {
	slog.Warn("forbidden", "message", msg)
	JSON(w, http.StatusForbidden, errorBody{Error: msg})
}

func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
}
