package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"craftbridge/internal/backup"
	"craftbridge/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps the bridge error taxonomy onto HTTP. Precondition
// violations are the caller's problem (409); protocol and process failures
// are upstream failures (502).
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyRunning):
		return http.StatusConflict, "already_running"
	case errors.Is(err, domain.ErrNotRunning):
		return http.StatusConflict, "not_running"
	case errors.Is(err, domain.ErrAlreadyConnecting):
		return http.StatusConflict, "already_connecting"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrUnreachable):
		return http.StatusServiceUnavailable, "unreachable"
	case errors.Is(err, domain.ErrSpawn):
		return http.StatusBadGateway, "spawn_failed"
	case errors.Is(err, domain.ErrAuth):
		return http.StatusBadGateway, "rcon_auth"
	case errors.Is(err, domain.ErrConnectionLost),
		errors.Is(err, domain.ErrClosed),
		errors.Is(err, domain.ErrNotConnected):
		return http.StatusBadGateway, "rcon_unavailable"
	case errors.Is(err, domain.ErrProcessExited):
		return http.StatusBadGateway, "process_exited"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
