package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"craftbridge/internal/auth"
	"craftbridge/internal/ws"
)

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Command  string `json:"command"`
	Response string `json:"response"`
}

func (api *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := api.Coordinator.Start(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Coordinator.Status(r.Context()))
}

func (api *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := api.Coordinator.Stop(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Coordinator.Status(r.Context()))
}

func (api *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if err := api.Coordinator.Kill(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "killing"})
}

func (api *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON")
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "command is required")
		return
	}

	resp, err := api.Coordinator.RunCommand(r.Context(), req.Command)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Command: req.Command, Response: resp})
}

func (api *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	roster, err := api.Coordinator.ListPlayers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (api *Server) handlePlayerCount(w http.ResponseWriter, r *http.Request) {
	online, err := api.Coordinator.FetchPlayerCount(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"online": online})
}

func (api *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Coordinator.Status(r.Context()))
}

func (api *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.Coordinator.Stats()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (api *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := api.Coordinator.History(limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (api *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if api.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "event stream disabled")
		return
	}
	claims := ClaimsFrom(r.Context())
	operator := claims != nil && claims.Role == auth.RoleOperator
	var gate ws.Gate
	if operator && api.limiter != nil {
		gate = socketGate(api.limiter, r)
	}
	api.Hub.ServeWs(w, r, operator, gate)
}
