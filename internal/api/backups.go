package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type backupRequest struct {
	Name string `json:"name"`
}

func (api *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := api.Backups.ListBackups()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

func (api *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON")
		return
	}

	info, err := api.Backups.CreateBackup(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (api *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := api.Backups.DeleteBackup(chi.URLParam(r, "name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if err := api.Backups.RestoreBackup(chi.URLParam(r, "name")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
