package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"craftbridge/internal/auth"
	"craftbridge/internal/backup"
	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoutes(t *testing.T) {
	dir := t.TempDir()
	serverDir := filepath.Join(dir, "server")
	require.NoError(t, os.MkdirAll(serverDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(serverDir, "level.dat"), []byte("x"), 0o644))

	coord := &fakeCoordinator{state: domain.Running}
	mgr := backup.NewManager(serverDir, filepath.Join(dir, "backups"), coord, log.New(io.Discard))
	h := (&Server{Coordinator: coord, Backups: mgr, Secret: testSecret}).Routes()

	rec := do(t, h, http.MethodPost, "/backups", auth.RoleViewer, `{"name":"nightly"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/backups", auth.RoleOperator, `{"name":"nightly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created backup.BackupInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, []string{"save-off", "save-all flush", "save-on"}, coord.commands)

	rec = do(t, h, http.MethodGet, "/backups", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []backup.BackupInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.Name, list[0].Name)

	rec = do(t, h, http.MethodPost, "/backups/"+created.Name+"/restore", auth.RoleOperator, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_running", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodDelete, "/backups/missing.zip", auth.RoleOperator, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/backups/"+created.Name, auth.RoleOperator, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
