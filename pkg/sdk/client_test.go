package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/server/command":
			var req CommandRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(CommandResponse{Command: req.Command, Response: "Set the time to 1000"})
		case "/server/players":
			_ = json.NewEncoder(w).Encode(Roster{Count: 1, Max: 20, Players: []string{"Notch"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")

	resp, err := c.Exec(context.Background(), "time set 1000")
	require.NoError(t, err)
	assert.Equal(t, "Set the time to 1000", resp)

	roster, err := c.Players(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Notch"}, roster.Players)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"server is not running (state STOPPED)","code":"not_running"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Stop(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
	assert.False(t, IsAlreadyRunning(err))
	assert.Equal(t, "error: server is not running (state STOPPED)", err.Error())
}

func TestEventsURL(t *testing.T) {
	u, err := NewClient("https://bridge.example:8443", "a b").EventsURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://bridge.example:8443/ws/events?token=a+b", u)
}

func TestBackups(t *testing.T) {
	var deleted, restored string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/backups":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(BackupInfo{Name: req["name"] + "-20261019-120000.zip", Size: 42})
		case r.Method == http.MethodGet && r.URL.Path == "/backups":
			_ = json.NewEncoder(w).Encode([]BackupInfo{{Name: "a.zip"}, {Name: "b.zip"}})
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost:
			restored = r.URL.Path
			_, _ = w.Write([]byte(`{"status":"restored"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	info, err := c.CreateBackup(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly-20261019-120000.zip", info.Name)

	list, err := c.ListBackups(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.DeleteBackup(ctx, "a.zip"))
	assert.Equal(t, "/backups/a.zip", deleted)
	require.NoError(t, c.RestoreBackup(ctx, "b.zip"))
	assert.Equal(t, "/backups/b.zip/restore", restored)
}
