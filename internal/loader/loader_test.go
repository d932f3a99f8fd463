package loader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSortVersions(t *testing.T) {
	versions := []string{"1.9", "1.20.1", "1.20", "1.8.9", "1.21"}
	SortVersions(versions)
	assert.Equal(t, []string{"1.21", "1.20.1", "1.20", "1.9", "1.8.9"}, versions)
}

func TestVanillaInstall(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/manifest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []map[string]string{
			{"id": "24w14a", "type": "snapshot", "url": srv.URL + "/snap"},
			{"id": "1.20.4", "type": "release", "url": srv.URL + "/details"},
		}})
	})
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"downloads":{"server":{"url":"` + srv.URL + `/server.jar"}}}`))
	})
	mux.HandleFunc("/server.jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jar-bytes"))
	})

	l := NewVanillaInstaller(quietLogger())
	l.ManifestURL = srv.URL + "/manifest"

	versions, err := l.Versions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.20.4"}, versions)

	dest := filepath.Join(t.TempDir(), "srv", "server.jar")
	require.NoError(t, l.Install(context.Background(), "1.20.4", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jar-bytes", string(data))

	err = l.Install(context.Background(), "0.0.1", dest)
	assert.ErrorContains(t, err, "not found")
}

func TestPaperInstallPicksLatestBuild(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`{"versions":["1.20.4","1.21-pre1","1.21"]}`))
		case "/versions/1.21":
			w.Write([]byte(`{"builds":[10,11,12]}`))
		default:
			requested = r.URL.Path
			w.Write([]byte("paper"))
		}
	}))
	defer srv.Close()

	l := NewPaperInstaller(quietLogger())
	l.BaseURL = srv.URL + "/"

	versions, err := l.Versions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.21", "1.20.4"}, versions)

	dest := filepath.Join(t.TempDir(), "paper.jar")
	require.NoError(t, l.Install(context.Background(), "1.21", dest))
	assert.Equal(t, "/versions/1.21/builds/12/downloads/paper-1.21-12.jar", requested)
}

func TestDownloadFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/game":
			w.Write([]byte(`[{"version":"1.21","stable":true}]`))
		case "/loader":
			w.Write([]byte(`[{"version":"0.16.0"}]`))
		case "/installer":
			w.Write([]byte(`[{"version":"1.0.1","stable":true}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := NewFabricInstaller(quietLogger())
	l.BaseURL = srv.URL + "/"

	dest := filepath.Join(t.TempDir(), "server.jar")
	err := l.Install(context.Background(), "1.21", dest)
	assert.ErrorContains(t, err, "status 404")
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".part")
}

func TestGetInstaller(t *testing.T) {
	for _, name := range AvailableLoaders() {
		inst, err := GetInstaller(name, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, inst)
	}
	_, err := GetInstaller("forge", nil)
	assert.ErrorContains(t, err, "installed manually")
	_, err = GetInstaller("bukkit", nil)
	assert.ErrorContains(t, err, "not supported")
}
