package server

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsurePropertiesPreservesLayout(t *testing.T) {
	dir := t.TempDir()
	initial := "#Minecraft server properties\nmotd=A Server\nenable-rcon=false\n\nmax-players=20\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.properties"), []byte(initial), 0o644))

	changed, err := EnsureProperties(dir, map[string]string{
		"enable-rcon":   "true",
		"rcon.port":     "25575",
		"rcon.password": "secret",
	})
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(filepath.Join(dir, "server.properties"))
	require.NoError(t, err)
	assert.Equal(t,
		"#Minecraft server properties\nmotd=A Server\nenable-rcon=true\n\nmax-players=20\nrcon.password=secret\nrcon.port=25575\n",
		string(data))
}

func TestEnsurePropertiesNoChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.properties"), []byte("enable-rcon=true\n"), 0o644))

	changed, err := EnsureProperties(dir, map[string]string{"enable-rcon": "true"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReadPropertiesMissingFile(t *testing.T) {
	props, err := ReadProperties(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestCheckPortAvailable(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.ErrorContains(t, CheckPortAvailable(port), "not available")
}

func TestWorkspacePrepare(t *testing.T) {
	dir := t.TempDir()
	ws := &Workspace{Dir: dir, RCONPassword: "pw", AcceptEULA: true}

	assert.ErrorContains(t, ws.Prepare(), "server jar not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.jar"), []byte("jar"), 0o644))
	require.NoError(t, ws.Prepare())

	props, err := ReadProperties(dir)
	require.NoError(t, err)
	assert.Equal(t, "true", props["enable-rcon"])
	assert.Equal(t, "pw", props["rcon.password"])
	assert.NotContains(t, props, "rcon.port")

	eula, err := os.ReadFile(filepath.Join(dir, "eula.txt"))
	require.NoError(t, err)
	assert.Equal(t, "eula=true\n", string(eula))
}

type fakeInstaller struct {
	calls []string
	err   error
}

func (f *fakeInstaller) Install(_ context.Context, version, dest string) error {
	f.calls = append(f.calls, version)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("jar"), 0o644)
}

func (f *fakeInstaller) Versions(context.Context) ([]string, error) {
	return []string{"1.21"}, nil
}

func TestWorkspacePrepareInstallsMissingJar(t *testing.T) {
	dir := t.TempDir()
	inst := &fakeInstaller{}
	ws := &Workspace{Dir: dir, JarFile: "paper.jar", RCONPassword: "pw", Installer: inst, Version: "1.21"}

	require.NoError(t, ws.Prepare())
	require.NoError(t, ws.Prepare())
	assert.Equal(t, []string{"1.21"}, inst.calls)
	assert.FileExists(t, filepath.Join(dir, "paper.jar"))
}

func TestWorkspacePrepareInstallFailure(t *testing.T) {
	ws := &Workspace{Dir: t.TempDir(), Installer: &fakeInstaller{err: errors.New("status 503")}, Version: "1.21"}
	assert.ErrorContains(t, ws.Prepare(), "install server jar: status 503")
}
