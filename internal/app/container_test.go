package app

import (
	"context"
	"testing"

	"craftbridge/internal/config"
	"craftbridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresStoppedBridge(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRAFTBRIDGE_SECRET_KEY", "")
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	cfg.MCVersion = "1.21.1"

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Equal(t, 21, c.JvmManager.MinVersion)
	assert.Equal(t, cfg.RCONAddr(), c.RCON.Addr())
	assert.Equal(t, domain.Stopped, c.Coordinator.State())
	assert.NotNil(t, c.Workspace.Installer)
	assert.Equal(t, cfg.BackupsPath, c.Backups.BackupsPath)

	_, err = c.Coordinator.RunCommand(context.Background(), "list")
	assert.ErrorIs(t, err, domain.ErrNotRunning)

	// no server.jar in the fresh server dir and nothing to fetch it with
	c.Workspace.Installer = nil
	err = c.Coordinator.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrSpawn)
	assert.Equal(t, domain.Stopped, c.Coordinator.State())
}
