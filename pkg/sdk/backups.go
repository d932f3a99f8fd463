package sdk

import (
	"context"
	"net/url"
)

func (c *Client) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	var backups []BackupInfo
	err := c.get(ctx, "/backups", &backups)
	return backups, err
}

func (c *Client) CreateBackup(ctx context.Context, name string) (*BackupInfo, error) {
	var info BackupInfo
	if err := c.post(ctx, "/backups", map[string]string{"name": name}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) DeleteBackup(ctx context.Context, name string) error {
	return c.delete(ctx, "/backups/"+url.PathEscape(name))
}

func (c *Client) RestoreBackup(ctx context.Context, name string) error {
	return c.post(ctx, "/backups/"+url.PathEscape(name)+"/restore", nil, nil)
}
