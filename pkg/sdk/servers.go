package sdk

import (
	"context"
	"fmt"
)

func (c *Client) Start(ctx context.Context) (*Status, error) {
	var status Status
	err := c.post(ctx, "/server/start", nil, &status)
	return &status, err
}

func (c *Client) Stop(ctx context.Context) (*Status, error) {
	var status Status
	err := c.post(ctx, "/server/stop", nil, &status)
	return &status, err
}

func (c *Client) Kill(ctx context.Context) error {
	return c.post(ctx, "/server/kill", nil, nil)
}

// Exec runs a console command and returns the server's reply.
func (c *Client) Exec(ctx context.Context, command string) (string, error) {
	var resp CommandResponse
	err := c.post(ctx, "/server/command", CommandRequest{Command: command}, &resp)
	return resp.Response, err
}

func (c *Client) Players(ctx context.Context) (*Roster, error) {
	var roster Roster
	err := c.get(ctx, "/server/players", &roster)
	return &roster, err
}

func (c *Client) PlayerCount(ctx context.Context) (uint32, error) {
	var resp struct {
		Online uint32 `json:"online"`
	}
	err := c.get(ctx, "/server/count", &resp)
	return resp.Online, err
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	err := c.get(ctx, "/server/status", &status)
	return &status, err
}

func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	var stats ServerStats
	err := c.get(ctx, "/server/stats", &stats)
	return &stats, err
}

func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := c.get(ctx, fmt.Sprintf("/history?limit=%d", limit), &entries)
	return entries, err
}
