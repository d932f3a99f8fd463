package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	commandTimeout = 30 * time.Second
)

type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	canCommand bool
	gate       Gate
}

// commandRequest is what clients send to run a console command.
type commandRequest struct {
	Command string `json:"command"`
}

type commandResult struct {
	Type     string `json:"type"`
	Command  string `json:"command"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "err", err)
			}
			return
		}

		var req commandRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Command == "" {
			continue
		}
		c.runCommand(req.Command)
	}
}

func (c *Client) runCommand(command string) {
	result := commandResult{Type: "command-result", Command: command}
	switch {
	case c.hub.onCommand == nil:
		result.Error = "commands are not accepted on this endpoint"
	case !c.canCommand:
		result.Error = "operator role required"
	case c.gate != nil && !c.gate():
		result.Error = "rate limited: too many commands, slow down"
	default:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		resp, err := c.hub.onCommand(ctx, command)
		cancel()
		result.Response = resp
		if err != nil {
			result.Error = err.Error()
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.hub.sendTo(c, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
