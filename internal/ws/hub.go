package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CommandFunc runs a console command sent by a websocket client.
type CommandFunc func(ctx context.Context, command string) (string, error)

type directMessage struct {
	client *Client
	data   []byte
}

// Hub relays bridge events to websocket clients. New clients first receive
// the most recent events, then the live stream.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	stop       chan struct{}
	stopOnce   sync.Once

	history    [][]byte
	maxHistory int
	mu         sync.RWMutex

	onCommand CommandFunc
	logger    *log.Logger
}

func NewHub(maxHistory int, onCommand CommandFunc, logger *log.Logger) *Hub {
	if maxHistory < 0 {
		maxHistory = 0
	}
	if logger == nil {
		logger = log.Default().WithPrefix("ws")
	}
	return &Hub{
		broadcast:  make(chan []byte, 4096),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 64),
		clients:    make(map[*Client]bool),
		stop:       make(chan struct{}),
		maxHistory: maxHistory,
		history:    make([][]byte, 0, maxHistory),
		onCommand:  onCommand,
		logger:     logger,
	}
}

func (h *Hub) GetHistorySnapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.history) == 0 {
		return nil
	}
	copyHist := make([][]byte, len(h.history))
	copy(copyHist, h.history)
	return copyHist
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.RLock()
			for _, msg := range h.history {
				client.send <- msg
			}
			h.mu.RUnlock()
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case msg := <-h.direct:
			if h.clients[msg.client] {
				select {
				case msg.client.send <- msg.data:
				default:
				}
			}

		case message := <-h.broadcast:
			if h.maxHistory > 0 {
				h.mu.Lock()
				h.history = append(h.history, message)
				if len(h.history) > h.maxHistory {
					h.history = h.history[1:]
				}
				h.mu.Unlock()
			}

			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// too slow; drop the client rather than stall everyone
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) Broadcast(message []byte) {
	msgCopy := append([]byte(nil), message...)
	select {
	case h.broadcast <- msgCopy:
	case <-h.stop:
	}
}

// sendTo delivers data to one client only.
func (h *Hub) sendTo(c *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: c, data: data}:
	case <-h.stop:
	}
}

// Forward publishes every event from events until the channel closes.
func (h *Hub) Forward(events <-chan domain.Event) {
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Warn("could not encode event", "type", ev.Type, "err", err)
			continue
		}
		h.Broadcast(data)
	}
}

// Gate reports whether one more command may run now.
type Gate func() bool

// ServeWs upgrades the request. Only clients with allowCommands may run
// console commands over the socket; gate, when set, is consulted before each.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, allowCommands bool, gate Gate) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256+h.maxHistory), canCommand: allowCommands, gate: gate}

	select {
	case h.register <- client:
	case <-h.stop:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
