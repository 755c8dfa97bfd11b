// Package ws pushes live quote snapshots to websocket clients.
package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/symbol"
	applogger "StockPulse/pkg/logger"
)

const sendBuffer = 256

// Envelope is the frame pushed to clients.
type Envelope struct {
	Type   string         `json:"type"`
	Quotes []models.Quote `json:"quotes,omitempty"`
	Codes  []string       `json:"codes,omitempty"`
}

// Hub tracks connected clients and fans quotes out to them. A client whose
// send buffer is full is disconnected rather than blocking the broadcast.
type Hub struct {
	log      *applogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(log *applogger.Logger) *Hub {
	if log == nil {
		log = applogger.Nop()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: true,
		},
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/quotes", h.HandleWS)
}

// HandleWS upgrades the request. The optional `codes` query parameter
// (comma separated) limits which symbols the client receives.
func (h *Hub) HandleWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	conn.EnableWriteCompression(true)

	client := newClient(h, conn, parseCodes(c.QueryParam("codes")))

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("ws client connected", applogger.Int("clients", count))

	go client.writePump()
	go client.readPump()
	return nil
}

// Broadcast sends each client the quotes matching its filter.
func (h *Hub) Broadcast(quotes []models.Quote) {
	if len(quotes) == 0 {
		return
	}
	var all []byte
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients {
		var frame []byte
		if subset, filtered := client.filter(quotes); !filtered {
			if all == nil {
				all = encode(Envelope{Type: "quotes", Quotes: quotes})
			}
			frame = all
		} else if len(subset) > 0 {
			frame = encode(Envelope{Type: "quotes", Quotes: subset})
		}
		if frame == nil {
			continue
		}
		select {
		case client.send <- frame:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("ws client too slow, disconnecting")
		h.removeClient(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}

// removeClient closes the client's send channel exactly once; the write
// pump then sends a close frame and closes the connection.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		close(c.send)
	}
}

func encode(env Envelope) []byte {
	b, err := json.Marshal(env)
	if err != nil {
		return nil
	}
	return b
}

func parseCodes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return symbol.NormalizeAll(strings.Split(raw, ","))
}
