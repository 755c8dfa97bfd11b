package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/symbol"
	applogger "StockPulse/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// Client is one websocket peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	codes map[string]struct{} // nil receives everything
}

// command is what clients may send: {"action":"subscribe","codes":[...]}.
// An empty code list on subscribe resets the filter to all symbols.
type command struct {
	Action string   `json:"action"`
	Codes  []string `json:"codes"`
}

func newClient(h *Hub, conn *websocket.Conn, codes []string) *Client {
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	c.setCodes(codes)
	return c
}

func (c *Client) setCodes(codes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(codes) == 0 {
		c.codes = nil
		return
	}
	c.codes = make(map[string]struct{}, len(codes))
	for _, code := range codes {
		c.codes[code] = struct{}{}
	}
}

func (c *Client) subscribed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.codes))
	for code := range c.codes {
		out = append(out, code)
	}
	return out
}

// filter returns the quotes the client asked for. filtered is false when
// the client takes everything.
func (c *Client) filter(quotes []models.Quote) (subset []models.Quote, filtered bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.codes == nil {
		return quotes, false
	}
	for _, q := range quotes {
		if _, ok := c.codes[q.FullCode]; ok {
			subset = append(subset, q)
		}
	}
	return subset, true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.removeClient(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.removeClient(c)
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.hub.removeClient(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws read", applogger.Error(err))
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			c.setCodes(symbol.NormalizeAll(cmd.Codes))
			c.reply(Envelope{Type: "subscribed", Codes: c.subscribed()})
		case "unsubscribe":
			c.setCodes(nil)
			c.reply(Envelope{Type: "subscribed"})
		}
	}
}

// reply queues an acknowledgement. It may race with removeClient closing
// send, so it goes through the hub lock.
func (c *Client) reply(env Envelope) {
	b := encode(env)
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}
