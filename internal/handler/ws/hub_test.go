package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/quotes" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

var batch = []models.Quote{
	{FullCode: "sh600000", Now: 10},
	{FullCode: "sz000001", Now: 11},
	{FullCode: "usAAPL", Now: 200},
}

func TestBroadcastAll(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	hub.Broadcast(batch)
	env := readEnvelope(t, conn)
	if env.Type != "quotes" || len(env.Quotes) != 3 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestBroadcastFiltersByCodes(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "?codes=sh600000,AAPL.US")
	waitClients(t, hub, 1)

	hub.Broadcast(batch)
	env := readEnvelope(t, conn)
	if len(env.Quotes) != 2 || env.Quotes[0].FullCode != "sh600000" || env.Quotes[1].FullCode != "usAAPL" {
		t.Fatalf("unexpected filtered quotes: %+v", env.Quotes)
	}
}

func TestSubscribeCommand(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	if err := conn.WriteJSON(command{Action: "subscribe", Codes: []string{" sz000001 "}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readEnvelope(t, conn)
	if ack.Type != "subscribed" || len(ack.Codes) != 1 || ack.Codes[0] != "sz000001" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	hub.Broadcast(batch)
	env := readEnvelope(t, conn)
	if len(env.Quotes) != 1 || env.Quotes[0].FullCode != "sz000001" {
		t.Fatalf("unexpected quotes after subscribe: %+v", env.Quotes)
	}
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
	// must not panic on a closed client
	hub.Broadcast(batch)
}

func TestFilterWithoutMatches(t *testing.T) {
	c := &Client{}
	c.setCodes([]string{"hk00700"})
	subset, filtered := c.filter(batch)
	if !filtered || len(subset) != 0 {
		t.Fatalf("expected empty filtered subset, got %v %v", subset, filtered)
	}
	c.setCodes(nil)
	if _, filtered := c.filter(batch); filtered {
		t.Fatal("nil filter should pass everything")
	}
}
