package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/handler/ws"
	"StockPulse/internal/service/ratelimit"
	xhttp "StockPulse/pkg/http"
)

func TestStartRequiresHTTP(t *testing.T) {
	if err := New(Components{}, nil, 0).Start(context.Background()); err == nil {
		t.Fatal("expected error without http server")
	}
}

func TestStartShutdown(t *testing.T) {
	closed := 0
	app := New(Components{
		HTTP:    xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath("")),
		Hub:     ws.NewHub(nil),
		Limiter: ratelimit.New(1, 1),
		Closers: []func() error{
			func() error { closed++; return nil },
			func() error { closed++; return errors.New("close failed") },
			ClickHouseCloser(nil),
		},
	}, nil, time.Second)

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := app.Shutdown(ctx)
	if err == nil || err.Error() != "close failed" {
		t.Fatalf("expected closer error, got %v", err)
	}
	if closed != 2 {
		t.Errorf("closers run %d times, want 2", closed)
	}
}
