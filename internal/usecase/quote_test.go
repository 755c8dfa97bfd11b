package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	mid "StockPulse/internal/middleware"
	"StockPulse/internal/services/session"
	"StockPulse/pkg/metrics"
)

func TestNewQuoteProcessorValidatesSink(t *testing.T) {
	if _, err := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, SinkKafka); err == nil {
		t.Fatal("kafka sink without publisher must fail")
	}
	if _, err := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, SinkClickHouse); err == nil {
		t.Fatal("clickhouse sink without store must fail")
	}
	if _, err := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, "s3"); err == nil {
		t.Fatal("unknown sink must fail")
	}
	if _, err := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, ""); err != nil {
		t.Fatalf("empty sink means none: %v", err)
	}
}

func TestQuoteProcessorFanOut(t *testing.T) {
	pub := &fakePublisher{}
	hub := &fakeHub{}
	p, err := NewQuoteProcessor(pub, nil, hub, metrics.Nop{}, SinkKafka)
	if err != nil {
		t.Fatal(err)
	}
	quotes := []models.Quote{{FullCode: "sh600000"}, {FullCode: "sz000001"}}
	if err := p.Process(context.Background(), quotes); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(pub.published) != 2 || len(hub.got) != 2 {
		t.Fatalf("published %d, broadcast %d", len(pub.published), len(hub.got))
	}
}

func TestQuoteProcessorStoreError(t *testing.T) {
	store := &fakeQuoteStore{err: errors.New("down")}
	hub := &fakeHub{}
	p, _ := NewQuoteProcessor(nil, store, hub, metrics.Nop{}, SinkClickHouse)
	if err := p.Process(context.Background(), []models.Quote{{FullCode: "sh600000"}}); err == nil {
		t.Fatal("expected store error")
	}
	if len(hub.got) != 1 {
		t.Fatal("live subscribers are served even when the sink fails")
	}
}

func TestBufferedRetryDoesNotRebroadcast(t *testing.T) {
	store := &fakeQuoteStore{err: errors.New("down")}
	hub := &fakeHub{}
	proc, _ := NewQuoteProcessor(nil, store, hub, metrics.Nop{}, SinkClickHouse)
	pipe := mid.NewQuotePipeline(proc, metrics.Nop{}, mid.WithMaxRPS(1000))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	old := models.Quote{FullCode: "sh600000", Now: 10, Time: "20250725100000"}
	if err := pipe.Process(ctx, []models.Quote{old}); err == nil {
		t.Fatal("expected sink error")
	}
	store.setErr(nil)
	time.Sleep(5 * time.Millisecond)
	newer := models.Quote{FullCode: "sh600000", Now: 10.5, Time: "20250725100003"}
	if err := pipe.Process(ctx, []models.Quote{newer}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	pipe.Start(ctx)
	defer pipe.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for store.len() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("buffer not flushed, stored %d", store.len())
		}
		time.Sleep(10 * time.Millisecond)
	}

	prices := hub.prices()
	if len(prices) != 2 || prices[len(prices)-1] != 10.5 {
		t.Fatalf("pushed prices %v, want [10 10.5]", prices)
	}
}

func TestDeliverSkipsBroadcast(t *testing.T) {
	store := &fakeQuoteStore{}
	hub := &fakeHub{}
	proc, _ := NewQuoteProcessor(nil, store, hub, metrics.Nop{}, SinkClickHouse)
	if err := proc.Deliver(context.Background(), []models.Quote{{FullCode: "sh600000"}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if store.len() != 1 || len(hub.prices()) != 0 {
		t.Fatalf("stored %d, broadcast %d", store.len(), len(hub.prices()))
	}
}

func fixedSession(at time.Time) *session.Classifier {
	return &session.Classifier{Now: func() time.Time { return at }, Location: session.CST}
}

func TestPollOnceRespectsSession(t *testing.T) {
	provider := newFakeProvider()
	store := &fakeQuoteStore{}
	proc, _ := NewQuoteProcessor(nil, store, nil, metrics.Nop{}, SinkClickHouse)
	pipe := mid.NewQuotePipeline(proc, metrics.Nop{}, mid.WithMaxRPS(1000))

	// Saturday
	closed := fixedSession(time.Date(2025, 7, 26, 10, 0, 0, 0, session.CST))
	p := NewQuotePoller(provider, pipe, closed, metrics.Nop{}, nil, PollerConfig{Symbols: []string{"sh600000"}})
	p.PollOnce(context.Background())
	if provider.count("quotes") != 0 {
		t.Fatal("poller must idle outside the session")
	}

	open := fixedSession(time.Date(2025, 7, 25, 10, 0, 0, 0, session.CST))
	p = NewQuotePoller(provider, pipe, open, metrics.Nop{}, nil, PollerConfig{
		Symbols:   []string{"sh600000", "sz000001", "AAPL.US"},
		BatchSize: 2,
	})
	p.PollOnce(context.Background())
	if n := provider.count("quotes"); n != 2 {
		t.Fatalf("expected 2 batches, got %d", n)
	}
	if store.len() != 3 {
		t.Fatalf("stored %d quotes, want 3", store.len())
	}
	if p.Symbols()[2] != "usAAPL" {
		t.Fatalf("symbols not normalized: %v", p.Symbols())
	}
}

func TestPollOnceIgnoreSession(t *testing.T) {
	provider := newFakeProvider()
	proc, _ := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, SinkNone)
	pipe := mid.NewQuotePipeline(proc, metrics.Nop{})
	closed := fixedSession(time.Date(2025, 7, 26, 22, 0, 0, 0, session.CST))
	p := NewQuotePoller(provider, pipe, closed, metrics.Nop{}, nil, PollerConfig{
		Symbols:       []string{"sh600000"},
		IgnoreSession: true,
	})
	p.PollOnce(context.Background())
	if provider.count("quotes") != 1 {
		t.Fatal("IgnoreSession must poll regardless of the clock")
	}
}

func TestPollerStartShutdown(t *testing.T) {
	provider := newFakeProvider()
	proc, _ := NewQuoteProcessor(nil, nil, nil, metrics.Nop{}, SinkNone)
	pipe := mid.NewQuotePipeline(proc, metrics.Nop{})
	p := NewQuotePoller(provider, pipe, nil, metrics.Nop{}, nil, PollerConfig{
		Symbols:       []string{"sh600000"},
		Interval:      10 * time.Millisecond,
		IgnoreSession: true,
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if provider.count("quotes") < 2 {
		t.Fatalf("expected repeated polls, got %d", provider.count("quotes"))
	}
}
