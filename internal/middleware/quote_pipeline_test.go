package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/pkg/metrics"
)

type recordingProc struct {
	mu        sync.Mutex
	fail      bool
	batches   [][]models.Quote
	delivered int
}

func (r *recordingProc) Deliver(ctx context.Context, quotes []models.Quote) error {
	if err := r.Process(ctx, quotes); err != nil {
		return err
	}
	r.mu.Lock()
	r.delivered += len(quotes)
	r.mu.Unlock()
	return nil
}

func (r *recordingProc) deliveredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered
}

func (r *recordingProc) Process(_ context.Context, quotes []models.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("downstream down")
	}
	r.batches = append(r.batches, append([]models.Quote(nil), quotes...))
	return nil
}

func (r *recordingProc) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func (r *recordingProc) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func quote(code, ts string) models.Quote {
	return models.Quote{FullCode: code, Now: 10, Time: ts}
}

func TestPipelineDropsUnchangedTime(t *testing.T) {
	proc := &recordingProc{}
	p := NewQuotePipeline(proc, metrics.Nop{}, WithMaxRPS(1))
	clock := time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := p.Process(ctx, []models.Quote{quote("sh600000", "20250725100000"), quote("sz000001", "20250725100000")}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	clock = clock.Add(3 * time.Second)
	// same feed time for sh600000, new for sz000001
	if err := p.Process(ctx, []models.Quote{quote("sh600000", "20250725100000"), quote("sz000001", "20250725100003")}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := proc.count(); got != 3 {
		t.Fatalf("forwarded %d quotes, want 3", got)
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	p := NewQuotePipeline(proc, metrics.Nop{}, WithMaxRPS(2))
	clock := time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	_ = p.Process(ctx, []models.Quote{quote("sh600000", "1")})
	clock = clock.Add(100 * time.Millisecond)
	_ = p.Process(ctx, []models.Quote{quote("sh600000", "2")})
	clock = clock.Add(500 * time.Millisecond)
	_ = p.Process(ctx, []models.Quote{quote("sh600000", "3")})

	if got := proc.count(); got != 2 {
		t.Fatalf("forwarded %d quotes, want 2", got)
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	proc := &recordingProc{}
	p := NewQuotePipeline(proc, metrics.Nop{})
	bad := []models.Quote{{FullCode: ""}, {FullCode: "sh1", Now: -1}}
	if err := p.Process(context.Background(), bad); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 0 {
		t.Fatal("invalid quotes must not be forwarded")
	}
}

func TestPipelineBuffersAndFlushes(t *testing.T) {
	proc := &recordingProc{fail: true}
	p := NewQuotePipeline(proc, metrics.Nop{}, WithBufferSize(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Process(ctx, []models.Quote{quote("sh600000", "1"), quote("sz000001", "1")}); err == nil {
		t.Fatal("expected downstream error")
	}
	if p.Buffered() != 2 {
		t.Fatalf("buffered = %d, want 2", p.Buffered())
	}

	proc.setFail(false)
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("buffer not flushed, forwarded %d", proc.count())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if proc.deliveredCount() != 2 {
		t.Fatalf("flush must go through Deliver, got %d", proc.deliveredCount())
	}
}

func TestPipelineRestartAfterStop(t *testing.T) {
	proc := &recordingProc{}
	p := NewQuotePipeline(proc, metrics.Nop{})
	ctx := context.Background()

	p.Start(ctx)
	p.Stop()
	p.Start(ctx)
	p.Stop()
	p.Stop()

	proc.setFail(true)
	_ = p.Process(ctx, []models.Quote{quote("sh600000", "1")})
	proc.setFail(false)
	p.Start(ctx)
	defer p.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for proc.deliveredCount() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("restarted pipeline did not flush")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
