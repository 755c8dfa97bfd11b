package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs. Process handles
// fresh snapshots; Deliver retries buffered ones against the sink alone.
type Proc interface {
	Process(ctx context.Context, quotes []models.Quote) error
	Deliver(ctx context.Context, quotes []models.Quote) error
}

// QuotePipeline sits between the poller and the processor.
// It validates, drops snapshots whose feed time has not moved, throttles per
// symbol, and buffers when downstream is unavailable.
type QuotePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan models.Quote
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
	mu       sync.Mutex
	lastTime map[string]string    // per-symbol last forwarded feed time
	lastSeen map[string]time.Time // per-symbol last forwarded wall time
	now      func() time.Time
}

type PipelineOption func(*QuotePipeline)

// WithMaxRPS sets the max snapshots per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewQuotePipeline creates a new pipeline.
func NewQuotePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,
		bufSize:  1000,
		lastTime: make(map[string]string),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Quote, p.bufSize)
	return p
}

// Start launches background flushing of buffered snapshots. The pipeline can
// be started again after Stop.
func (p *QuotePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.done = stop, done
	p.mu.Unlock()

	go p.flushLoop(ctx, stop, done)
}

func (p *QuotePipeline) flushLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	backoff := 50 * time.Millisecond
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case q := <-p.bufCh:
			batch := p.drain([]models.Quote{q})
			if err := p.proc.Deliver(ctx, batch); err != nil {
				if backoff < 2*time.Second {
					backoff *= 2
				}
				p.metrics.RecordError("pipeline_flush")
				p.requeue(batch)
				select {
				case <-time.After(backoff):
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
				continue
			}
			backoff = 50 * time.Millisecond
		}
	}
}

// drain collects whatever else is already buffered, without blocking.
func (p *QuotePipeline) drain(batch []models.Quote) []models.Quote {
	for {
		select {
		case q := <-p.bufCh:
			batch = append(batch, q)
		default:
			return batch
		}
	}
}

func (p *QuotePipeline) requeue(batch []models.Quote) {
	for _, q := range batch {
		select {
		case p.bufCh <- q:
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
	}
}

// Stop stops the background flushing and waits for it to exit.
func (p *QuotePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.done
	p.mu.Unlock()
	close(stop)
	<-done
}

// Buffered reports how many snapshots wait for redelivery.
func (p *QuotePipeline) Buffered() int { return len(p.bufCh) }

// Process filters quotes and forwards the survivors as one batch, buffering
// them when downstream fails.
func (p *QuotePipeline) Process(ctx context.Context, quotes []models.Quote) error {
	start := p.now()
	accepted := make([]models.Quote, 0, len(quotes))
	for _, q := range quotes {
		if err := validateQuote(q); err != nil {
			p.metrics.RecordError("pipeline_validate")
			continue
		}
		if !p.allow(q, start) {
			continue
		}
		accepted = append(accepted, q)
	}
	if len(accepted) == 0 {
		return nil
	}

	if err := p.proc.Process(ctx, accepted); err != nil {
		p.metrics.RecordError("pipeline_process")
		for _, q := range accepted {
			select {
			case p.bufCh <- q:
			default:
				p.metrics.RecordError("pipeline_buffer_full")
			}
		}
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateQuote(q models.Quote) error {
	if q.FullCode == "" {
		return fmt.Errorf("fullcode empty")
	}
	if q.Now < 0 || q.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}

// allow rejects a snapshot whose feed time equals the last forwarded one, and
// enforces at most maxRPS snapshots per second per symbol.
func (p *QuotePipeline) allow(q models.Quote, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q.Time != "" && p.lastTime[q.FullCode] == q.Time {
		p.metrics.RecordError("pipeline_unchanged")
		return false
	}
	if p.maxRPS > 0 {
		last := p.lastSeen[q.FullCode]
		if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
			p.metrics.RecordError("pipeline_throttle")
			return false
		}
	}
	p.lastSeen[q.FullCode] = now
	p.lastTime[q.FullCode] = q.Time
	return true
}
