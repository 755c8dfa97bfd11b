package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
)

const (
	SinkKafka      = "kafka"
	SinkClickHouse = "clickhouse"
	SinkNone       = "none"
)

// Broadcaster pushes snapshots to live subscribers.
type Broadcaster interface {
	Broadcast(quotes []models.Quote)
}

// QuoteProcessor fans polled snapshots out to live subscribers and to the
// configured sink.
type QuoteProcessor struct {
	pub     drepo.Publisher
	store   drepo.QuoteStore
	hub     Broadcaster
	metrics drepo.Metrics
	sink    string
}

// NewQuoteProcessor creates a QuoteProcessor. pub, store and hub may be nil
// when the sink does not need them.
func NewQuoteProcessor(
	pub drepo.Publisher,
	store drepo.QuoteStore,
	hub Broadcaster,
	metrics drepo.Metrics,
	sink string,
) (*QuoteProcessor, error) {
	switch sink {
	case SinkKafka:
		if pub == nil {
			return nil, fmt.Errorf("sink %s: publisher is nil", sink)
		}
	case SinkClickHouse:
		if store == nil {
			return nil, fmt.Errorf("sink %s: store is nil", sink)
		}
	case SinkNone, "":
		sink = SinkNone
	default:
		return nil, fmt.Errorf("unknown sink: %s", sink)
	}
	return &QuoteProcessor{pub: pub, store: store, hub: hub, metrics: metrics, sink: sink}, nil
}

// Process broadcasts then persists a batch. Broadcasting never fails; a sink
// error is returned so the pipeline can buffer the batch.
func (p *QuoteProcessor) Process(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	if p.hub != nil {
		p.hub.Broadcast(quotes)
	}
	return p.Deliver(ctx, quotes)
}

// Deliver writes a batch to the sink only. Retries of buffered snapshots go
// through here so subscribers never see an older price twice.
func (p *QuoteProcessor) Deliver(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	switch p.sink {
	case SinkKafka:
		err = p.pub.PublishQuotes(ctx, quotes)
	case SinkClickHouse:
		err = p.store.StoreBatch(ctx, quotes)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	if p.sink != SinkNone {
		for _, q := range quotes {
			p.metrics.RecordMessageSent(p.sink, q.FullCode)
		}
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *QuoteProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
