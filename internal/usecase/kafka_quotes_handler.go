package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/session"
	pkgkafka "StockPulse/pkg/kafka"
)

// QuoteSnapshotHandler consumes snapshot messages and archives them.
type QuoteSnapshotHandler struct {
	topic   string
	store   domrepo.QuoteStore
	metrics domrepo.Metrics
	session *session.Classifier
}

func NewQuoteSnapshotHandler(topic string, store domrepo.QuoteStore, metrics domrepo.Metrics) *QuoteSnapshotHandler {
	return &QuoteSnapshotHandler{topic: topic, store: store, metrics: metrics, session: session.New()}
}

func (h *QuoteSnapshotHandler) Topic() string { return h.topic }

// Handle accepts one JSON quote or an array of them.
func (h *QuoteSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	quotes, err := decodeSnapshots(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if len(quotes) == 0 {
		return nil
	}

	// feed time to now, only meaningful for fresh snapshots
	if t, ok := h.session.Parse(quotes[0].Time); ok {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(t).Seconds())
	}

	start := time.Now()
	err = h.store.StoreBatch(ctx, quotes)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	for _, q := range quotes {
		h.metrics.RecordMessageSent(SinkClickHouse, q.FullCode)
	}
	return nil
}

func decodeSnapshots(b []byte) ([]models.Quote, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var quotes []models.Quote
		if err := json.Unmarshal(b, &quotes); err != nil {
			return nil, fmt.Errorf("decode snapshots: %w", err)
		}
		return quotes, nil
	}
	var q models.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if q.FullCode == "" {
		return nil, fmt.Errorf("decode snapshot: missing fullcode")
	}
	return []models.Quote{q}, nil
}

var _ pkgkafka.MessageHandler = (*QuoteSnapshotHandler)(nil)
