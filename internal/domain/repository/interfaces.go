package repository

import (
	"context"

	"StockPulse/internal/domain/models"
)

// QuoteProvider is the upstream market data source.
type QuoteProvider interface {
	Quotes(ctx context.Context, codes []string) ([]models.Quote, error)
	Candles(ctx context.Context, code string, period Period, count int) ([]models.Candle, error)
	Ticks(ctx context.Context, code string) ([]models.Tick, error)
	Search(ctx context.Context, keyword string) ([]models.SearchResult, error)
	Detail(ctx context.Context, code string) (models.StockDetail, error)
}

// Publisher forwards polled snapshots onto the message bus.
type Publisher interface {
	PublishQuotes(ctx context.Context, quotes []models.Quote) error
	Close() error
}

// QuoteStore archives snapshots.
type QuoteStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, quotes []models.Quote) error
	Health(ctx context.Context) error
	Close() error
}

// CandleStore archives historical bars per symbol and period.
type CandleStore interface {
	Init(ctx context.Context) error
	SaveCandles(ctx context.Context, fullcode string, period Period, candles []models.Candle) error
	LatestCandles(ctx context.Context, fullcode string, period Period, limit int) ([]models.Candle, error)
}

type Metrics interface {
	RecordMessageSent(sink, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordDecoded(kind string, n int)
	RecordCache(kind string, hit bool)
	RecordUpstream(endpoint string, seconds float64, err error)
}
