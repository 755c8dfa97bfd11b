package usecase

import (
	"context"
	"sync"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/pkg/queue"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   map[string]int
	quotes  []models.Quote
	candles []models.Candle
	detail  models.StockDetail
	err     error
}

func newFakeProvider() *fakeProvider { return &fakeProvider{calls: map[string]int{}} }

func (f *fakeProvider) hit(kind string) {
	f.mu.Lock()
	f.calls[kind]++
	f.mu.Unlock()
}

func (f *fakeProvider) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeProvider) Quotes(_ context.Context, codes []string) ([]models.Quote, error) {
	f.hit("quotes")
	if f.err != nil {
		return nil, f.err
	}
	if f.quotes != nil {
		return f.quotes, nil
	}
	out := make([]models.Quote, len(codes))
	for i, c := range codes {
		out[i] = models.Quote{FullCode: c, Now: 10, Volume: 123456, Percent: 1.234, Time: "20250725100000"}
	}
	return out, nil
}

func (f *fakeProvider) Candles(_ context.Context, _ string, _ drepo.Period, count int) ([]models.Candle, error) {
	f.hit("candles")
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candles) > count {
		return f.candles[len(f.candles)-count:], nil
	}
	return f.candles, nil
}

func (f *fakeProvider) Ticks(context.Context, string) ([]models.Tick, error) {
	f.hit("ticks")
	return []models.Tick{{Time: "0930", Price: 10}}, f.err
}

func (f *fakeProvider) Search(_ context.Context, kw string) ([]models.SearchResult, error) {
	f.hit("search")
	return []models.SearchResult{{Code: "600000", Name: kw, FullCode: "sh600000", Market: models.MarketShanghai}}, f.err
}

func (f *fakeProvider) Detail(_ context.Context, code string) (models.StockDetail, error) {
	f.hit("detail")
	d := f.detail
	d.Code = code
	return d, f.err
}

type fakeCandleStore struct {
	mu    sync.Mutex
	saved map[string][]models.Candle
	err   error
}

func (s *fakeCandleStore) Init(context.Context) error { return nil }

func (s *fakeCandleStore) SaveCandles(_ context.Context, code string, p drepo.Period, c []models.Candle) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string][]models.Candle{}
	}
	s.saved[code+"/"+string(p)] = c
	return nil
}

func (s *fakeCandleStore) LatestCandles(_ context.Context, code string, p drepo.Period, limit int) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.saved[code+"/"+string(p)]
	if len(c) > limit {
		c = c[len(c)-limit:]
	}
	return c, s.err
}

type fakeQuoteStore struct {
	mu     sync.Mutex
	stored []models.Quote
	err    error
}

func (s *fakeQuoteStore) Init(context.Context) error   { return nil }
func (s *fakeQuoteStore) Health(context.Context) error { return nil }
func (s *fakeQuoteStore) Close() error                 { return nil }

func (s *fakeQuoteStore) StoreBatch(_ context.Context, q []models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, q...)
	return nil
}

func (s *fakeQuoteStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeQuoteStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.Quote
}

func (p *fakePublisher) PublishQuotes(_ context.Context, q []models.Quote) error {
	p.mu.Lock()
	p.published = append(p.published, q...)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeHub struct {
	mu  sync.Mutex
	got []models.Quote
}

func (h *fakeHub) Broadcast(q []models.Quote) {
	h.mu.Lock()
	h.got = append(h.got, q...)
	h.mu.Unlock()
}

func (h *fakeHub) prices() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.got))
	for i, q := range h.got {
		out[i] = q.Now
	}
	return out
}

type fakeQueue struct {
	msgType string
	payload interface{}
	err     error
	stats   queue.Stats
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.msgType, q.payload = msgType, payload
	return q.err
}

func (q *fakeQueue) Stats(context.Context) (queue.Stats, error) { return q.stats, q.err }

func risingCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := float64(10 + i)
		out[i] = models.Candle{Date: "2025-01-" + string(rune('a'+i%26)), Open: c, Close: c, High: c + 1, Low: c - 1, Volume: 100}
	}
	return out
}
