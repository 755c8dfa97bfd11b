package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/indicator"
	"StockPulse/pkg/cache"
	"StockPulse/pkg/metrics"
)

func newMarketData(p *fakeProvider, archive drepo.CandleStore) *MarketData {
	ttl := TTLs{Quotes: time.Minute, Candles: time.Minute, Ticks: time.Minute, Search: time.Minute, Detail: time.Minute}
	return NewMarketData(p, cache.NewMemoryCache(), ttl, archive, metrics.Nop{})
}

func TestQuotesCached(t *testing.T) {
	p := newFakeProvider()
	m := newMarketData(p, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		quotes, err := m.Quotes(ctx, []string{"sh600000", "AAPL.US"})
		if err != nil {
			t.Fatalf("Quotes: %v", err)
		}
		if len(quotes) != 2 || quotes[1].FullCode != "usAAPL" {
			t.Fatalf("unexpected quotes: %+v", quotes)
		}
	}
	if n := p.count("quotes"); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}

	// a different code set is a different fingerprint
	if _, err := m.Quotes(ctx, []string{"sz000001"}); err != nil {
		t.Fatal(err)
	}
	if n := p.count("quotes"); n != 2 {
		t.Fatalf("provider called %d times, want 2", n)
	}
}

func TestQuotesEmpty(t *testing.T) {
	p := newFakeProvider()
	m := newMarketData(p, nil)
	quotes, err := m.Quotes(context.Background(), nil)
	if err != nil || len(quotes) != 0 || p.count("quotes") != 0 {
		t.Fatalf("Quotes(nil) = %v, %v", quotes, err)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	p := newFakeProvider()
	p.err = errors.New("boom")
	m := newMarketData(p, nil)
	ctx := context.Background()

	if _, err := m.Quotes(ctx, []string{"sh600000"}); err == nil {
		t.Fatal("expected error")
	}
	p.err = nil
	if _, err := m.Quotes(ctx, []string{"sh600000"}); err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if n := p.count("quotes"); n != 2 {
		t.Fatalf("provider called %d times, want 2", n)
	}
}

func TestDisplayQuotes(t *testing.T) {
	m := newMarketData(newFakeProvider(), nil)
	out, err := m.DisplayQuotes(context.Background(), []string{"sh600000"})
	if err != nil {
		t.Fatal(err)
	}
	d := out[0]
	if d.PercentText != "+1.23%" || d.PriceText != "10.00" || d.VolumeText != "12.3万" {
		t.Fatalf("unexpected display: %+v", d)
	}
}

func TestDetailNotFound(t *testing.T) {
	p := newFakeProvider()
	m := newMarketData(p, nil)
	if _, err := m.Detail(context.Background(), "sh999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p.detail = models.StockDetail{Name: "浦发银行", Info: map[string]string{"k": "v"}}
	d, err := m.Detail(context.Background(), "sh600000")
	if err != nil || d.Name != "浦发银行" {
		t.Fatalf("Detail = %+v, %v", d, err)
	}
}

func TestIndicators(t *testing.T) {
	p := newFakeProvider()
	p.candles = risingCandles(40)
	m := newMarketData(p, nil)

	res, err := m.Indicators(context.Background(), IndicatorParams{Code: "sh600000", Count: 40, Config: indicator.DefaultConfig()})
	if err != nil {
		t.Fatalf("Indicators: %v", err)
	}
	if res.Period != drepo.PeriodDay {
		t.Fatalf("period = %q, want day", res.Period)
	}
	if len(res.Indicators.MA.MA5) != 40 || len(res.Indicators.RSI) != 40 {
		t.Fatal("series must be index-aligned with candles")
	}
	if res.Indicators.MA.MA5[3].Valid || !res.Indicators.MA.MA5[4].Valid {
		t.Fatal("MA5 must start at index 4")
	}
	// closes 10..49, lows 9..48, highs 11..50
	if res.PriceRange.Min >= 9 || res.PriceRange.Max <= 50 {
		t.Fatalf("price range %+v must pad 9..50", res.PriceRange)
	}
}

func TestArchivedCandles(t *testing.T) {
	m := newMarketData(newFakeProvider(), nil)
	if _, err := m.ArchivedCandles(context.Background(), "sh600000", drepo.PeriodDay, 10); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	store := &fakeCandleStore{}
	_ = store.SaveCandles(context.Background(), "sh600000", drepo.PeriodDay, risingCandles(5))
	m = newMarketData(newFakeProvider(), store)
	got, err := m.ArchivedCandles(context.Background(), "sh600000", "bogus", 3)
	if err != nil || len(got) != 3 {
		t.Fatalf("ArchivedCandles = %d, %v", len(got), err)
	}
}
