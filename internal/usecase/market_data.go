package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/format"
	"StockPulse/internal/services/indicator"
	"StockPulse/internal/services/symbol"
	"StockPulse/pkg/cache"
)

// TTLs is the cache lifetime per kind of market data.
type TTLs struct {
	Quotes  time.Duration
	Candles time.Duration
	Ticks   time.Duration
	Search  time.Duration
	Detail  time.Duration
}

// MarketData serves provider data through a cache-aside layer.
type MarketData struct {
	provider drepo.QuoteProvider
	cache    cache.Service
	ttl      TTLs
	archive  drepo.CandleStore
	metrics  drepo.Metrics
}

// NewMarketData creates the use case. cache and archive may be nil.
func NewMarketData(provider drepo.QuoteProvider, c cache.Service, ttl TTLs, archive drepo.CandleStore, metrics drepo.Metrics) *MarketData {
	return &MarketData{provider: provider, cache: c, ttl: ttl, archive: archive, metrics: metrics}
}

func (m *MarketData) Quotes(ctx context.Context, codes []string) ([]models.Quote, error) {
	codes = symbol.NormalizeAll(codes)
	if len(codes) == 0 {
		return []models.Quote{}, nil
	}
	key := cache.GenerateKeyWithParams("quotes", strings.Join(codes, ","))
	quotes, hit, err := cache.Fetch(ctx, m.cache, key, m.ttl.Quotes, func(ctx context.Context) ([]models.Quote, error) {
		return m.provider.Quotes(ctx, codes)
	})
	m.recordCache("quotes", hit, err)
	return quotes, err
}

// DisplayQuotes adds the formatted board strings to each quote.
func (m *MarketData) DisplayQuotes(ctx context.Context, codes []string) ([]models.QuoteDisplay, error) {
	quotes, err := m.Quotes(ctx, codes)
	if err != nil {
		return nil, err
	}
	out := make([]models.QuoteDisplay, len(quotes))
	for i, q := range quotes {
		out[i] = Display(q)
	}
	return out, nil
}

// Display renders a quote for a quote board.
func Display(q models.Quote) models.QuoteDisplay {
	return models.QuoteDisplay{
		Quote:       q,
		PercentText: format.Percent(q.Percent),
		PriceText:   format.Price(q.Now, 2),
		VolumeText:  format.Volume(float64(q.Volume)),
	}
}

func (m *MarketData) Candles(ctx context.Context, code string, period drepo.Period, count int) ([]models.Candle, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return []models.Candle{}, nil
	}
	if !drepo.IsValidPeriod(period) {
		period = drepo.DefaultPeriod()
	}
	count = drepo.ClampCount(count)
	key := cache.GenerateKeyWithParams("candles", code, period, count)
	candles, hit, err := cache.Fetch(ctx, m.cache, key, m.ttl.Candles, func(ctx context.Context) ([]models.Candle, error) {
		return m.provider.Candles(ctx, code, period, count)
	})
	m.recordCache("candles", hit, err)
	return candles, err
}

func (m *MarketData) Ticks(ctx context.Context, code string) ([]models.Tick, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return []models.Tick{}, nil
	}
	key := cache.GenerateKeyWithParams("ticks", code)
	ticks, hit, err := cache.Fetch(ctx, m.cache, key, m.ttl.Ticks, func(ctx context.Context) ([]models.Tick, error) {
		return m.provider.Ticks(ctx, code)
	})
	m.recordCache("ticks", hit, err)
	return ticks, err
}

func (m *MarketData) Search(ctx context.Context, keyword string) ([]models.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []models.SearchResult{}, nil
	}
	key := cache.GenerateKeyWithParams("search", cache.HashKey(keyword))
	results, hit, err := cache.Fetch(ctx, m.cache, key, m.ttl.Search, func(ctx context.Context) ([]models.SearchResult, error) {
		return m.provider.Search(ctx, keyword)
	})
	m.recordCache("search", hit, err)
	return results, err
}

// Detail returns ErrNotFound when the provider returns no name for code.
func (m *MarketData) Detail(ctx context.Context, code string) (models.StockDetail, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return models.StockDetail{}, ErrNotFound
	}
	key := cache.GenerateKeyWithParams("detail", code)
	detail, hit, err := cache.Fetch(ctx, m.cache, key, m.ttl.Detail, func(ctx context.Context) (models.StockDetail, error) {
		d, err := m.provider.Detail(ctx, code)
		if err != nil {
			return d, err
		}
		if d.Name == "" {
			return d, fmt.Errorf("detail %s: %w", code, ErrNotFound)
		}
		return d, nil
	})
	m.recordCache("detail", hit, err)
	return detail, err
}

// IndicatorParams selects the candles and the indicator parameters.
type IndicatorParams struct {
	Code   string
	Period drepo.Period
	Count  int
	Config indicator.Config
}

// IndicatorResult is a chart-ready bundle. PriceRange covers the candles'
// lows and highs together with the moving averages.
type IndicatorResult struct {
	Code       string                 `json:"code"`
	Period     drepo.Period           `json:"period"`
	Candles    []models.Candle        `json:"candles"`
	Indicators models.IndicatorBundle `json:"indicators"`
	PriceRange models.ValueRange      `json:"priceRange"`
	MACDRange  models.ValueRange      `json:"macdRange"`
}

// Indicators fetches candles and computes every indicator over them.
func (m *MarketData) Indicators(ctx context.Context, p IndicatorParams) (*IndicatorResult, error) {
	code := symbol.Normalize(strings.TrimSpace(p.Code))
	if !drepo.IsValidPeriod(p.Period) {
		p.Period = drepo.DefaultPeriod()
	}
	candles, err := m.Candles(ctx, code, p.Period, p.Count)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	bundle := indicator.CalculateAll(candles, p.Config)
	if m.metrics != nil {
		m.metrics.RecordLatency("indicators", time.Since(start).Seconds())
	}
	return &IndicatorResult{
		Code:       code,
		Period:     p.Period,
		Candles:    candles,
		Indicators: bundle,
		PriceRange: indicator.ValueRange(indicator.DefaultPadding,
			priceSeries(candles), bundle.MA.MA5, bundle.MA.MA10, bundle.MA.MA30),
		MACDRange: indicator.ValueRange(indicator.DefaultPadding,
			bundle.MACD.DIF, bundle.MACD.DEA, bundle.MACD.Histogram),
	}, nil
}

// priceSeries flattens lows and highs so they count toward the price range.
func priceSeries(candles []models.Candle) models.Series {
	s := make(models.Series, 0, 2*len(candles))
	for _, c := range candles {
		s = append(s, null.FloatFrom(c.Low), null.FloatFrom(c.High))
	}
	return s
}

// ArchivedCandles reads bars previously backfilled into the archive.
func (m *MarketData) ArchivedCandles(ctx context.Context, code string, period drepo.Period, limit int) ([]models.Candle, error) {
	if m.archive == nil {
		return nil, ErrUnavailable
	}
	code = symbol.Normalize(strings.TrimSpace(code))
	if !drepo.IsValidPeriod(period) {
		period = drepo.DefaultPeriod()
	}
	if limit <= 0 {
		limit = drepo.DefaultCandleCount
	}
	if limit > 10000 {
		limit = 10000
	}
	candles, err := m.archive.LatestCandles(ctx, code, period, limit)
	if err != nil {
		return nil, fmt.Errorf("archived candles: %w", err)
	}
	return candles, nil
}

func (m *MarketData) recordCache(kind string, hit bool, err error) {
	if m.metrics == nil {
		return
	}
	if err != nil {
		m.metrics.RecordError("market_" + kind)
		return
	}
	m.metrics.RecordCache(kind, hit)
}
