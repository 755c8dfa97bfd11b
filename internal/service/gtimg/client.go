// Package gtimg fetches market data from the Tencent quote endpoints and
// decodes it with the codec package.
package gtimg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/codec"
	"StockPulse/internal/services/symbol"
	xhttp "StockPulse/pkg/http"
	applogger "StockPulse/pkg/logger"
)

// Endpoints holds the provider base URLs.
type Endpoints struct {
	Quote  string
	Kline  string
	Minute string
	Search string
	Detail string
}

// Client implements repository.QuoteProvider.
type Client struct {
	http      *xhttp.Client
	endpoints Endpoints
	decoder   *codec.Decoder
	gbk       bool
	metrics   drepo.Metrics
	log       *applogger.Logger
}

type Option func(*Client)

// WithDecoder replaces the wall-clock decoder.
func WithDecoder(d *codec.Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

// WithCharset selects how text endpoints are decoded: "gbk" or "utf-8".
func WithCharset(charset string) Option {
	return func(c *Client) { c.gbk = !strings.EqualFold(charset, "utf-8") }
}

func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a provider client on top of an HTTP client.
func New(hc *xhttp.Client, endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		http:      hc,
		endpoints: endpoints,
		decoder:   codec.Default(),
		gbk:       true,
		log:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ drepo.QuoteProvider = (*Client)(nil)

// Quotes returns snapshots for codes in the order the provider lists them.
func (c *Client) Quotes(ctx context.Context, codes []string) ([]models.Quote, error) {
	codes = symbol.NormalizeAll(codes)
	if len(codes) == 0 {
		return []models.Quote{}, nil
	}
	body, err := c.get(ctx, "quotes", &xhttp.RequestOptions{URL: c.endpoints.Quote + strings.Join(codes, ",")})
	if err != nil {
		return nil, err
	}
	quotes := c.decoder.DecodeSnapshot(c.text(body))
	c.decoded("quotes", len(quotes))
	return quotes, nil
}

// Candles returns up to count forward-adjusted bars for code.
func (c *Client) Candles(ctx context.Context, code string, period drepo.Period, count int) ([]models.Candle, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return []models.Candle{}, nil
	}
	if !drepo.IsValidPeriod(period) {
		period = drepo.DefaultPeriod()
	}
	count = drepo.ClampCount(count)
	param := strings.Join([]string{code, string(period), "", "", strconv.Itoa(count), "qfq"}, ",")
	body, err := c.get(ctx, "candles", &xhttp.RequestOptions{
		URL:         c.endpoints.Kline,
		QueryParams: xhttp.Query("param", param),
	})
	if err != nil {
		return nil, err
	}
	candles := c.decoder.DecodeCandles(body, code, string(period))
	if candles == nil {
		candles = []models.Candle{}
	}
	c.decoded("candles", len(candles))
	return candles, nil
}

// Ticks returns today's minute points for code.
func (c *Client) Ticks(ctx context.Context, code string) ([]models.Tick, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return []models.Tick{}, nil
	}
	body, err := c.get(ctx, "ticks", &xhttp.RequestOptions{
		URL:         c.endpoints.Minute,
		QueryParams: xhttp.Query("code", code),
	})
	if err != nil {
		return nil, err
	}
	ticks := c.decoder.DecodeTicks(body, code)
	if ticks == nil {
		ticks = []models.Tick{}
	}
	c.decoded("ticks", len(ticks))
	return ticks, nil
}

// Search looks up codes by keyword, CN/HK matches first.
func (c *Client) Search(ctx context.Context, keyword string) ([]models.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []models.SearchResult{}, nil
	}
	body, err := c.get(ctx, "search", &xhttp.RequestOptions{
		URL:         c.endpoints.Search,
		QueryParams: xhttp.Query("t", "all", "q", keyword),
	})
	if err != nil {
		return nil, err
	}
	results := codec.DecodeSearch(c.text(body))
	if results == nil {
		results = []models.SearchResult{}
	}
	c.decoded("search", len(results))
	return results, nil
}

// Detail returns the info block for code. A detail with an empty Name means
// the provider knows nothing about the code.
func (c *Client) Detail(ctx context.Context, code string) (models.StockDetail, error) {
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" {
		return models.StockDetail{Info: map[string]string{}}, nil
	}
	body, err := c.get(ctx, "detail", &xhttp.RequestOptions{
		URL:         c.endpoints.Detail,
		QueryParams: xhttp.Query("appn", "detail", "action", "info", "c", code),
	})
	if err != nil {
		return models.StockDetail{}, err
	}
	detail := codec.DecodeDetail(body, code)
	c.decoded("detail", len(detail.Info))
	return detail, nil
}

func (c *Client) get(ctx context.Context, endpoint string, opts *xhttp.RequestOptions) ([]byte, error) {
	start := time.Now()
	body, err := c.http.Fetch(ctx, opts)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordUpstream(endpoint, elapsed.Seconds(), err)
	}
	if err != nil {
		c.log.Warn("provider request failed",
			applogger.String("endpoint", endpoint),
			applogger.Duration("elapsed", elapsed),
			applogger.Error(err))
		return nil, fmt.Errorf("gtimg %s: %w", endpoint, err)
	}
	c.log.Debug("provider request",
		applogger.String("endpoint", endpoint),
		applogger.Int("bytes", len(body)),
		applogger.Duration("elapsed", elapsed))
	return body, nil
}

// text decodes a GBK body; invalid sequences become U+FFFD rather than
// failing the whole payload.
func (c *Client) text(body []byte) string {
	if !c.gbk {
		return string(body)
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}

func (c *Client) decoded(kind string, n int) {
	if c.metrics != nil {
		c.metrics.RecordDecoded(kind, n)
	}
}
