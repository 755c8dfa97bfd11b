package gtimg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/codec"
	"StockPulse/internal/services/session"
	xhttp "StockPulse/pkg/http"
)

func gbk(t *testing.T, s string) string {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode gbk: %v", err)
	}
	return out
}

func snapshot(fullcode, name, code, now, ts string) string {
	parts := make([]string, 46)
	for i := range parts {
		parts[i] = "0"
	}
	parts[1], parts[2], parts[3], parts[30] = name, code, now, ts
	return `v_` + fullcode + `="` + strings.Join(parts, "~") + `";` + "\n"
}

type fakeUpstream struct {
	t        *testing.T
	requests []string
	agents   []string
	quoteHit atomic.Int32
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r.URL.String())
	f.agents = append(f.agents, r.UserAgent())
	switch {
	case strings.HasPrefix(r.URL.Path, "/q="):
		f.quoteHit.Add(1)
		body := snapshot("sh600000", "浦发银行", "600000", "10.12", "20250725100000") +
			snapshot("usAAPL", "苹果", "AAPL.OQ", "210.5", "20250725100000")
		_, _ = w.Write([]byte(gbk(f.t, body)))
	case r.URL.Path == "/kline":
		_, _ = w.Write([]byte(`{"code":0,"data":{"sh600000":{"qfqday":[["2025-07-24","10","10.5","10.8","9.9","1000"],["2025-07-25","10.5","10.1","10.6","10","2000","300.5"]]}}}`))
	case r.URL.Path == "/minute":
		_, _ = w.Write([]byte(`{"data":{"sh600000":{"data":{"data":["0930 10.01 100 1001.0","0931 10.02 200 2004.0"]}}}}`))
	case r.URL.Path == "/search":
		_, _ = w.Write([]byte(gbk(f.t, `v_hint="sh~600000~浦发银行~pfyh~GP-A^us~AAPL~苹果~aapl~GP";~600000~浦发银行~sh600000~`)))
	case r.URL.Path == "/detail":
		_, _ = w.Write([]byte(`{"code":"sh600000","name":"浦发银行","list":[{"key":"industry","value":"bank"}]}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d := codec.NewDecoder(&session.Classifier{
		Now:      func() time.Time { return time.Date(2025, 7, 25, 10, 1, 0, 0, session.CST) },
		Location: session.CST,
	})
	hc := srv.Client()
	hc.Timeout = 2 * time.Second
	return New(xhttp.NewClient(xhttp.WithHTTPClient(hc), xhttp.WithUserAgent("stockpulse-test")), Endpoints{
		Quote:  srv.URL + "/q=",
		Kline:  srv.URL + "/kline",
		Minute: srv.URL + "/minute",
		Search: srv.URL + "/search",
		Detail: srv.URL + "/detail",
	}, WithDecoder(d))
}

func TestQuotesDecodesGBK(t *testing.T) {
	up := &fakeUpstream{t: t}
	c := newTestClient(t, up)

	quotes, err := c.Quotes(context.Background(), []string{"sh600000", "AAPL.US"})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Name != "浦发银行" || quotes[0].Now != 10.12 || quotes[0].IsMarketClosed {
		t.Fatalf("unexpected first quote: %+v", quotes[0])
	}
	if quotes[1].FullCode != "usAAPL" {
		t.Fatalf("unexpected second quote: %+v", quotes[1])
	}
	if !strings.Contains(up.requests[0], "sh600000,usAAPL") {
		t.Fatalf("codes not normalized in request: %s", up.requests[0])
	}
	if up.agents[0] != "stockpulse-test" {
		t.Fatalf("user agent = %q", up.agents[0])
	}
}

func TestQuotesEmptySkipsRequest(t *testing.T) {
	up := &fakeUpstream{t: t}
	c := newTestClient(t, up)

	quotes, err := c.Quotes(context.Background(), []string{" ", ""})
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(quotes) != 0 || up.quoteHit.Load() != 0 {
		t.Fatalf("expected no request, got %d quotes and %d hits", len(quotes), up.quoteHit.Load())
	}
}

func TestCandles(t *testing.T) {
	up := &fakeUpstream{t: t}
	c := newTestClient(t, up)

	candles, err := c.Candles(context.Background(), "sh600000", "", 5000)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[1].Close != 10.1 || candles[1].Amount != 300.5 || candles[0].Amount != 0 {
		t.Fatalf("unexpected candles: %+v", candles)
	}
	if !strings.Contains(up.requests[0], "param=sh600000%2Cday%2C%2C%2C640%2Cqfq") {
		t.Fatalf("unexpected kline request: %s", up.requests[0])
	}
}

func TestTicksSearchDetail(t *testing.T) {
	up := &fakeUpstream{t: t}
	c := newTestClient(t, up)
	ctx := context.Background()

	ticks, err := c.Ticks(ctx, "sh600000")
	if err != nil || len(ticks) != 2 || ticks[1].Time != "0931" || ticks[1].Volume != 200 {
		t.Fatalf("Ticks = %+v, %v", ticks, err)
	}

	results, err := c.Search(ctx, "  浦发 ")
	if err != nil || len(results) == 0 {
		t.Fatalf("Search = %+v, %v", results, err)
	}
	if results[0].FullCode != "sh600000" || results[0].Name != "浦发银行" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}

	detail, err := c.Detail(ctx, "sh600000")
	if err != nil || detail.Name != "浦发银行" || detail.Info["industry"] != "bank" {
		t.Fatalf("Detail = %+v, %v", detail, err)
	}
}

func TestUpstreamErrorPropagates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	if _, err := c.Candles(context.Background(), "sh600000", drepo.PeriodWeek, 10); err == nil {
		t.Fatal("expected error on 502")
	}
}
