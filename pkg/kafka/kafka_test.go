package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
)

func TestEncodeMessages(t *testing.T) {
	at := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	msgs, total, err := encodeMessages("quotes", []Message{
		{Key: []byte("sh600519"), Value: map[string]string{"code": "600519"}},
		{Key: []byte("raw"), Value: []byte("abc")},
		{Value: "xy"},
	}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if string(msgs[0].Value) != `{"code":"600519"}` {
		t.Errorf("unexpected json value %s", msgs[0].Value)
	}
	if msgs[1].Topic != "quotes" || !msgs[2].Time.Equal(at) {
		t.Errorf("topic/time not set: %+v", msgs[1])
	}
	if want := int64(len(`{"code":"600519"}`) + 3 + 2); total != want {
		t.Errorf("total bytes = %d, want %d", total, want)
	}
}

func TestEncodeValueRejectsUnmarshalable(t *testing.T) {
	if _, err := encodeValue(make(chan int)); err == nil {
		t.Fatal("expected error for channel value")
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]kafka.Compression{
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"":       kafka.Snappy,
		"bogus":  kafka.Snappy,
	}
	for in, want := range cases {
		if got := parseCompression(in); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
	if d := backoffWithJitter(min, max, 1); d > min {
		t.Errorf("first attempt should not exceed min, got %v", d)
	}
}

func TestRegisterReusesExistingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newProducerMetrics(reg)
	b := newProducerMetrics(reg)
	if a.msgs != b.msgs {
		t.Fatal("expected second registration to reuse the collector")
	}
	b.observe("quotes", "snappy", 10, 2, time.Millisecond, nil)
	if got := testutil.ToFloat64(a.msgs.WithLabelValues("quotes", "snappy", "ok")); got != 2 {
		t.Errorf("messages = %v, want 2", got)
	}
	b.observe("quotes", "snappy", 0, 1, time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(a.errs.WithLabelValues("quotes")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(WithConsumerRegisterer(prometheus.NewRegistry())); err == nil {
		t.Fatal("expected error without brokers")
	}
}

type stubHandler struct {
	calls int
	fail  int
}

func (h *stubHandler) Topic() string { return "quotes" }

func (h *stubHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.fail {
		return errors.New("transient")
	}
	return nil
}

func TestHandleWithRetry(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	msg := &message{topic: "quotes", km: kafka.Message{Value: []byte("{}")}}

	h := &stubHandler{fail: 2}
	attempts, err := c.handleWithRetry(h, msg)
	if err != nil || attempts != 3 {
		t.Fatalf("expected success on third attempt, got attempts=%d err=%v", attempts, err)
	}

	h = &stubHandler{fail: 10}
	attempts, err = c.handleWithRetry(h, msg)
	if err == nil || attempts != 3 {
		t.Fatalf("expected failure after 3 attempts, got attempts=%d err=%v", attempts, err)
	}
}

func TestHookFuncsBeforeAbortsHandler(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.WithConsumerHook(HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, data, errors.New("rejected")
		},
	})
	h := &stubHandler{}
	if _, err := c.handleWithRetry(h, &message{topic: "quotes"}); err == nil {
		t.Fatal("expected hook error")
	}
	if h.calls != 0 {
		t.Errorf("handler should not run, ran %d times", h.calls)
	}
}
