package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordDecoded("quotes", 3)
	r.RecordDecoded("quotes", 2)
	r.RecordCache("candles", true)
	r.RecordCache("candles", false)
	r.RecordCache("candles", false)
	r.RecordUpstream("quotes", 0.1, errors.New("x"))

	if got := testutil.ToFloat64(r.decoded.WithLabelValues("quotes")); got != 5 {
		t.Fatalf("decoded = %v, want 5", got)
	}
	if got := testutil.ToFloat64(r.cache.WithLabelValues("candles", "miss")); got != 2 {
		t.Fatalf("misses = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(r.upstream); n != 1 {
		t.Fatalf("upstream series = %d, want 1", n)
	}
}

func TestNewOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
