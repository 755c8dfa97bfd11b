package repository

import (
	"strings"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/session"
)

func TestQuoteInsertQuery(t *testing.T) {
	s := NewClickHouseQuoteStore(nil, "stockpulse")
	received := time.Date(2025, 7, 25, 2, 0, 5, 0, time.UTC)

	q, args := s.insertQuery([]models.Quote{
		{FullCode: "sh600000", Now: 10.1, Time: "20250725100000"},
		{FullCode: ""},
		{FullCode: "usAAPL", Time: "garbage"},
	}, received)

	if !strings.HasPrefix(q, "INSERT INTO stockpulse.quote_snapshots (") {
		t.Fatalf("unexpected query: %s", q)
	}
	if n := strings.Count(q, "(?, "); n != 2 {
		t.Fatalf("expected 2 value rows, got %d", n)
	}
	if len(args) != 26 {
		t.Fatalf("expected 26 args, got %d", len(args))
	}
	want := time.Date(2025, 7, 25, 10, 0, 0, 0, session.CST)
	if ts := args[11].(time.Time); !ts.Equal(want) {
		t.Fatalf("quote_time = %v, want %v", ts, want)
	}
	if ts := args[24].(time.Time); !ts.Equal(received) {
		t.Fatalf("unparsable feed time should fall back to received, got %v", ts)
	}
}

func TestQuoteInsertQueryEmpty(t *testing.T) {
	s := NewClickHouseQuoteStore(nil, "stockpulse")
	if q, _ := s.insertQuery([]models.Quote{{}}, time.Now()); q != "" {
		t.Fatalf("expected no query, got %s", q)
	}
}

func TestCandleInsertQuery(t *testing.T) {
	s := NewCHCandleStore(nil, "stockpulse")
	q, args, skipped := s.insertQuery("sh600000", domrepo.PeriodDay, []models.Candle{
		{Date: "2025-07-24", Open: 1, Close: 2},
		{Date: "yesterday"},
		{Date: "2025-07-25", Open: 2, Close: 3},
	})
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if !strings.Contains(q, "stockpulse.candles") || strings.Count(q, "(?, ") != 2 {
		t.Fatalf("unexpected query: %s", q)
	}
	if args[1] != "day" {
		t.Fatalf("period arg = %v", args[1])
	}
	want := time.Date(2025, 7, 24, 0, 0, 0, 0, session.CST)
	if d := args[2].(time.Time); !d.Equal(want) {
		t.Fatalf("date = %v, want %v", d, want)
	}
}

func TestSnapshotMessages(t *testing.T) {
	msgs := snapshotMessages([]models.Quote{{FullCode: "sh600000"}, {FullCode: "hk00700"}})
	if len(msgs) != 2 || string(msgs[1].Key) != "hk00700" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if q, ok := msgs[0].Value.(models.Quote); !ok || q.FullCode != "sh600000" {
		t.Fatalf("value should be the quote, got %T", msgs[0].Value)
	}
}

func TestSchema(t *testing.T) {
	stmts := Schema("stockpulse")
	if len(stmts) != 3 || !strings.Contains(stmts[2], "ReplacingMergeTree") {
		t.Fatalf("unexpected schema: %v", stmts)
	}
}
