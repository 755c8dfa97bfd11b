package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/session"
)

// chunkSize bounds rows per multi-row INSERT.
const chunkSize = 2000

// ClickHouseQuoteStore implements QuoteStore for ClickHouse.
type ClickHouseQuoteStore struct {
	db      *sql.DB
	table   string
	session *session.Classifier
	now     func() time.Time
}

// NewClickHouseQuoteStore creates the snapshot archive on database.
func NewClickHouseQuoteStore(db *sql.DB, database string) *ClickHouseQuoteStore {
	return &ClickHouseQuoteStore{
		db:      db,
		table:   database + ".quote_snapshots",
		session: session.New(),
		now:     time.Now,
	}
}

var _ domrepo.QuoteStore = (*ClickHouseQuoteStore)(nil)

func (s *ClickHouseQuoteStore) Init(ctx context.Context) error {
	return nil // schema is created by the client on startup
}

// StoreBatch inserts snapshots in chunks. A snapshot whose feed time does not
// parse is stamped with the receive time.
func (s *ClickHouseQuoteStore) StoreBatch(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	received := s.now()
	for start := 0; start < len(quotes); start += chunkSize {
		end := min(start+chunkSize, len(quotes))
		q, args := s.insertQuery(quotes[start:end], received)
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert snapshots: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseQuoteStore) insertQuery(quotes []models.Quote, received time.Time) (string, []interface{}) {
	values := make([]string, 0, len(quotes))
	args := make([]interface{}, 0, len(quotes)*13)
	for _, q := range quotes {
		if q.FullCode == "" {
			continue
		}
		ts, ok := s.session.Parse(q.Time)
		if !ok {
			ts = received
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			q.FullCode, q.Code, q.Name,
			q.Now, q.Close, q.Open, q.High, q.Low,
			q.Volume, q.Amount, q.Percent,
			ts, received,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	return fmt.Sprintf(
		"INSERT INTO %s (fullcode, code, name, price, prev_close, open, high, low, volume, amount, percent, quote_time, received_at) VALUES %s",
		s.table, strings.Join(values, ","),
	), args
}

func (s *ClickHouseQuoteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseQuoteStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}
