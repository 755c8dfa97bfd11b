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
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// CHCandleStore implements CandleStore backed by ClickHouse. Rewriting a bar
// replaces it once ReplacingMergeTree merges, and reads use FINAL.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHCandleStore(db *sql.DB, database string) *CHCandleStore {
	return &CHCandleStore{db: db, table: database + ".candles", l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func (s *CHCandleStore) Init(ctx context.Context) error { return nil }

// SaveCandles upserts bars. Bars with an unparsable date are skipped.
func (s *CHCandleStore) SaveCandles(ctx context.Context, fullcode string, period domrepo.Period, candles []models.Candle) error {
	q, args, skipped := s.insertQuery(fullcode, period, candles)
	if skipped > 0 {
		s.l.Warn("clickhouse save_candles skipped rows",
			applogger.String("symbol", fullcode),
			applogger.Int("skipped", skipped))
	}
	if q == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_candles error",
			applogger.String("symbol", fullcode),
			applogger.String("period", string(period)),
			applogger.Error(err))
		return fmt.Errorf("save candles: %w", err)
	}
	return nil
}

func (s *CHCandleStore) insertQuery(fullcode string, period domrepo.Period, candles []models.Candle) (string, []interface{}, int) {
	updated := s.now()
	values := make([]string, 0, len(candles))
	args := make([]interface{}, 0, len(candles)*10)
	skipped := 0
	for _, c := range candles {
		date, ok := util.ParseTradeDate(c.Date, session.CST)
		if !ok {
			skipped++
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, fullcode, string(period), date, c.Open, c.Close, c.High, c.Low, c.Volume, c.Amount, updated)
	}
	if len(values) == 0 {
		return "", nil, skipped
	}
	q := fmt.Sprintf("INSERT INTO %s (fullcode, period, date, open, close, high, low, volume, amount, updated_at) VALUES %s",
		s.table, strings.Join(values, ","))
	return q, args, skipped
}

// LatestCandles returns the newest limit bars in ascending date order.
func (s *CHCandleStore) LatestCandles(ctx context.Context, fullcode string, period domrepo.Period, limit int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, open, close, high, low, volume, amount
        FROM %s FINAL
        WHERE fullcode = ? AND period = ?
        ORDER BY date DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, fullcode, string(period), limit)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			applogger.String("symbol", fullcode),
			applogger.String("period", string(period)),
			applogger.Int("limit", limit),
			applogger.Error(err))
		return nil, fmt.Errorf("latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, limit)
	for rows.Next() {
		var (
			c    models.Candle
			date time.Time
		)
		if err := rows.Scan(&date, &c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Amount); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Date = util.FormatTradeDate(date.In(session.CST))
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("symbol", fullcode),
		applogger.String("period", string(period)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}
