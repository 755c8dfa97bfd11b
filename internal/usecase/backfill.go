package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/services/symbol"
	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

// JobCandleBackfill is the queue message type for candle backfills.
const JobCandleBackfill = "candle_backfill"

// BackfillRequest asks for the latest Count bars of Code to be archived.
type BackfillRequest struct {
	Code   string       `json:"code"`
	Period drepo.Period `json:"period"`
	Count  int          `json:"count"`
}

// DedupeKey makes one pending backfill per code and period.
func (r BackfillRequest) DedupeKey() string {
	return r.Code + ":" + string(r.Period)
}

// BackfillQueue is the part of the job queue the use case needs.
type BackfillQueue interface {
	queue.QueueService
	Stats(ctx context.Context) (queue.Stats, error)
}

// BackfillStats is queue depth plus, when a symbol is given, whether a
// worker is archiving it right now.
type BackfillStats struct {
	queue.Stats
	Code    string    `json:"code,omitempty"`
	Period  string    `json:"period,omitempty"`
	Running null.Bool `json:"running"`
}

// Backfill enqueues candle backfill jobs.
type Backfill struct {
	queue        BackfillQueue
	locks        cache.Service
	defaultCount int
}

// NewBackfill creates the use case. locks may be nil, then Stats never
// reports a running state.
func NewBackfill(q BackfillQueue, locks cache.Service, defaultCount int) *Backfill {
	return &Backfill{queue: q, locks: locks, defaultCount: defaultCount}
}

// Enqueue normalizes the request and publishes it. It returns what was
// actually queued.
func (b *Backfill) Enqueue(ctx context.Context, req BackfillRequest) (BackfillRequest, error) {
	if b == nil || b.queue == nil {
		return req, ErrUnavailable
	}
	req.Code = symbol.Normalize(strings.TrimSpace(req.Code))
	if req.Code == "" {
		return req, fmt.Errorf("backfill: code required")
	}
	req.Period = drepo.NormalizePeriod(string(req.Period))
	if req.Count <= 0 {
		req.Count = b.defaultCount
	}
	req.Count = drepo.ClampCount(req.Count)
	if err := b.queue.PublishMessage(ctx, JobCandleBackfill, req); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			return req, fmt.Errorf("%w: %s", ErrConflict, req.DedupeKey())
		}
		return req, fmt.Errorf("enqueue backfill: %w", err)
	}
	return req, nil
}

// Stats reports queue depth. With a code it also checks the per-symbol
// worker lock.
func (b *Backfill) Stats(ctx context.Context, code string, period drepo.Period) (BackfillStats, error) {
	if b == nil || b.queue == nil {
		return BackfillStats{}, ErrUnavailable
	}
	st, err := b.queue.Stats(ctx)
	if err != nil {
		return BackfillStats{}, fmt.Errorf("backfill stats: %w", err)
	}
	out := BackfillStats{Stats: st}
	code = symbol.Normalize(strings.TrimSpace(code))
	if code == "" || b.locks == nil {
		return out, nil
	}
	period = drepo.NormalizePeriod(string(period))
	out.Code, out.Period = code, string(period)
	running, err := b.locks.Exists(ctx, backfillLockKey(code, period))
	if err != nil {
		return out, nil
	}
	out.Running = null.BoolFrom(running)
	return out, nil
}

func backfillLockKey(code string, period drepo.Period) string {
	return "lock:backfill:" + code + ":" + string(period)
}

// ErrBackfillRunning is returned when another worker holds the symbol lock;
// the queue retries the message later.
var ErrBackfillRunning = errors.New("backfill already running")

// CandleBackfillJob fetches candles from the provider and upserts them into
// the archive.
type CandleBackfillJob struct {
	provider drepo.QuoteProvider
	archive  drepo.CandleStore
	locks    cache.Service
	lockTTL  time.Duration
	metrics  drepo.Metrics
	log      *applogger.Logger
}

// NewCandleBackfillJob creates the job. With locks set, two workers never
// archive the same code and period at once; lockTTL bounds a lock left by a
// crashed worker.
func NewCandleBackfillJob(provider drepo.QuoteProvider, archive drepo.CandleStore, locks cache.Service, lockTTL time.Duration, metrics drepo.Metrics, log *applogger.Logger) *CandleBackfillJob {
	if log == nil {
		log = applogger.Nop()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &CandleBackfillJob{provider: provider, archive: archive, locks: locks, lockTTL: lockTTL, metrics: metrics, log: log}
}

func (j *CandleBackfillJob) Type() string { return JobCandleBackfill }

func (j *CandleBackfillJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[BackfillRequest](payload)
	if err != nil {
		j.log.Warn("malformed backfill dropped", applogger.Error(err))
		return nil
	}
	if req.Code == "" {
		// retrying cannot fix a malformed request
		j.log.Warn("backfill without code dropped")
		return nil
	}
	period := drepo.NormalizePeriod(string(req.Period))

	if j.locks != nil {
		key := backfillLockKey(req.Code, period)
		ok, err := j.locks.TryLock(ctx, key, j.lockTTL)
		if err != nil {
			return fmt.Errorf("backfill lock %s: %w", req.Code, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrBackfillRunning, req.Code, period)
		}
		defer func() {
			if err := j.locks.Unlock(context.Background(), key); err != nil {
				j.log.Warn("backfill unlock", applogger.String("code", req.Code), applogger.Error(err))
			}
		}()
	}

	start := time.Now()
	candles, err := j.provider.Candles(ctx, req.Code, period, req.Count)
	if err != nil {
		j.metrics.RecordError("backfill_fetch")
		return fmt.Errorf("backfill fetch %s: %w", req.Code, err)
	}
	if err := j.archive.SaveCandles(ctx, req.Code, period, candles); err != nil {
		j.metrics.RecordError("backfill_store")
		return fmt.Errorf("backfill store %s: %w", req.Code, err)
	}
	j.metrics.RecordLatency("backfill", time.Since(start).Seconds())
	j.log.Info("backfill done",
		applogger.String("code", req.Code),
		applogger.String("period", string(period)),
		applogger.Int("candles", len(candles)),
		applogger.String("last", lastDate(candles)))
	return nil
}

var _ queue.Job = (*CandleBackfillJob)(nil)

// lastDate is the newest bar date in an ascending sequence.
func lastDate(candles []models.Candle) string {
	if len(candles) == 0 {
		return ""
	}
	return candles[len(candles)-1].Date
}
