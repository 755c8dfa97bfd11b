package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StockPulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// promoteDue moves retries whose score is due back onto the message list in
// one step, so several instances never promote the same message twice.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// releaseKey deletes a dedupe key only while it still names this message.
var releaseKey = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

const promoteBatch = 100

// RedisQueue is a list-backed job queue with delayed retries, a dead-letter
// list and per-key dedupe of pending work.
type RedisQueue struct {
	log    *logger.Logger
	cfg    QueueConfig
	client *redis.Client
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRedisQueue creates a queue whose keys live under prefix.
func NewRedisQueue(lgr *logger.Logger, cfg QueueConfig, client *redis.Client, prefix string, jobs ...Job) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if prefix == "" {
		prefix = "stockpulse:queue"
	}
	r := &RedisQueue{
		log:    lgr,
		cfg:    cfg.withDefaults(),
		client: client,
		prefix: prefix,
		now:    time.Now,
		jobs:   make(map[string]Job, len(jobs)),
	}
	for _, j := range jobs {
		r.jobs[j.Type()] = j
	}
	return r
}

// Start checks the connection and launches the workers and the retry
// promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	r.cancel = stop
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.wg.Add(1)
	go r.promoter(ctx)

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("prefix", r.prefix),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for them until ctx expires. A message
// interrupted mid-run is pushed back for the next start.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		r.log.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	}
}

// PublishMessage enqueues payload for the job registered under msgType.
// Keyed payloads return ErrDuplicate while an equal key is still pending.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	msg, err := r.newMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if msg.Key != "" {
		ok, err := r.client.SetNX(ctx, r.inflightKey(msg.Type, msg.Key), msg.ID, r.cfg.InflightTTL).Result()
		if err != nil {
			return fmt.Errorf("dedupe %s: %w", msg.Key, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrDuplicate, msgType, msg.Key)
		}
	}
	if err := r.client.LPush(ctx, r.messagesKey(), data).Err(); err != nil {
		r.release(msg)
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) newMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Key:        dedupeKey(payload),
		Payload:    raw,
		EnqueuedAt: r.now(),
	}, nil
}

// Stats reports pending, retrying and dead-lettered message counts.
func (r *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := r.client.Pipeline()
	pending := pipe.LLen(ctx, r.messagesKey())
	retry := pipe.ZCard(ctx, r.retryKey())
	dead := pipe.LLen(ctx, r.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Retrying: retry.Val(), Dead: dead.Val()}, nil
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollInterval, r.messagesKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.log.Error("brpop", logger.Int("worker_id", id), logger.Error(err))
			sleep(ctx, r.cfg.PollInterval)
			continue
		}
		if len(res) == 2 {
			r.handle(ctx, res[1])
		}
	}
}

func (r *RedisQueue) handle(ctx context.Context, raw string) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		r.log.Error("unmarshal message", logger.Error(err))
		r.bury(raw)
		return
	}

	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.deadLetter(msg, ErrUnknownType)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	start := time.Now()
	err := job.Handle(jobCtx, msg.Payload)
	cancel()

	switch {
	case err == nil:
		r.release(msg)
		r.log.Debug("message done",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	case ctx.Err() != nil:
		// shutting down; hand the message to the next start untouched
		if perr := r.client.RPush(context.Background(), r.messagesKey(), raw).Err(); perr != nil {
			r.log.Error("requeue on shutdown", logger.String("id", msg.ID), logger.Error(perr))
		}
	default:
		r.fail(msg, err)
	}
}

func (r *RedisQueue) fail(msg Message, err error) {
	msg.Attempts++
	msg.LastError = err.Error()
	if msg.Attempts > r.cfg.RetryLimit {
		r.log.Error("max retries reached",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Error(err))
		r.deadLetter(msg, err)
		return
	}

	at := r.now().Add(r.cfg.retryDelay(msg.Attempts))
	data, merr := json.Marshal(msg)
	if merr != nil {
		r.log.Error("marshal retry", logger.Error(merr))
		return
	}
	if zerr := r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err(); zerr != nil {
		r.log.Error("schedule retry", logger.String("id", msg.ID), logger.Error(zerr))
		return
	}
	r.log.Warn("message failed, retry scheduled",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", at.Format(time.RFC3339)),
		logger.Error(err))
}

func (r *RedisQueue) deadLetter(msg Message, cause error) {
	msg.LastError = cause.Error()
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal dlq", logger.Error(err))
		return
	}
	r.bury(string(data))
	r.release(msg)
}

func (r *RedisQueue) bury(data string) {
	if err := r.client.LPush(context.Background(), r.deadKey(), data).Err(); err != nil {
		r.log.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) release(msg Message) {
	if msg.Key == "" {
		return
	}
	if err := releaseKey.Run(context.Background(), r.client, []string{r.inflightKey(msg.Type, msg.Key)}, msg.ID).Err(); err != nil {
		r.log.Warn("release dedupe key", logger.String("key", msg.Key), logger.Error(err))
	}
}

func (r *RedisQueue) promoter(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.promote(ctx)
		}
	}
}

func (r *RedisQueue) promote(ctx context.Context) {
	due := strconv.FormatInt(r.now().UnixMilli(), 10)
	n, err := promoteDue.Run(ctx, r.client, []string{r.retryKey(), r.messagesKey()}, due, promoteBatch).Int()
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("promote retries", logger.Error(err))
		}
		return
	}
	if n > 0 {
		r.log.Debug("retries promoted", logger.Int("count", n))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) messagesKey() string { return r.prefix + ":messages" }
func (r *RedisQueue) retryKey() string    { return r.prefix + ":retry" }
func (r *RedisQueue) deadKey() string     { return r.prefix + ":dlq" }

func (r *RedisQueue) inflightKey(msgType, key string) string {
	return r.prefix + ":inflight:" + msgType + ":" + key
}
