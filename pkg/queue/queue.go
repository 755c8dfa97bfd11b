package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning  = errors.New("queue: not running")
	ErrDuplicate   = errors.New("queue: job already pending")
	ErrUnknownType = errors.New("queue: no job registered for type")
)

type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Keyed payloads are deduplicated: while a message with the same type and
// key is queued, waiting for a retry or running, publishing another one
// fails with ErrDuplicate.
type Keyed interface {
	DedupeKey() string
}

// Job handles every message of one type. A returned error schedules a
// retry until the retry limit is reached, then the message is dead-lettered.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers      int           // number of workers
	RetryLimit   int           // number of maximum retries
	RetryDelay   time.Duration // first retry delay, doubled on each attempt
	PollInterval time.Duration // how often due retries are moved back
	JobTimeout   time.Duration // upper bound for one Handle call
	InflightTTL  time.Duration // how long a dedupe key survives a crashed worker
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	if c.InflightTTL <= 0 {
		c.InflightTTL = 30 * time.Minute
	}
	return c
}

// retryDelay is RetryDelay doubled per previous attempt, capped at 32x.
func (c QueueConfig) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return c.RetryDelay << (attempt - 1)
}

// Stats is a snapshot of queue depth.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}

// Message is the envelope stored in redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals a job payload.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("decode payload: empty")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

func dedupeKey(payload interface{}) string {
	if k, ok := payload.(Keyed); ok {
		return k.DedupeKey()
	}
	return ""
}
