package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockPulse/internal/handler/ws"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	pkgch "StockPulse/pkg/clickhouse"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/queue"
)

const limiterIdle = 10 * time.Minute

// Components are the long-running parts of the application. Everything
// except HTTP is optional and skipped when nil.
type Components struct {
	HTTP      *xhttp.Server
	Hub       *ws.Hub
	Poller    *usecase.QuotePoller
	Processor *usecase.QuoteProcessor
	Consumer  *pkgkafka.Consumer
	Queue     *queue.RedisQueue
	Limiter   *ratelimit.Limiter
	Closers   []func() error
}

// App encapsulates the application lifecycle.
type App struct {
	c               Components
	log             *applogger.Logger
	shutdownTimeout time.Duration
	cancel          context.CancelFunc
}

func New(c Components, log *applogger.Logger, shutdownTimeout time.Duration) *App {
	if log == nil {
		log = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{c: c, log: log, shutdownTimeout: shutdownTimeout}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches every configured component without blocking.
func (a *App) Start(ctx context.Context) error {
	if a.c.HTTP == nil {
		return errors.New("http server is required")
	}
	ctx, a.cancel = context.WithCancel(ctx)

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	if a.c.Poller != nil {
		if err := a.c.Poller.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		a.log.Info("quote poller started", applogger.Strings("symbols", a.c.Poller.Symbols()))
	}

	if a.c.Limiter != nil {
		go a.sweepLimiter(ctx)
	}

	if err := a.c.HTTP.Start(); err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	return nil
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.c.Limiter.Sweep(limiterIdle); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// Shutdown stops intake first (HTTP, poller), then the background
// consumers, then closes sinks and clients. It keeps going after an error
// and returns the first one.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	var first error
	keep := func(what string, err error) {
		if err == nil {
			return
		}
		a.log.Warn(what+" stop error", applogger.Error(err))
		if first == nil {
			first = err
		}
	}

	keep("http", a.c.HTTP.Stop(ctx))
	if a.c.Hub != nil {
		a.c.Hub.Close()
	}
	if a.c.Poller != nil {
		keep("poller", a.c.Poller.Shutdown(ctx))
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.c.Consumer != nil {
		keep("kafka consumer", a.c.Consumer.Stop(ctx))
	}
	if a.c.Queue != nil {
		keep("queue", a.c.Queue.Stop(ctx))
	}
	if a.c.Processor != nil {
		a.c.Processor.Close()
	}
	for _, closer := range a.c.Closers {
		keep("client", closer())
	}

	a.log.Info("shutdown complete")
	return first
}

// ClickHouseCloser adapts a possibly nil client to a closer.
func ClickHouseCloser(c *pkgch.Client) func() error {
	return func() error {
		if c == nil {
			return nil
		}
		return c.Close()
	}
}
