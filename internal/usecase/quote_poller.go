package usecase

import (
	"context"
	"sync"
	"time"

	drepo "StockPulse/internal/domain/repository"
	mid "StockPulse/internal/middleware"
	"StockPulse/internal/services/session"
	"StockPulse/internal/services/symbol"
	applogger "StockPulse/pkg/logger"
)

// PollerConfig controls what is polled and how often.
type PollerConfig struct {
	Symbols       []string
	Interval      time.Duration
	BatchSize     int
	IgnoreSession bool
}

// QuotePoller fetches snapshots for a fixed symbol list on an interval and
// feeds them through the pipeline.
type QuotePoller struct {
	provider drepo.QuoteProvider
	pipe     *mid.QuotePipeline
	session  *session.Classifier
	metrics  drepo.Metrics
	log      *applogger.Logger
	cfg      PollerConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQuotePoller creates a QuotePoller.
func NewQuotePoller(provider drepo.QuoteProvider, pipe *mid.QuotePipeline, sess *session.Classifier, metrics drepo.Metrics, log *applogger.Logger, cfg PollerConfig) *QuotePoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 60
	}
	cfg.Symbols = symbol.NormalizeAll(cfg.Symbols)
	if sess == nil {
		sess = session.New()
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &QuotePoller{provider: provider, pipe: pipe, session: sess, metrics: metrics, log: log, cfg: cfg}
}

// Symbols returns the normalized symbol list.
func (p *QuotePoller) Symbols() []string { return p.cfg.Symbols }

func (p *QuotePoller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.pipe.Start(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

func (p *QuotePoller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every batch once. Outside trading hours it does nothing
// unless IgnoreSession is set.
func (p *QuotePoller) PollOnce(ctx context.Context) {
	if len(p.cfg.Symbols) == 0 {
		return
	}
	if !p.cfg.IgnoreSession && !p.session.OpenNow() {
		return
	}
	for start := 0; start < len(p.cfg.Symbols); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(p.cfg.Symbols))
		batch := p.cfg.Symbols[start:end]

		t0 := time.Now()
		quotes, err := p.provider.Quotes(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.metrics.RecordError("poll")
			p.log.Warn("poll failed", applogger.Int("batch", len(batch)), applogger.Error(err))
			continue
		}
		p.metrics.RecordLatency("poll", time.Since(t0).Seconds())
		for _, q := range quotes {
			p.metrics.RecordLastPrice(q.FullCode, q.Now)
		}
		if err := p.pipe.Process(ctx, quotes); err != nil {
			p.log.Debug("pipeline buffered batch", applogger.Error(err))
		}
	}
}

// Shutdown stops polling and the pipeline.
func (p *QuotePoller) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.pipe.Stop()
	return nil
}
