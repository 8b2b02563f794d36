package poll

import (
	"context"
	"time"

	"shopflow/internal/infrastructure/monitoring"

	"go.uber.org/zap"
)

// Refresher is the slice of the metrics service the poller drives.
type Refresher interface {
	RefreshMetrics(ctx context.Context)
	RefreshFlow(ctx context.Context)
}

type Config struct {
	Enabled  bool
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Enabled: true, Interval: 30 * time.Second}
}

// Poller refreshes the shared cache on a fixed interval. It runs regardless
// of the realtime connection state so a healthy push path and the poll path
// interleave on the same cache.
type Poller struct {
	cfg       Config
	service   Refresher
	collector *monitoring.Collector
	log       *zap.SugaredLogger
}

func New(cfg Config, service Refresher, collector *monitoring.Collector, log *zap.SugaredLogger) *Poller {
	return &Poller{cfg: cfg, service: service, collector: collector, log: log}
}

// Run blocks until ctx is cancelled. The first refresh happens after one
// full interval; initial load is the caller's bootstrap responsibility.
func (p *Poller) Run(ctx context.Context) {
	if !p.cfg.Enabled {
		p.log.Infow("polling fallback disabled")
		return
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.Infow("polling fallback started", "interval", p.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			p.log.Infow("polling fallback stopped")
			return
		case <-ticker.C:
			p.service.RefreshMetrics(ctx)
			p.service.RefreshFlow(ctx)
			if p.collector != nil {
				p.collector.PollRefresh()
			}
		}
	}
}
