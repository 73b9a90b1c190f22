package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/repository"
)

// Purger removes messages older than the fixed TTL. It is a hard resource
// bound, not a privacy mechanism: read and clear state are irrelevant.
type Purger struct {
	messages repository.MessageRepo
	ttl      time.Duration
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewPurger(messages repository.MessageRepo, ttl, interval time.Duration, log *zap.SugaredLogger) *Purger {
	return &Purger{messages: messages, ttl: ttl, interval: interval, log: log}
}

// Run sweeps on a ticker until ctx is done. Sweep failures are logged and
// the next tick tries again.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

func (p *Purger) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.ttl)
	n, err := p.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Warnw("retention sweep failed", "err", err)
		return
	}
	if n > 0 {
		p.log.Infow("retention sweep", "purged", n)
	}
}
