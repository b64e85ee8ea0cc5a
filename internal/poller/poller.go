// Package poller refreshes the open queue's items on an interval so a review
// session sees scores and comments written by other reviewers.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/akarl/annoq/pkg/models"
)

// Fetcher lists a queue's items. *client.Client satisfies it.
type Fetcher interface {
	ListQueueItems(ctx context.Context, queueID string, limit int) ([]models.QueueItem, error)
}

// Poller refetches one queue and hands each result to Apply. Apply runs on the
// poller's goroutine; the caller serializes access to the session it feeds.
type Poller struct {
	Fetch    Fetcher
	QueueID  string
	Interval time.Duration
	Limit    int
	Apply    func(items []models.QueueItem)
}

// Run polls until ctx is cancelled. Fetch failures are logged and skipped;
// the next tick retries.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Duration(models.DefaultPollIntervalSec * float64(time.Second))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, err := p.Fetch.ListQueueItems(ctx, p.QueueID, p.Limit)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("queue refresh failed", "queue_id", p.QueueID, "err", err)
				continue
			}
			if p.Apply != nil {
				p.Apply(items)
			}
		}
	}
}
