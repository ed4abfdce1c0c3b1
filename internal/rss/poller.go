package rss

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/YashasveeWankhade/NewsApp/internal/database"
)

// fetchAllTimeout bounds one polling round.
const fetchAllTimeout = 10 * time.Minute

// Poller refreshes all sources on the configured interval.
type Poller struct {
	fetcher *Fetcher
	db      database.Store
	logger  *slog.Logger
	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewPoller creates a background poller around fetcher.
func NewPoller(db database.Store, fetcher *Fetcher, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		db:      db,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			interval, err := p.db.GetPollingInterval(context.Background())
			if err != nil || interval < database.MinPollingIntervalMinutes {
				interval = database.MinPollingIntervalMinutes
			}
			p.runOnce(interval)

			timer := time.NewTimer(time.Duration(interval) * time.Minute)
			select {
			case <-p.stop:
				timer.Stop()
				return
			case <-p.trigger:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()
}

func (p *Poller) runOnce(interval int) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchAllTimeout)
	defer cancel()

	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	results, err := p.fetcher.FetchAll(ctx)
	if err != nil {
		p.logger.Error("poll failed", "error", err)
		return
	}
	total := 0
	for _, c := range results {
		total += c
	}
	p.logger.Info("poll complete", "new_articles", total, "sources", len(results), "interval_minutes", interval)
}

// Trigger asks the loop to poll now instead of waiting out the interval.
// It never blocks; a pending trigger absorbs further calls.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stop)
	p.wg.Wait()
}
