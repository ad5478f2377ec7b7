package matching

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	refreshWorkers      = 4
	retryBatchSize      = 100
	refreshUserTimeout  = 2 * time.Minute
	defaultRefreshUsers = 50
)

// Refresher periodically sweeps expired records, retries pending
// invalidations and recomputes matches for the most recently active traders
// so their caches stay warm between ledger changes.
type Refresher struct {
	engine       *Engine
	store        MatchStore
	ledger       Ledger
	interval     time.Duration
	refreshUsers int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRefresher(engine *Engine, store MatchStore, ledger Ledger, interval time.Duration, refreshUsers int) *Refresher {
	if refreshUsers <= 0 {
		refreshUsers = defaultRefreshUsers
	}
	return &Refresher{
		engine:       engine,
		store:        store,
		ledger:       ledger,
		interval:     interval,
		refreshUsers: refreshUsers,
	}
}

func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the refresh loop. Starting an already running refresher is a
// no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	slog.Info("Match refresher started", slog.Duration("interval", r.interval))
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	slog.Info("Match refresher stopped")
}

func (r *Refresher) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep is one maintenance pass. Per-user refresh failures are logged and
// skipped rather than aborting the pass; one user's bad data must not starve
// everyone else's cache.
func (r *Refresher) sweep(ctx context.Context) {
	start := time.Now()

	purged, err := r.store.SweepExpired(ctx, start)
	if err != nil {
		slog.Error("Expired match sweep failed", slog.Any("error", err))
	}

	retried, err := r.engine.Invalidator().RetryPending(ctx, retryBatchSize)
	if err != nil {
		slog.Error("Invalidation retry pass failed", slog.Any("error", err))
	}

	users, err := r.ledger.ListActiveTraders(ctx, r.refreshUsers)
	if err != nil {
		slog.Error("Failed to list traders for refresh", slog.Any("error", err))
		return
	}

	sem := semaphore.NewWeighted(refreshWorkers)
	g, gctx := errgroup.WithContext(ctx)
	var refreshed, failed int
	var mu sync.Mutex

	for _, userID := range users {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			userCtx, cancel := context.WithTimeout(gctx, refreshUserTimeout)
			defer cancel()

			if err := r.engine.RefreshMatches(userCtx, userID); err != nil {
				slog.Warn("Match refresh failed",
					slog.String("user_id", userID),
					slog.Any("error", err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Match refresh pass complete",
		slog.Int("purged", purged),
		slog.Int("retried_invalidations", retried),
		slog.Int("refreshed", refreshed),
		slog.Int("failed", failed),
		slog.Duration("took", time.Since(start)))
}
