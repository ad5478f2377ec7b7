package matching

import (
	"context"
	"fmt"
	"log/slog"
)

// EventQueue is the durable record of invalidation requests. Events survive
// process restarts so a store failure never silently loses an invalidation.
type EventQueue interface {
	Enqueue(ctx context.Context, userID string) (eventID int64, err error)
	ListPending(ctx context.Context, limit int) ([]PendingInvalidation, error)
	MarkProcessed(ctx context.Context, eventID int64) error
	MarkFailed(ctx context.Context, eventID int64, cause error) error
}

// PendingInvalidation is one queued event awaiting a successful store apply.
type PendingInvalidation struct {
	EventID int64
	UserID  string
}

// Invalidator applies ledger-change invalidations to the match store. The
// event is recorded before the store is touched and only acknowledged after
// the store apply succeeds, so a crash between the two leaves a pending event
// for the refresher to retry rather than a stale match being served.
type Invalidator struct {
	store MatchStore
	queue EventQueue
}

// NewInvalidator builds an Invalidator. A nil queue is allowed for embedded
// setups that accept losing invalidations on crash.
func NewInvalidator(store MatchStore, queue EventQueue) *Invalidator {
	return &Invalidator{store: store, queue: queue}
}

// Invalidate marks every cached match involving userID stale. A failure here
// must abort the ledger mutation that triggered it: the caller returns this
// error rather than completing a write that would leave stale matches live.
func (inv *Invalidator) Invalidate(ctx context.Context, userID string) error {
	var eventID int64
	if inv.queue != nil {
		id, err := inv.queue.Enqueue(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to enqueue invalidation: %w", err)
		}
		eventID = id
	}

	flipped, err := inv.store.InvalidateUser(ctx, userID)
	if err != nil {
		if inv.queue != nil {
			if markErr := inv.queue.MarkFailed(ctx, eventID, err); markErr != nil {
				slog.Error("Failed to record invalidation failure",
					slog.String("user_id", userID),
					slog.Any("error", markErr))
			}
		}
		return fmt.Errorf("failed to invalidate matches for user %s: %w", userID, err)
	}

	if inv.queue != nil {
		if err := inv.queue.MarkProcessed(ctx, eventID); err != nil {
			// The store apply already succeeded; a stuck ack only means the
			// refresher will re-apply an idempotent invalidation later.
			slog.Warn("Failed to acknowledge invalidation event",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	slog.Debug("Invalidated cached matches",
		slog.String("user_id", userID),
		slog.Int("records", flipped))
	return nil
}

// RetryPending re-applies queued events that never got a successful store
// apply and returns how many were cleared. Individual failures are logged and
// left pending for the next pass.
func (inv *Invalidator) RetryPending(ctx context.Context, limit int) (int, error) {
	if inv.queue == nil {
		return 0, nil
	}

	pending, err := inv.queue.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending invalidations: %w", err)
	}

	cleared := 0
	for _, p := range pending {
		if _, err := inv.store.InvalidateUser(ctx, p.UserID); err != nil {
			slog.Warn("Invalidation retry failed",
				slog.String("user_id", p.UserID),
				slog.Int64("event_id", p.EventID),
				slog.Any("error", err))
			if markErr := inv.queue.MarkFailed(ctx, p.EventID, err); markErr != nil {
				slog.Error("Failed to record invalidation retry failure",
					slog.Int64("event_id", p.EventID),
					slog.Any("error", markErr))
			}
			continue
		}
		if err := inv.queue.MarkProcessed(ctx, p.EventID); err != nil {
			slog.Warn("Failed to acknowledge retried invalidation",
				slog.Int64("event_id", p.EventID),
				slog.Any("error", err))
			continue
		}
		cleared++
	}
	return cleared, nil
}
