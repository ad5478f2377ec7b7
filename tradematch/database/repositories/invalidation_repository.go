package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/gohye/tradematch/tradematch/database/models"
	"github.com/gohye/tradematch/tradematch/matching"
)

// InvalidationRepository is the durable event queue behind staleness
// propagation. Rows without processed_at are pending and get retried by the
// background refresher.
type InvalidationRepository struct {
	*BaseRepository
}

func NewInvalidationRepository(db *bun.DB) *InvalidationRepository {
	return &InvalidationRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *InvalidationRepository) Enqueue(ctx context.Context, userID string) (int64, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	event := &models.InvalidationEvent{
		UserID:     userID,
		EnqueuedAt: time.Now(),
	}
	_, err := r.GetDB().NewInsert().
		Model(event).
		Returning("id").
		Exec(timeoutCtx)
	if err != nil {
		return 0, r.HandleError("enqueue", "invalidation_event", err)
	}
	return event.ID, nil
}

func (r *InvalidationRepository) ListPending(ctx context.Context, limit int) ([]matching.PendingInvalidation, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var events []*models.InvalidationEvent
	err := r.GetDB().NewSelect().
		Model(&events).
		Where("processed_at IS NULL").
		Order("enqueued_at ASC").
		Limit(limit).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list_pending", "invalidation_event", err)
	}

	pending := make([]matching.PendingInvalidation, len(events))
	for i, e := range events {
		pending[i] = matching.PendingInvalidation{EventID: e.ID, UserID: e.UserID}
	}
	return pending, nil
}

func (r *InvalidationRepository) MarkProcessed(ctx context.Context, eventID int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.InvalidationEvent)(nil)).
		Set("processed_at = ?", time.Now()).
		Where("id = ?", eventID).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("mark_processed", "invalidation_event", eventID, err)
}

func (r *InvalidationRepository) MarkFailed(ctx context.Context, eventID int64, cause error) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	message := ""
	if cause != nil {
		message = cause.Error()
	}

	_, err := r.GetDB().NewUpdate().
		Model((*models.InvalidationEvent)(nil)).
		Set("attempts = attempts + 1").
		Set("last_error = ?", message).
		Where("id = ?", eventID).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("mark_failed", "invalidation_event", eventID, err)
}
