package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// LedgerRepository owns the want/have tables. It is both the matching
// engine's read view and the write surface the listing service mutates.
type LedgerRepository struct {
	*BaseRepository
}

func NewLedgerRepository(db *bun.DB) *LedgerRepository {
	return &LedgerRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *LedgerRepository) ListActiveWants(ctx context.Context, userID string) ([]*models.WantItem, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var wants []*models.WantItem
	err := r.GetDB().NewSelect().
		Model(&wants).
		Where("user_id = ?", userID).
		Where("active = true").
		Order("card_id ASC").
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list_active_wants", "want_item", err)
	}
	return wants, nil
}

func (r *LedgerRepository) ListActiveHaves(ctx context.Context, userID string) ([]*models.TradeableItem, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var haves []*models.TradeableItem
	err := r.GetDB().NewSelect().
		Model(&haves).
		Where("user_id = ?", userID).
		Where("active = true").
		Order("card_id ASC").
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list_active_haves", "tradeable_item", err)
	}
	return haves, nil
}

func (r *LedgerRepository) ListUsersWantingCard(ctx context.Context, cardID int64) ([]string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var userIDs []string
	err := r.GetDB().NewSelect().
		Model((*models.WantItem)(nil)).
		ColumnExpr("DISTINCT user_id").
		Where("card_id = ?", cardID).
		Where("active = true").
		Scan(timeoutCtx, &userIDs)
	if err != nil {
		return nil, r.HandleError("list_users_wanting_card", "want_item", err)
	}
	return userIDs, nil
}

func (r *LedgerRepository) ListUsersHavingCard(ctx context.Context, cardID int64) ([]string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var userIDs []string
	err := r.GetDB().NewSelect().
		Model((*models.TradeableItem)(nil)).
		ColumnExpr("DISTINCT user_id").
		Where("card_id = ?", cardID).
		Where("active = true").
		Where("quantity > 0").
		Scan(timeoutCtx, &userIDs)
	if err != nil {
		return nil, r.HandleError("list_users_having_card", "tradeable_item", err)
	}
	return userIDs, nil
}

// ListActiveTraders returns up to limit users with at least one active want
// and one active have, most recently active first. These users are the cycle
// search pool and the refresh targets.
func (r *LedgerRepository) ListActiveTraders(ctx context.Context, limit int) ([]string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var userIDs []string
	err := r.GetDB().NewSelect().
		TableExpr("tradeable_items AS ti").
		ColumnExpr("ti.user_id").
		Join("JOIN want_items AS wi ON wi.user_id = ti.user_id AND wi.active = true").
		Where("ti.active = true").
		Where("ti.quantity > 0").
		GroupExpr("ti.user_id").
		OrderExpr("GREATEST(MAX(ti.updated_at), MAX(wi.updated_at)) DESC").
		Limit(limit).
		Scan(timeoutCtx, &userIDs)
	if err != nil {
		return nil, r.HandleError("list_active_traders", "tradeable_item", err)
	}
	return userIDs, nil
}

func (r *LedgerRepository) AddTradeableItem(ctx context.Context, item *models.TradeableItem) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Active = true

	_, err := r.GetDB().NewInsert().
		Model(item).
		Exec(timeoutCtx)
	return r.HandleError("add_tradeable_item", "tradeable_item", err)
}

// UpdateTradeableItem applies field changes to an item the user owns. The
// owner filter makes cross-user edits a not-found rather than a silent write.
func (r *LedgerRepository) UpdateTradeableItem(ctx context.Context, item *models.TradeableItem) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	item.UpdatedAt = time.Now()

	result, err := r.GetDB().NewUpdate().
		Model(item).
		Column("quantity", "condition", "foil", "language", "min_trade_value", "trade_for_wants_only", "updated_at").
		Where("id = ?", item.ID).
		Where("user_id = ?", item.UserID).
		Where("active = true").
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("update_tradeable_item", "tradeable_item", item.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return &NotFoundError{Entity: "tradeable_item", ID: item.ID}
	}
	return nil
}

func (r *LedgerRepository) DeactivateTradeableItem(ctx context.Context, userID string, itemID int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	result, err := r.GetDB().NewUpdate().
		Model((*models.TradeableItem)(nil)).
		Set("active = false").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", itemID).
		Where("user_id = ?", userID).
		Where("active = true").
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("deactivate_tradeable_item", "tradeable_item", itemID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return &NotFoundError{Entity: "tradeable_item", ID: itemID}
	}
	return nil
}

func (r *LedgerRepository) AddWantItem(ctx context.Context, want *models.WantItem) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	now := time.Now()
	want.CreatedAt = now
	want.UpdatedAt = now
	want.Active = true

	_, err := r.GetDB().NewInsert().
		Model(want).
		Exec(timeoutCtx)
	return r.HandleError("add_want_item", "want_item", err)
}

// UpdateWantItem edits a want the user owns, currently its target value. The
// owner filter makes cross-user edits a not-found rather than a silent write.
func (r *LedgerRepository) UpdateWantItem(ctx context.Context, want *models.WantItem) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	want.UpdatedAt = time.Now()

	result, err := r.GetDB().NewUpdate().
		Model(want).
		Column("target_value", "updated_at").
		Where("id = ?", want.ID).
		Where("user_id = ?", want.UserID).
		Where("active = true").
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("update_want_item", "want_item", want.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return &NotFoundError{Entity: "want_item", ID: want.ID}
	}
	return nil
}

func (r *LedgerRepository) DeactivateWantItem(ctx context.Context, userID string, wantID int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	result, err := r.GetDB().NewUpdate().
		Model((*models.WantItem)(nil)).
		Set("active = false").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", wantID).
		Where("user_id = ?", userID).
		Where("active = true").
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("deactivate_want_item", "want_item", wantID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return &NotFoundError{Entity: "want_item", ID: wantID}
	}
	return nil
}
