package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// CardValueRepository reads the value table the price collaborator maintains.
// SetValue exists for that collaborator and for test seeding; the matching
// engine itself never writes here.
type CardValueRepository struct {
	*BaseRepository
}

func NewCardValueRepository(db *bun.DB) *CardValueRepository {
	return &CardValueRepository{BaseRepository: NewBaseRepository(db)}
}

// GetValue returns the current value for cardID. A card with no row is simply
// unpriced: (0, false, nil), not an error.
func (r *CardValueRepository) GetValue(ctx context.Context, cardID int64) (int64, bool, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	value := new(models.CardValue)
	err := r.GetDB().NewSelect().
		Model(value).
		Where("card_id = ?", cardID).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, r.HandleErrorWithID("get_value", "card_value", cardID, err)
	}
	return value.Value, true, nil
}

func (r *CardValueRepository) SetValue(ctx context.Context, cardID, value int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	record := &models.CardValue{
		CardID:    cardID,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := r.GetDB().NewInsert().
		Model(record).
		On("CONFLICT (card_id) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(timeoutCtx)
	return r.HandleErrorWithID("set_value", "card_value", cardID, err)
}
