package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CardValue is the latest market value for a card, written by the external
// price collaborator. The matching engine only ever reads this table and
// tolerates values being minutes to hours stale.
type CardValue struct {
	bun.BaseModel `bun:"table:card_values,alias:cv"`

	CardID    int64     `bun:"card_id,pk"`
	Value     int64     `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
