package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TradeableItem is a card copy a user has put up for trade. Items are never
// hard-deleted: edits and removals flip Active so cached matches that
// referenced the old state can still be invalidated against it.
type TradeableItem struct {
	bun.BaseModel `bun:"table:tradeable_items,alias:ti"`

	ID                int64     `bun:"id,pk,autoincrement"`
	UserID            string    `bun:"user_id,notnull"`
	CardID            int64     `bun:"card_id,notnull"`
	Quantity          int       `bun:"quantity,notnull,default:1"`
	Condition         string    `bun:"condition,notnull,default:'near_mint'"`
	Foil              bool      `bun:"foil,notnull,default:false"`
	Language          string    `bun:"language,notnull,default:'en'"`
	MinTradeValue     *int64    `bun:"min_trade_value"`
	TradeForWantsOnly bool      `bun:"trade_for_wants_only,notnull,default:false"`
	Active            bool      `bun:"active,notnull,default:true"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,notnull"`
}
