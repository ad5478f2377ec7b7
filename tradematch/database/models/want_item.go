package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WantItem struct {
	bun.BaseModel `bun:"table:want_items,alias:wi"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      string    `bun:"user_id,notnull"`
	CardID      int64     `bun:"card_id,notnull"`
	TargetValue *int64    `bun:"target_value"`
	Active      bool      `bun:"active,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}
