package models

import (
	"time"

	"github.com/uptrace/bun"
)

// InvalidationEvent is the durable backing record for a staleness propagation.
// Rows stay pending until the match store confirmed the stale flags, so a
// crashed or failed apply is retried by the background refresher instead of
// leaving a fresh-looking match computed from outdated lists.
type InvalidationEvent struct {
	bun.BaseModel `bun:"table:invalidation_events,alias:ie"`

	ID          int64      `bun:"id,pk,autoincrement"`
	UserID      string     `bun:"user_id,notnull"`
	EnqueuedAt  time.Time  `bun:"enqueued_at,notnull,default:current_timestamp"`
	Attempts    int        `bun:"attempts,notnull,default:0"`
	LastError   string     `bun:"last_error,type:text,default:''"`
	ProcessedAt *time.Time `bun:"processed_at"`
}
