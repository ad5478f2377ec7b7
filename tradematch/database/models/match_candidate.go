package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MatchItem is one concrete tradeable item inside a computed match payload,
// carrying the value it was priced at when the match was scored.
type MatchItem struct {
	ItemID int64 `json:"item_id"`
	CardID int64 `json:"card_id"`
	Value  int64 `json:"value"`
}

// MatchCandidate is a computed two-party match. It is a derived artifact, not
// user-owned data: every recomputation builds a fresh record and upserts it by
// MatchKey, so at most one non-stale record exists per user pair. UserA is
// always the lexicographically smaller user id.
type MatchCandidate struct {
	bun.BaseModel `bun:"table:match_candidates,alias:mc"`

	ID             int64       `bun:"id,pk,autoincrement"`
	MatchKey       string      `bun:"match_key,notnull,unique"`
	UserA          string      `bun:"user_a,notnull"`
	UserB          string      `bun:"user_b,notnull"`
	ItemsAReceives []MatchItem `bun:"items_a_receives,type:jsonb"`
	ItemsBReceives []MatchItem `bun:"items_b_receives,type:jsonb"`
	ValueA         int64       `bun:"value_a,notnull"`
	ValueB         int64       `bun:"value_b,notnull"`
	QualityScore   int         `bun:"quality_score,notnull"`
	ComputedAt     time.Time   `bun:"computed_at,notnull"`
	ExpiresAt      time.Time   `bun:"expires_at,notnull"`
	Stale          bool        `bun:"stale,notnull,default:false"`
}

func (m *MatchCandidate) Participants() []string {
	return []string{m.UserA, m.UserB}
}

// Fresh reports whether the record may still be served: not stale and not yet
// past its expiry. Staleness takes precedence over expiry.
func (m *MatchCandidate) Fresh(now time.Time) bool {
	return !m.Stale && now.Before(m.ExpiresAt)
}
