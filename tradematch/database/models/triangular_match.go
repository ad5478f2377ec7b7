package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TradeEdge is one hop of a cyclic trade: Giver sends the chosen card to
// Receiver. Edge order inside a TriangularMatch is significant, it is the only
// record of who sends what to whom.
type TradeEdge struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
	CardID   int64  `json:"card_id"`
	Value    int64  `json:"value"`
}

// TriangularMatch is a computed N-party (N >= 3) trade cycle. Participants and
// Edges are stored in the canonical rotation (cycle order starting at the
// lexicographically smallest participant) so the same cycle found from
// different seed users upserts to the same MatchKey.
type TriangularMatch struct {
	bun.BaseModel `bun:"table:triangular_matches,alias:tm"`

	ID           int64       `bun:"id,pk,autoincrement"`
	MatchKey     string      `bun:"match_key,notnull,unique"`
	Participants []string    `bun:"participants,array"`
	Edges        []TradeEdge `bun:"edges,type:jsonb"`
	TotalValue   int64       `bun:"total_value,notnull"`
	BalanceScore float64     `bun:"balance_score,notnull"`
	ComputedAt   time.Time   `bun:"computed_at,notnull"`
	ExpiresAt    time.Time   `bun:"expires_at,notnull"`
	Stale        bool        `bun:"stale,notnull,default:false"`
}

func (m *TriangularMatch) Fresh(now time.Time) bool {
	return !m.Stale && now.Before(m.ExpiresAt)
}
