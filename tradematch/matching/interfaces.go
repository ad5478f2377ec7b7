package matching

import (
	"context"
	"time"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// Ledger is the read-only view of the want/have lists the engine computes
// over. Implementations must return errors on failure, never empty results,
// so callers can tell "no data" from "no matches".
type Ledger interface {
	ListActiveWants(ctx context.Context, userID string) ([]*models.WantItem, error)
	ListActiveHaves(ctx context.Context, userID string) ([]*models.TradeableItem, error)
	ListUsersWantingCard(ctx context.Context, cardID int64) ([]string, error)
	ListUsersHavingCard(ctx context.Context, cardID int64) ([]string, error)
	// ListActiveTraders returns up to limit users that have at least one
	// active want and one active have, most recently active first.
	ListActiveTraders(ctx context.Context, limit int) ([]string, error)
}

// ValueSource supplies current card values. Unpriced cards report ok=false
// and a zero value; only transport failures return an error.
type ValueSource interface {
	GetValue(ctx context.Context, cardID int64) (value int64, ok bool, err error)
}

// RelationshipChecker answers whether two users have blocked each other.
// Implemented by the external relationship collaborator.
type RelationshipChecker interface {
	IsBlocked(ctx context.Context, userA, userB string) (bool, error)
}

// Notifier is informed of newly computed matches. Implementations must be
// fire-and-forget: they may drop notifications but must never block or fail
// the computation that produced the match.
type Notifier interface {
	NotifyDirect(ctx context.Context, match *models.MatchCandidate)
	NotifyTriangular(ctx context.Context, match *models.TriangularMatch)
}

// MatchStore persists computed matches. Upserts are atomic per MatchKey so
// two concurrent computations for the same pair or cycle collapse into one
// record (last writer wins). Get and the List methods only ever return fresh
// records: stale or expired entries behave as not found.
type MatchStore interface {
	UpsertDirect(ctx context.Context, match *models.MatchCandidate) error
	UpsertTriangular(ctx context.Context, match *models.TriangularMatch) error
	GetDirect(ctx context.Context, key string) (*models.MatchCandidate, error)
	GetTriangular(ctx context.Context, key string) (*models.TriangularMatch, error)
	ListDirectByUser(ctx context.Context, userID string) ([]*models.MatchCandidate, error)
	ListTriangularByUser(ctx context.Context, userID string) ([]*models.TriangularMatch, error)
	// InvalidateUser marks every record with userID among its participants
	// stale and returns how many records were flipped.
	InvalidateUser(ctx context.Context, userID string) (int, error)
	// SweepExpired purges records whose retention window has passed and
	// returns the purge count.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyDirect(context.Context, *models.MatchCandidate)      {}
func (NopNotifier) NotifyTriangular(context.Context, *models.TriangularMatch) {}

// AllowAllRelationships is the default RelationshipChecker when no
// relationship collaborator is wired.
type AllowAllRelationships struct{}

func (AllowAllRelationships) IsBlocked(context.Context, string, string) (bool, error) {
	return false, nil
}
