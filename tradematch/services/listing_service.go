package services

import (
	"context"
	"fmt"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// LedgerWriter is the mutation surface the listing service needs from the
// ledger repository.
type LedgerWriter interface {
	AddTradeableItem(ctx context.Context, item *models.TradeableItem) error
	UpdateTradeableItem(ctx context.Context, item *models.TradeableItem) error
	DeactivateTradeableItem(ctx context.Context, userID string, itemID int64) error
	AddWantItem(ctx context.Context, want *models.WantItem) error
	UpdateWantItem(ctx context.Context, want *models.WantItem) error
	DeactivateWantItem(ctx context.Context, userID string, wantID int64) error
}

// MatchInvalidator propagates a ledger change into the match cache.
type MatchInvalidator interface {
	InvalidateForUser(ctx context.Context, userID string) error
}

// ListingService is the write path for want/have lists. Every successful
// mutation invalidates the owner's cached matches before returning; an
// invalidation failure fails the whole operation so a caller never observes
// a ledger change whose stale matches are still being served.
type ListingService struct {
	ledger      LedgerWriter
	invalidator MatchInvalidator
}

func NewListingService(ledger LedgerWriter, invalidator MatchInvalidator) *ListingService {
	return &ListingService{ledger: ledger, invalidator: invalidator}
}

func (s *ListingService) AddItem(ctx context.Context, item *models.TradeableItem) error {
	if item.UserID == "" {
		return fmt.Errorf("item owner is required")
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("item quantity must be positive")
	}

	if err := s.ledger.AddTradeableItem(ctx, item); err != nil {
		return fmt.Errorf("failed to add tradeable item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, item.UserID)
}

func (s *ListingService) UpdateItem(ctx context.Context, item *models.TradeableItem) error {
	if item.UserID == "" {
		return fmt.Errorf("item owner is required")
	}
	if item.Quantity < 0 {
		return fmt.Errorf("item quantity must not be negative")
	}

	if err := s.ledger.UpdateTradeableItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update tradeable item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, item.UserID)
}

func (s *ListingService) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	if err := s.ledger.DeactivateTradeableItem(ctx, userID, itemID); err != nil {
		return fmt.Errorf("failed to remove tradeable item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, userID)
}

func (s *ListingService) AddWant(ctx context.Context, want *models.WantItem) error {
	if want.UserID == "" {
		return fmt.Errorf("want owner is required")
	}

	if err := s.ledger.AddWantItem(ctx, want); err != nil {
		return fmt.Errorf("failed to add want item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, want.UserID)
}

func (s *ListingService) UpdateWant(ctx context.Context, want *models.WantItem) error {
	if want.UserID == "" {
		return fmt.Errorf("want owner is required")
	}

	if err := s.ledger.UpdateWantItem(ctx, want); err != nil {
		return fmt.Errorf("failed to update want item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, want.UserID)
}

func (s *ListingService) RemoveWant(ctx context.Context, userID string, wantID int64) error {
	if err := s.ledger.DeactivateWantItem(ctx, userID, wantID); err != nil {
		return fmt.Errorf("failed to remove want item: %w", err)
	}
	return s.invalidator.InvalidateForUser(ctx, userID)
}
