package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// EngineConfig collects the knobs for a matching Engine. Zero values take the
// finder defaults.
type EngineConfig struct {
	MinQuality           int
	MaxDirectResults     int
	MaxDepth             int
	MaxTriangularResults int
	MaxGraphNodes        int
	CacheTTL             time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
	return c
}

// Engine is the front door of the matching system: cached reads with lazy
// recomputation, explicit refresh, and invalidation on ledger change. It owns
// the finders and the store but not the ledger writes; services that mutate
// the ledger call InvalidateForUser themselves.
type Engine struct {
	cfg         EngineConfig
	direct      *DirectFinder
	triangular  *TriangularFinder
	store       MatchStore
	invalidator *Invalidator
	notifier    Notifier
}

func NewEngine(cfg EngineConfig, ledger Ledger, values ValueSource, relationships RelationshipChecker, store MatchStore, queue EventQueue, notifier Notifier) *Engine {
	cfg = cfg.withDefaults()
	if notifier == nil {
		notifier = NopNotifier{}
	}

	candidates := NewCandidateIndex(ledger, relationships)
	return &Engine{
		cfg:         cfg,
		direct:      NewDirectFinder(candidates, ledger, values, cfg.CacheTTL),
		triangular:  NewTriangularFinder(ledger, values, NewGraphBuilder(ledger), cfg.CacheTTL),
		store:       store,
		invalidator: NewInvalidator(store, queue),
		notifier:    notifier,
	}
}

// Invalidator exposes the engine's invalidator for background retry loops.
func (e *Engine) Invalidator() *Invalidator {
	return e.invalidator
}

// GetDirectMatches returns the fresh cached two-party matches for userID,
// recomputing and caching them when none are servable. An empty recompute
// result is a valid answer, not a cache miss to retry.
func (e *Engine) GetDirectMatches(ctx context.Context, userID string) ([]*models.MatchCandidate, error) {
	cached, err := e.store.ListDirectByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached direct matches: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}
	return e.computeDirect(ctx, userID)
}

// GetTriangularMatches returns the fresh cached trade cycles involving
// userID, recomputing when none are servable.
func (e *Engine) GetTriangularMatches(ctx context.Context, userID string) (*TriangularResult, error) {
	cached, err := e.store.ListTriangularByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached triangular matches: %w", err)
	}
	if len(cached) > 0 {
		return &TriangularResult{Matches: cached}, nil
	}
	return e.computeTriangular(ctx, userID)
}

// RefreshMatches recomputes both match kinds for userID regardless of cache
// state. Used by the background refresher and by explicit refresh requests.
func (e *Engine) RefreshMatches(ctx context.Context, userID string) error {
	if _, err := e.computeDirect(ctx, userID); err != nil {
		return err
	}
	if _, err := e.computeTriangular(ctx, userID); err != nil {
		return err
	}
	return nil
}

// InvalidateForUser marks every cached match involving userID stale. Ledger
// writers call this after a successful mutation and must fail their operation
// when it errors.
func (e *Engine) InvalidateForUser(ctx context.Context, userID string) error {
	return e.invalidator.Invalidate(ctx, userID)
}

func (e *Engine) computeDirect(ctx context.Context, userID string) ([]*models.MatchCandidate, error) {
	matches, err := e.direct.FindDirect(ctx, userID, DirectOptions{
		MinQuality: e.cfg.MinQuality,
		MaxResults: e.cfg.MaxDirectResults,
	})
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		if err := e.store.UpsertDirect(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to cache direct match %s: %w", m.MatchKey, err)
		}
		e.notifier.NotifyDirect(ctx, m)
	}

	slog.Debug("Computed direct matches",
		slog.String("user_id", userID),
		slog.Int("count", len(matches)))
	return matches, nil
}

func (e *Engine) computeTriangular(ctx context.Context, userID string) (*TriangularResult, error) {
	result, err := e.triangular.FindTriangular(ctx, userID, TriangularOptions{
		MaxDepth:   e.cfg.MaxDepth,
		MaxResults: e.cfg.MaxTriangularResults,
		MaxNodes:   e.cfg.MaxGraphNodes,
	})
	if err != nil {
		return nil, err
	}

	for _, m := range result.Matches {
		if err := e.store.UpsertTriangular(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to cache triangular match %s: %w", m.MatchKey, err)
		}
		e.notifier.NotifyTriangular(ctx, m)
	}

	slog.Debug("Computed triangular matches",
		slog.String("user_id", userID),
		slog.Int("count", len(result.Matches)),
		slog.Bool("partial", result.Partial))
	return result, nil
}
