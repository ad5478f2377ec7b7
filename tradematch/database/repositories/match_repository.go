package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/gohye/tradematch/tradematch/database/models"
	"github.com/gohye/tradematch/tradematch/matching"
)

// MatchRepository is the durable MatchStore on postgres. Upserts key on
// match_key so concurrent recomputations of the same pair or cycle collapse
// to one row, last writer wins. All reads filter to fresh rows; stale and
// expired rows surface as matching.ErrMatchNotFound.
type MatchRepository struct {
	*BaseRepository
	retention time.Duration
}

func NewMatchRepository(db *bun.DB, retention time.Duration) *MatchRepository {
	return &MatchRepository{
		BaseRepository: NewBaseRepository(db),
		retention:      retention,
	}
}

func (r *MatchRepository) UpsertDirect(ctx context.Context, match *models.MatchCandidate) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewInsert().
		Model(match).
		On("CONFLICT (match_key) DO UPDATE").
		Set("user_a = EXCLUDED.user_a").
		Set("user_b = EXCLUDED.user_b").
		Set("items_a_receives = EXCLUDED.items_a_receives").
		Set("items_b_receives = EXCLUDED.items_b_receives").
		Set("value_a = EXCLUDED.value_a").
		Set("value_b = EXCLUDED.value_b").
		Set("quality_score = EXCLUDED.quality_score").
		Set("computed_at = EXCLUDED.computed_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("stale = EXCLUDED.stale").
		Exec(timeoutCtx)
	return r.HandleError("upsert_direct", "match_candidate", err)
}

func (r *MatchRepository) UpsertTriangular(ctx context.Context, match *models.TriangularMatch) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewInsert().
		Model(match).
		On("CONFLICT (match_key) DO UPDATE").
		Set("participants = EXCLUDED.participants").
		Set("edges = EXCLUDED.edges").
		Set("total_value = EXCLUDED.total_value").
		Set("balance_score = EXCLUDED.balance_score").
		Set("computed_at = EXCLUDED.computed_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("stale = EXCLUDED.stale").
		Exec(timeoutCtx)
	return r.HandleError("upsert_triangular", "triangular_match", err)
}

func (r *MatchRepository) GetDirect(ctx context.Context, key string) (*models.MatchCandidate, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	match := new(models.MatchCandidate)
	err := r.GetDB().NewSelect().
		Model(match).
		Where("match_key = ?", key).
		Where("stale = false").
		Where("expires_at > ?", time.Now()).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, matching.ErrMatchNotFound
	}
	if err != nil {
		return nil, r.markCorrupt(ctx, "match_candidates", key, err)
	}
	return match, nil
}

func (r *MatchRepository) GetTriangular(ctx context.Context, key string) (*models.TriangularMatch, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	match := new(models.TriangularMatch)
	err := r.GetDB().NewSelect().
		Model(match).
		Where("match_key = ?", key).
		Where("stale = false").
		Where("expires_at > ?", time.Now()).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, matching.ErrMatchNotFound
	}
	if err != nil {
		return nil, r.markCorrupt(ctx, "triangular_matches", key, err)
	}
	return match, nil
}

// markCorrupt handles a row that exists but no longer scans, typically a
// payload written by an older build. The row is flipped stale so it stops
// surfacing, and the caller sees a plain miss.
func (r *MatchRepository) markCorrupt(ctx context.Context, table, key string, cause error) error {
	slog.Warn("Marking undecodable match record stale",
		slog.String("table", table),
		slog.String("key", key),
		slog.Any("error", cause))

	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	if _, err := r.GetDB().NewUpdate().
		Table(table).
		Set("stale = true").
		Where("match_key = ?", key).
		Exec(timeoutCtx); err != nil {
		return r.HandleError("mark_corrupt", table, err)
	}
	return matching.ErrMatchNotFound
}

func (r *MatchRepository) ListDirectByUser(ctx context.Context, userID string) ([]*models.MatchCandidate, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var matches []*models.MatchCandidate
	err := r.GetDB().NewSelect().
		Model(&matches).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Where("stale = false").
		Where("expires_at > ?", time.Now()).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list_direct_by_user", "match_candidate", err)
	}
	matching.SortDirectMatches(userID, matches)
	return matches, nil
}

func (r *MatchRepository) ListTriangularByUser(ctx context.Context, userID string) ([]*models.TriangularMatch, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var matches []*models.TriangularMatch
	err := r.GetDB().NewSelect().
		Model(&matches).
		Where("? = ANY(participants)", userID).
		Where("stale = false").
		Where("expires_at > ?", time.Now()).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("list_triangular_by_user", "triangular_match", err)
	}
	matching.SortTriangularMatches(matches)
	return matches, nil
}

func (r *MatchRepository) InvalidateUser(ctx context.Context, userID string) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	total := 0

	direct, err := r.GetDB().NewUpdate().
		Model((*models.MatchCandidate)(nil)).
		Set("stale = true").
		Where("user_a = ? OR user_b = ?", userID, userID).
		Where("stale = false").
		Exec(timeoutCtx)
	if err != nil {
		return 0, r.HandleError("invalidate_user", "match_candidate", err)
	}
	if rows, err := direct.RowsAffected(); err == nil {
		total += int(rows)
	}

	triangular, err := r.GetDB().NewUpdate().
		Model((*models.TriangularMatch)(nil)).
		Set("stale = true").
		Where("? = ANY(participants)", userID).
		Where("stale = false").
		Exec(timeoutCtx)
	if err != nil {
		return total, r.HandleError("invalidate_user", "triangular_match", err)
	}
	if rows, err := triangular.RowsAffected(); err == nil {
		total += int(rows)
	}

	return total, nil
}

func (r *MatchRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	cutoff := now.Add(-r.retention)
	total := 0

	direct, err := r.GetDB().NewDelete().
		Model((*models.MatchCandidate)(nil)).
		Where("expires_at <= ?", cutoff).
		Exec(timeoutCtx)
	if err != nil {
		return 0, r.HandleError("sweep_expired", "match_candidate", err)
	}
	if rows, err := direct.RowsAffected(); err == nil {
		total += int(rows)
	}

	triangular, err := r.GetDB().NewDelete().
		Model((*models.TriangularMatch)(nil)).
		Where("expires_at <= ?", cutoff).
		Exec(timeoutCtx)
	if err != nil {
		return total, r.HandleError("sweep_expired", "triangular_match", err)
	}
	if rows, err := triangular.RowsAffected(); err == nil {
		total += int(rows)
	}

	return total, nil
}
