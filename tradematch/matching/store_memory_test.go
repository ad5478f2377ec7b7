package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gohye/tradematch/tradematch/database/models"
)

func directRecord(userA, userB string, expiresIn time.Duration) *models.MatchCandidate {
	now := time.Now()
	return &models.MatchCandidate{
		MatchKey:     DirectKey(userA, userB),
		UserA:        userA,
		UserB:        userB,
		ValueA:       40,
		ValueB:       38,
		QualityScore: 48,
		ComputedAt:   now,
		ExpiresAt:    now.Add(expiresIn),
	}
}

func triangularRecord(participants []string, expiresIn time.Duration) *models.TriangularMatch {
	now := time.Now()
	return &models.TriangularMatch{
		MatchKey:     CycleKey(participants),
		Participants: participants,
		TotalValue:   60,
		BalanceScore: 1.0,
		ComputedAt:   now,
		ExpiresAt:    now.Add(expiresIn),
	}
}

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	first := directRecord("alice", "bob", time.Hour)
	require.NoError(t, store.UpsertDirect(ctx, first))

	second := directRecord("alice", "bob", time.Hour)
	second.QualityScore = 60
	require.NoError(t, store.UpsertDirect(ctx, second))

	got, err := store.GetDirect(ctx, "direct:alice:bob")
	require.NoError(t, err)
	require.Equal(t, 60, got.QualityScore, "last writer wins")

	matches, err := store.ListDirectByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 1, "one record per pair, never duplicates")
}

func TestMemoryStoreGetMiss(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	_, err := store.GetDirect(context.Background(), "direct:alice:bob")
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMemoryStoreStaleNeverServed(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.UpsertDirect(ctx, directRecord("alice", "bob", time.Hour)))
	require.NoError(t, store.UpsertTriangular(ctx, triangularRecord([]string{"alice", "bob", "carol"}, time.Hour)))

	count, err := store.InvalidateUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = store.GetDirect(ctx, "direct:alice:bob")
	require.ErrorIs(t, err, ErrMatchNotFound)
	_, err = store.GetTriangular(ctx, "tri:alice:bob:carol")
	require.ErrorIs(t, err, ErrMatchNotFound)

	direct, err := store.ListDirectByUser(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, direct, "a stale match hides from every participant")

	// repeat invalidation flips nothing new
	count, err = store.InvalidateUser(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMemoryStoreExpiredNotServed(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.UpsertDirect(ctx, directRecord("alice", "bob", -time.Minute)))

	_, err := store.GetDirect(ctx, "direct:alice:bob")
	require.ErrorIs(t, err, ErrMatchNotFound)

	matches, err := store.ListDirectByUser(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestMemoryStoreListOrderingDeterministic(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	// every record carries the same score and value, the comparator's last
	// tie-break (other participant id) must settle the order alone
	for i := 0; i < 12; i++ {
		peer := fmt.Sprintf("peer%02d", i)
		require.NoError(t, store.UpsertDirect(ctx, directRecord("hub", peer, time.Hour)))
	}

	first, err := store.ListDirectByUser(ctx, "hub")
	require.NoError(t, err)
	require.Len(t, first, 12)
	require.Equal(t, "direct:hub:peer00", first[0].MatchKey)
	require.Equal(t, "direct:hub:peer11", first[11].MatchKey)

	for trial := 0; trial < 5; trial++ {
		again, err := store.ListDirectByUser(ctx, "hub")
		require.NoError(t, err)
		for i := range first {
			require.Equal(t, first[i].MatchKey, again[i].MatchKey, "trial %d position %d", trial, i)
		}
	}
}

func TestMemoryStoreTriangularListOrdering(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	even := triangularRecord([]string{"hub", "x1", "x2"}, time.Hour)
	even.BalanceScore = 1.0
	skewed := triangularRecord([]string{"hub", "y1", "y2"}, time.Hour)
	skewed.BalanceScore = 0.4
	require.NoError(t, store.UpsertTriangular(ctx, skewed))
	require.NoError(t, store.UpsertTriangular(ctx, even))

	matches, err := store.ListTriangularByUser(ctx, "hub")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, even.MatchKey, matches[0].MatchKey, "balance score orders cached reads too")
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.UpsertDirect(ctx, directRecord("alice", "bob", time.Hour)))
	require.NoError(t, store.UpsertDirect(ctx, directRecord("carol", "dave", -2*time.Minute)))

	purged, err := store.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, purged, "only records past expiry plus retention are purged")

	_, err = store.GetDirect(ctx, "direct:alice:bob")
	require.NoError(t, err)
}
