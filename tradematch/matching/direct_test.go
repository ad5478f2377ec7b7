package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newDirectFinder(ledger *fakeLedger, values *fakeValues) *DirectFinder {
	return NewDirectFinder(
		NewCandidateIndex(ledger, nil),
		ledger,
		values,
		30*time.Minute,
	)
}

func TestFindDirectMutualMatch(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("alice", 1)
	ledger.addHave("alice", 100, 2)
	ledger.addWant("bob", 2)
	ledger.addHave("bob", 200, 1)

	values := &fakeValues{values: map[int64]int64{1: 40, 2: 38}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "alice", DirectOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	require.Equal(t, "direct:alice:bob", m.MatchKey)
	require.Equal(t, "alice", m.UserA)
	require.Equal(t, "bob", m.UserB)
	require.Equal(t, int64(40), m.ValueA, "alice receives card 1 worth 40")
	require.Equal(t, int64(38), m.ValueB, "bob receives card 2 worth 38")
	require.Equal(t, 48, m.QualityScore)
	require.Len(t, m.ItemsAReceives, 1)
	require.Equal(t, int64(200), m.ItemsAReceives[0].ItemID)
	require.False(t, m.Stale)
	require.True(t, m.ExpiresAt.After(m.ComputedAt))
}

func TestFindDirectRequiresMutualBenefit(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("alice", 1)
	ledger.addHave("alice", 100, 2)
	// bob holds what alice wants but wants nothing alice has
	ledger.addHave("bob", 200, 1)
	ledger.addWant("bob", 99)

	values := &fakeValues{values: map[int64]int64{1: 40, 2: 38}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "alice", DirectOptions{})
	require.NoError(t, err)
	require.Empty(t, matches, "one-way opportunity is not a direct match")
}

func TestFindDirectSeedKeyNormalization(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("zed", 1)
	ledger.addHave("zed", 100, 2)
	ledger.addWant("amy", 2)
	ledger.addHave("amy", 200, 1)

	values := &fakeValues{values: map[int64]int64{1: 50, 2: 50}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "zed", DirectOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	require.Equal(t, "amy", m.UserA, "UserA is always the smaller id")
	require.Equal(t, "zed", m.UserB)
	require.Equal(t, int64(50), m.ValueA, "ValueA belongs to UserA regardless of who seeded")
	require.Equal(t, int64(100), m.ItemsAReceives[0].ItemID, "amy receives zed's item")
}

func TestFindDirectMinQualityFilter(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("alice", 1)
	ledger.addHave("alice", 100, 2)
	ledger.addWant("bob", 2)
	ledger.addHave("bob", 200, 1)

	// wildly unbalanced, scores 36
	values := &fakeValues{values: map[int64]int64{1: 1, 2: 1000}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "alice", DirectOptions{MinQuality: 40})
	require.NoError(t, err)
	require.Empty(t, matches)

	matches, err = finder.FindDirect(context.Background(), "alice", DirectOptions{MinQuality: 30})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestFindDirectUnpricedCardsCountZero(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("alice", 1)
	ledger.addHave("alice", 100, 2)
	ledger.addWant("bob", 2)
	ledger.addHave("bob", 200, 1)

	// card 1 has no value row at all
	values := &fakeValues{values: map[int64]int64{2: 38}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "alice", DirectOptions{})
	require.NoError(t, err)
	require.Empty(t, matches, "a zero-value side scores zero and falls below any positive threshold")
}

func TestFindDirectOrderingAndCap(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("seed", 1)
	ledger.addWant("seed", 2)
	ledger.addWant("seed", 3)
	ledger.addHave("seed", 100, 10)
	ledger.addHave("seed", 101, 11)
	ledger.addHave("seed", 102, 12)

	// balanced partner, scores highest
	ledger.addHave("even", 200, 1)
	ledger.addWant("even", 10)
	// unbalanced partner
	ledger.addHave("skew", 300, 2)
	ledger.addWant("skew", 11)
	// another unbalanced partner, same score as skew but lower combined value
	ledger.addHave("tiny", 400, 3)
	ledger.addWant("tiny", 12)

	values := &fakeValues{values: map[int64]int64{
		1: 100, 10: 100,
		2: 40, 11: 90,
		3: 20, 12: 45,
	}}
	finder := newDirectFinder(ledger, values)

	matches, err := finder.FindDirect(context.Background(), "seed", DirectOptions{MinQuality: 1})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "direct:even:seed", matches[0].MatchKey)

	scoreOf := func(i int) int { return matches[i].QualityScore }
	require.GreaterOrEqual(t, scoreOf(0), scoreOf(1))
	require.GreaterOrEqual(t, scoreOf(1), scoreOf(2))

	capped, err := finder.FindDirect(context.Background(), "seed", DirectOptions{MinQuality: 1, MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, capped, 2)
	require.Equal(t, matches[0].MatchKey, capped[0].MatchKey)
}

func TestFindDirectDeterministic(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("seed", 1)
	ledger.addHave("seed", 100, 2)
	for i, partner := range []string{"p1", "p2", "p3", "p4"} {
		ledger.addHave(partner, int64(200+i), 1)
		ledger.addWant(partner, 2)
	}

	values := &fakeValues{values: map[int64]int64{1: 30, 2: 30}}
	finder := newDirectFinder(ledger, values)

	first, err := finder.FindDirect(context.Background(), "seed", DirectOptions{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := finder.FindDirect(context.Background(), "seed", DirectOptions{})
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			require.Equal(t, first[j].MatchKey, again[j].MatchKey)
		}
	}
}
