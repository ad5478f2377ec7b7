package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindCandidates(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("seed", 1)
	ledger.addHave("seed", 100, 2)

	ledger.addHave("holder", 101, 1)    // has what seed wants
	ledger.addWant("wanter", 2)         // wants what seed has
	ledger.addHave("bystander", 102, 9) // unrelated card

	index := NewCandidateIndex(ledger, nil)
	candidates, err := index.FindCandidates(context.Background(), "seed")
	require.NoError(t, err)
	require.Equal(t, []string{"holder", "wanter"}, candidates)
}

func TestFindCandidatesExcludesSeed(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("seed", 1)
	ledger.addHave("seed", 100, 1) // seed holds a card it also wants

	index := NewCandidateIndex(ledger, nil)
	candidates, err := index.FindCandidates(context.Background(), "seed")
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestFindCandidatesEmptyLists(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addHave("other", 100, 1)

	index := NewCandidateIndex(ledger, nil)
	candidates, err := index.FindCandidates(context.Background(), "seed")
	require.NoError(t, err)
	require.Empty(t, candidates, "no wants and no haves must be an empty result, not an error")
}

func TestFindCandidatesExcludesBlocked(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addWant("seed", 1)
	ledger.addHave("friendly", 101, 1)
	ledger.addHave("hostile", 102, 1)

	relationships := newFakeRelationships()
	relationships.block("seed", "hostile")

	index := NewCandidateIndex(ledger, relationships)
	candidates, err := index.FindCandidates(context.Background(), "seed")
	require.NoError(t, err)
	require.Equal(t, []string{"friendly"}, candidates)
}

func TestFindCandidatesLedgerFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.err = errors.New("connection refused")

	index := NewCandidateIndex(ledger, nil)
	_, err := index.FindCandidates(context.Background(), "seed")
	require.Error(t, err)
	require.True(t, IsDataUnavailable(err), "ledger failures must not look like empty results")
}
