package matching

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/gohye/tradematch/tradematch/database/models"
)

const indexLookupWorkers = 8

// CandidateIndex narrows the user population to those worth evaluating for a
// seed user: anyone holding a card the seed wants, or wanting a card the seed
// holds. It runs one indexed lookup per distinct card id, fanned out with a
// bounded worker group, and never queries per candidate.
type CandidateIndex struct {
	ledger        Ledger
	relationships RelationshipChecker
}

func NewCandidateIndex(ledger Ledger, relationships RelationshipChecker) *CandidateIndex {
	if relationships == nil {
		relationships = AllowAllRelationships{}
	}
	return &CandidateIndex{ledger: ledger, relationships: relationships}
}

// FindCandidates returns the sorted ids of users eligible to trade with
// seedUser. The seed itself and users in a block relationship with the seed
// are excluded. A seed with no active wants and no active haves yields an
// empty result, not an error.
func (ci *CandidateIndex) FindCandidates(ctx context.Context, seedUser string) ([]string, error) {
	wants, err := ci.ledger.ListActiveWants(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed wants", err)
	}
	haves, err := ci.ledger.ListActiveHaves(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed haves", err)
	}
	if len(wants) == 0 && len(haves) == 0 {
		return nil, nil
	}

	wantCards := lo.Uniq(lo.Map(wants, func(w *models.WantItem, _ int) int64 { return w.CardID }))
	haveCards := lo.Uniq(lo.Map(haves, func(h *models.TradeableItem, _ int) int64 { return h.CardID }))

	var mu sync.Mutex
	found := make(map[string]struct{})
	collect := func(ids []string) {
		mu.Lock()
		for _, id := range ids {
			if id != seedUser {
				found[id] = struct{}{}
			}
		}
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexLookupWorkers)
	for _, cardID := range wantCards {
		g.Go(func() error {
			ids, err := ci.ledger.ListUsersHavingCard(gctx, cardID)
			if err != nil {
				return dataUnavailable("list users having card", err)
			}
			collect(ids)
			return nil
		})
	}
	for _, cardID := range haveCards {
		g.Go(func() error {
			ids, err := ci.ledger.ListUsersWantingCard(gctx, cardID)
			if err != nil {
				return dataUnavailable("list users wanting card", err)
			}
			collect(ids)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := lo.Keys(found)
	sort.Strings(candidates)

	return ci.filterBlocked(ctx, seedUser, candidates)
}

func (ci *CandidateIndex) filterBlocked(ctx context.Context, seedUser string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	blocked := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexLookupWorkers)
	for _, id := range candidates {
		g.Go(func() error {
			isBlocked, err := ci.relationships.IsBlocked(gctx, seedUser, id)
			if err != nil {
				return dataUnavailable("check block relationship", err)
			}
			if isBlocked {
				mu.Lock()
				blocked[id] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return lo.Filter(candidates, func(id string, _ int) bool {
		_, isBlocked := blocked[id]
		return !isBlocked
	}), nil
}
