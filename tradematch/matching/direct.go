package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gohye/tradematch/tradematch/database/models"
)

const candidateScanWorkers = 10

// DirectOptions tune a two-party search. Zero values fall back to the
// defaults below.
type DirectOptions struct {
	MinQuality int // minimum quality score, default 20
	MaxResults int // result cap, default 50
}

func (o DirectOptions) withDefaults() DirectOptions {
	if o.MinQuality <= 0 {
		o.MinQuality = 20
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 50
	}
	return o
}

// DirectFinder evaluates two-party mutual intersections between a seed user
// and every candidate the index surfaces. Only matches with benefit in both
// directions are reported: a candidate who has something for the seed but
// wants nothing back is dropped by design, one-way opportunities are not
// "direct" matches.
type DirectFinder struct {
	candidates *CandidateIndex
	ledger     Ledger
	values     ValueSource
	ttl        time.Duration
}

func NewDirectFinder(candidates *CandidateIndex, ledger Ledger, values ValueSource, ttl time.Duration) *DirectFinder {
	return &DirectFinder{
		candidates: candidates,
		ledger:     ledger,
		values:     values,
		ttl:        ttl,
	}
}

// seedLists is the precomputed view of the seed user both finders need.
type seedLists struct {
	wantCards map[int64]struct{}
	haves     []*models.TradeableItem
}

func (f *DirectFinder) loadSeed(ctx context.Context, seedUser string) (*seedLists, error) {
	wants, err := f.ledger.ListActiveWants(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed wants", err)
	}
	haves, err := f.ledger.ListActiveHaves(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed haves", err)
	}

	wantCards := make(map[int64]struct{}, len(wants))
	for _, w := range wants {
		wantCards[w.CardID] = struct{}{}
	}
	return &seedLists{wantCards: wantCards, haves: haves}, nil
}

// FindDirect computes scored two-party matches for seedUser, best first.
// Results are sorted by quality score, then combined value, then candidate id
// so repeated runs over the same snapshot are byte-identical. The finder has
// no side effects; persisting results is the caller's decision.
func (f *DirectFinder) FindDirect(ctx context.Context, seedUser string, opts DirectOptions) ([]*models.MatchCandidate, error) {
	opts = opts.withDefaults()

	seed, err := f.loadSeed(ctx, seedUser)
	if err != nil {
		return nil, err
	}

	candidates, err := f.candidates.FindCandidates(ctx, seedUser)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var matches []*models.MatchCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(candidateScanWorkers)
	for _, candidateID := range candidates {
		g.Go(func() error {
			match, err := f.evaluatePair(gctx, seedUser, seed, candidateID, opts.MinQuality)
			if err != nil {
				return err
			}
			if match != nil {
				mu.Lock()
				matches = append(matches, match)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortDirectMatches(seedUser, matches)
	if len(matches) > opts.MaxResults {
		matches = matches[:opts.MaxResults]
	}
	return matches, nil
}

// evaluatePair scores one seed/candidate pairing, returning nil when the pair
// does not qualify.
func (f *DirectFinder) evaluatePair(ctx context.Context, seedUser string, seed *seedLists, candidateID string, minQuality int) (*models.MatchCandidate, error) {
	candidateHaves, err := f.ledger.ListActiveHaves(ctx, candidateID)
	if err != nil {
		return nil, dataUnavailable("list candidate haves", err)
	}
	candidateWants, err := f.ledger.ListActiveWants(ctx, candidateID)
	if err != nil {
		return nil, dataUnavailable("list candidate wants", err)
	}

	candidateWantCards := make(map[int64]struct{}, len(candidateWants))
	for _, w := range candidateWants {
		candidateWantCards[w.CardID] = struct{}{}
	}

	itemsForSeed, valueForSeed, err := f.collectItems(ctx, candidateHaves, seed.wantCards)
	if err != nil {
		return nil, err
	}
	itemsForCandidate, valueForCandidate, err := f.collectItems(ctx, seed.haves, candidateWantCards)
	if err != nil {
		return nil, err
	}

	// Mutual benefit only: both directions must carry at least one item.
	if len(itemsForSeed) == 0 || len(itemsForCandidate) == 0 {
		return nil, nil
	}

	quality := Score(valueForSeed, valueForCandidate, len(itemsForSeed), len(itemsForCandidate))
	if quality < minQuality {
		return nil, nil
	}

	now := time.Now()
	match := &models.MatchCandidate{
		MatchKey:     DirectKey(seedUser, candidateID),
		QualityScore: quality,
		ComputedAt:   now,
		ExpiresAt:    now.Add(f.ttl),
	}
	if seedUser < candidateID {
		match.UserA, match.UserB = seedUser, candidateID
		match.ItemsAReceives, match.ValueA = itemsForSeed, valueForSeed
		match.ItemsBReceives, match.ValueB = itemsForCandidate, valueForCandidate
	} else {
		match.UserA, match.UserB = candidateID, seedUser
		match.ItemsAReceives, match.ValueA = itemsForCandidate, valueForCandidate
		match.ItemsBReceives, match.ValueB = itemsForSeed, valueForSeed
	}
	return match, nil
}

// collectItems picks the haves whose card is in wantCards and sums their
// values. Unpriced cards count as zero rather than aborting the pair.
func (f *DirectFinder) collectItems(ctx context.Context, haves []*models.TradeableItem, wantCards map[int64]struct{}) ([]models.MatchItem, int64, error) {
	var items []models.MatchItem
	var total int64
	for _, h := range haves {
		if h.Quantity <= 0 {
			continue
		}
		if _, wanted := wantCards[h.CardID]; !wanted {
			continue
		}
		value, _, err := f.values.GetValue(ctx, h.CardID)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, models.MatchItem{
			ItemID: h.ID,
			CardID: h.CardID,
			Value:  value,
		})
		total += value
	}
	return items, total, nil
}

// SortDirectMatches orders matches by quality score desc, combined value
// desc, then the other participant's id asc relative to seedUser. Finders and
// stores share this comparator so a cached read returns the same ordering the
// computation produced.
func SortDirectMatches(seedUser string, matches []*models.MatchCandidate) {
	other := func(m *models.MatchCandidate) string {
		if m.UserA == seedUser {
			return m.UserB
		}
		return m.UserA
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].QualityScore != matches[j].QualityScore {
			return matches[i].QualityScore > matches[j].QualityScore
		}
		combinedI := matches[i].ValueA + matches[i].ValueB
		combinedJ := matches[j].ValueA + matches[j].ValueB
		if combinedI != combinedJ {
			return combinedI > combinedJ
		}
		return other(matches[i]) < other(matches[j])
	})
}
