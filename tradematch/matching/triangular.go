package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// cancelCheckInterval is how many DFS steps run between context checks.
const cancelCheckInterval = 256

// TriangularOptions tune a cycle search. Zero values fall back to the
// defaults below.
type TriangularOptions struct {
	MaxDepth   int // longest cycle considered, default 4
	MaxResults int // result cap, default 10
	MaxNodes   int // graph size cap, default 200
}

func (o TriangularOptions) withDefaults() TriangularOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 4
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 10
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = 200
	}
	return o
}

// TriangularResult carries the matches found for a seed. Partial is set when
// the search was cancelled mid-enumeration and the matches reflect only the
// cycles visited so far.
type TriangularResult struct {
	Matches []*models.TriangularMatch
	Partial bool
}

// TriangularFinder enumerates trade cycles of length 3 up to MaxDepth through
// a seed user and scores each by how evenly value flows around the loop.
type TriangularFinder struct {
	ledger  Ledger
	values  ValueSource
	builder *GraphBuilder
	ttl     time.Duration
}

func NewTriangularFinder(ledger Ledger, values ValueSource, builder *GraphBuilder, ttl time.Duration) *TriangularFinder {
	return &TriangularFinder{
		ledger:  ledger,
		values:  values,
		builder: builder,
		ttl:     ttl,
	}
}

// FindTriangular computes scored trade cycles through seedUser, best first.
// A seed with no active wants or no active haves cannot sit on a cycle and
// yields an empty result without touching the graph. Cancellation during
// enumeration returns the cycles found so far with Partial set instead of an
// error.
func (f *TriangularFinder) FindTriangular(ctx context.Context, seedUser string, opts TriangularOptions) (*TriangularResult, error) {
	opts = opts.withDefaults()

	wants, err := f.ledger.ListActiveWants(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed wants", err)
	}
	haves, err := f.ledger.ListActiveHaves(ctx, seedUser)
	if err != nil {
		return nil, dataUnavailable("list seed haves", err)
	}
	if len(wants) == 0 || len(haves) == 0 {
		return &TriangularResult{}, nil
	}

	pool, err := f.ledger.ListActiveTraders(ctx, opts.MaxNodes)
	if err != nil {
		return nil, dataUnavailable("list active traders", err)
	}
	pool = ensureFirst(pool, seedUser, opts.MaxNodes)

	graph, err := f.builder.BuildGraph(ctx, pool, opts.MaxNodes)
	if err != nil {
		return nil, err
	}

	seed := graph.Index(seedUser)
	if seed < 0 {
		return &TriangularResult{}, nil
	}

	cycles, partial := enumerateCycles(ctx, graph, seed, opts.MaxDepth)

	seen := make(map[string]struct{})
	valueMemo := make(map[int64]int64)
	var matches []*models.TriangularMatch
	for _, cycle := range cycles {
		match, err := f.buildMatch(ctx, graph, cycle, valueMemo)
		if err != nil {
			// Cancellation during valuation keeps the cycles scored so far,
			// same contract as cancellation during enumeration.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				partial = true
				break
			}
			return nil, err
		}
		if match == nil {
			continue
		}
		if _, dup := seen[match.MatchKey]; dup {
			continue
		}
		seen[match.MatchKey] = struct{}{}
		matches = append(matches, match)
	}

	SortTriangularMatches(matches)
	if len(matches) > opts.MaxResults {
		matches = matches[:opts.MaxResults]
	}
	return &TriangularResult{Matches: matches, Partial: partial}, nil
}

// ensureFirst guarantees seedUser leads the pool so the node cap never drops
// the one user every cycle must pass through.
func ensureFirst(pool []string, seedUser string, maxNodes int) []string {
	for i, id := range pool {
		if id == seedUser {
			if i == 0 {
				return pool
			}
			reordered := make([]string, 0, len(pool))
			reordered = append(reordered, seedUser)
			reordered = append(reordered, pool[:i]...)
			reordered = append(reordered, pool[i+1:]...)
			return reordered
		}
	}
	out := make([]string, 0, len(pool)+1)
	out = append(out, seedUser)
	out = append(out, pool...)
	if maxNodes > 0 && len(out) > maxNodes {
		out = out[:maxNodes]
	}
	return out
}

// dfsFrame is one level of the explicit DFS stack: the node being expanded
// and the position of the next neighbor to try.
type dfsFrame struct {
	node int
	next int
}

// enumerateCycles walks the graph depth-first from seed and collects every
// simple cycle of length 3 up to maxDepth that passes through seed. The stack
// is explicit so the walk can poll ctx cheaply; on cancellation it returns
// the cycles recorded so far and partial=true.
func enumerateCycles(ctx context.Context, graph *TradeGraph, seed, maxDepth int) ([][]int, bool) {
	visited := make([]bool, graph.Size())
	visited[seed] = true

	path := []int{seed}
	stack := []dfsFrame{{node: seed}}

	var cycles [][]int
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return cycles, true
			default:
			}
		}

		frame := &stack[len(stack)-1]
		neighbors := graph.adj[frame.node]
		if frame.next >= len(neighbors) {
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			visited[frame.node] = false
			continue
		}

		to := neighbors[frame.next]
		frame.next++

		if to == seed {
			if len(path) >= 3 {
				cycle := make([]int, len(path))
				copy(cycle, path)
				cycles = append(cycles, cycle)
			}
			continue
		}
		if visited[to] || len(path) >= maxDepth {
			continue
		}

		visited[to] = true
		path = append(path, to)
		stack = append(stack, dfsFrame{node: to})
	}
	return cycles, false
}

// buildMatch assigns one concrete card to each hop of the cycle and scores
// the loop. Cards are picked greedily by value and a card already committed
// to an earlier hop is not reused, so a user holding a single copy never owes
// it twice within the same cycle. An unassignable hop discards the whole
// cycle; that is not an error, the cycle is just not executable.
func (f *TriangularFinder) buildMatch(ctx context.Context, graph *TradeGraph, cycle []int, valueMemo map[int64]int64) (*models.TriangularMatch, error) {
	n := len(cycle)
	used := make(map[int64]bool)
	edges := make([]models.TradeEdge, 0, n)
	var total int64

	for i := 0; i < n; i++ {
		from := cycle[i]
		to := cycle[(i+1)%n]
		edge := graph.Edge(from, to)
		if edge == nil {
			return nil, nil
		}

		var bestCard int64
		var bestValue int64
		found := false
		for _, cardID := range edge.Cards {
			if used[cardID] {
				continue
			}
			value, ok := valueMemo[cardID]
			if !ok {
				v, _, err := f.values.GetValue(ctx, cardID)
				if err != nil {
					return nil, err
				}
				value = v
				valueMemo[cardID] = value
			}
			if !found || value > bestValue {
				bestCard, bestValue, found = cardID, value, true
			}
		}
		if !found {
			return nil, nil
		}

		used[bestCard] = true
		edges = append(edges, models.TradeEdge{
			Giver:    graph.User(from),
			Receiver: graph.User(to),
			CardID:   bestCard,
			Value:    bestValue,
		})
		total += bestValue
	}

	participants := make([]string, n)
	edgeValues := make([]int64, n)
	for i, e := range edges {
		participants[i] = e.Giver
		edgeValues[i] = e.Value
	}

	participants, edges = rotateCanonical(participants, edges)

	now := time.Now()
	return &models.TriangularMatch{
		MatchKey:     CycleKey(participants),
		Participants: participants,
		Edges:        edges,
		TotalValue:   total,
		BalanceScore: BalanceScore(edgeValues),
		ComputedAt:   now,
		ExpiresAt:    now.Add(f.ttl),
	}, nil
}

// rotateCanonical rotates participants and edges together so the cycle starts
// at the lexicographically smallest participant.
func rotateCanonical(participants []string, edges []models.TradeEdge) ([]string, []models.TradeEdge) {
	n := len(participants)
	if n == 0 {
		return participants, edges
	}

	minIdx := 0
	for i := 1; i < n; i++ {
		if participants[i] < participants[minIdx] {
			minIdx = i
		}
	}
	if minIdx == 0 {
		return participants, edges
	}

	rp := make([]string, n)
	re := make([]models.TradeEdge, n)
	for i := 0; i < n; i++ {
		rp[i] = participants[(minIdx+i)%n]
		re[i] = edges[(minIdx+i)%n]
	}
	return rp, re
}

// SortTriangularMatches orders matches by balance score desc, total value
// desc, then participant tuple asc. Shared by the finder and the stores.
func SortTriangularMatches(matches []*models.TriangularMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].BalanceScore != matches[j].BalanceScore {
			return matches[i].BalanceScore > matches[j].BalanceScore
		}
		if matches[i].TotalValue != matches[j].TotalValue {
			return matches[i].TotalValue > matches[j].TotalValue
		}
		return lessParticipants(matches[i].Participants, matches[j].Participants)
	})
}

func lessParticipants(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
