package matching

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gohye/tradematch/tradematch/database/models"
)

const graphBuildWorkers = 8

// GraphEdge is a directed "can give" relation: the From user holds at least
// one card the To user wants. Cards lists every such card id once.
type GraphEdge struct {
	From  int
	To    int
	Cards []int64
}

// TradeGraph is the directed graph the cycle search runs on. Users are mapped
// to dense indices so adjacency and edge lookups are slice operations rather
// than map probes on ids. A graph is built per invocation from a ledger
// snapshot and never mutated afterwards, so it needs no locking.
type TradeGraph struct {
	users     []string
	userIndex map[string]int
	adj       [][]int
	edges     []*GraphEdge
	edgeIndex map[[2]int]int
}

func NewTradeGraph() *TradeGraph {
	return &TradeGraph{
		userIndex: make(map[string]int),
		edgeIndex: make(map[[2]int]int),
	}
}

// AddUser registers a user and returns its index. Adding the same user twice
// returns the existing index.
func (g *TradeGraph) AddUser(userID string) int {
	if idx, ok := g.userIndex[userID]; ok {
		return idx
	}
	idx := len(g.users)
	g.users = append(g.users, userID)
	g.userIndex[userID] = idx
	g.adj = append(g.adj, nil)
	return idx
}

// AddEdgeCard records that from can give cardID to to, creating the edge on
// first use and accumulating further cards onto it.
func (g *TradeGraph) AddEdgeCard(from, to int, cardID int64) {
	key := [2]int{from, to}
	if idx, ok := g.edgeIndex[key]; ok {
		edge := g.edges[idx]
		if !containsCard(edge.Cards, cardID) {
			edge.Cards = append(edge.Cards, cardID)
		}
		return
	}
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, &GraphEdge{From: from, To: to, Cards: []int64{cardID}})
	g.adj[from] = append(g.adj[from], to)
}

// Edge returns the edge from -> to, or nil when none exists.
func (g *TradeGraph) Edge(from, to int) *GraphEdge {
	if idx, ok := g.edgeIndex[[2]int{from, to}]; ok {
		return g.edges[idx]
	}
	return nil
}

// User returns the user id at index idx.
func (g *TradeGraph) User(idx int) string {
	return g.users[idx]
}

// Index returns the index for userID, or -1 when the user is not in the graph.
func (g *TradeGraph) Index(userID string) int {
	if idx, ok := g.userIndex[userID]; ok {
		return idx
	}
	return -1
}

// Size returns the number of users in the graph.
func (g *TradeGraph) Size() int {
	return len(g.users)
}

func containsCard(cards []int64, cardID int64) bool {
	for _, c := range cards {
		if c == cardID {
			return true
		}
	}
	return false
}

// userLists is one user's ledger snapshot during a graph build.
type userLists struct {
	wants []*models.WantItem
	haves []*models.TradeableItem
}

// GraphBuilder assembles a TradeGraph from the ledger for a bounded pool of
// users.
type GraphBuilder struct {
	ledger Ledger
}

func NewGraphBuilder(ledger Ledger) *GraphBuilder {
	return &GraphBuilder{ledger: ledger}
}

// BuildGraph fetches the want/have lists for every user in pool (truncated at
// maxNodes) with a bounded worker group, then wires a directed edge A -> B for
// every card A holds that B wants. Fetch order does not matter; the resulting
// graph is deterministic for a given snapshot because edges derive purely from
// list contents.
func (b *GraphBuilder) BuildGraph(ctx context.Context, pool []string, maxNodes int) (*TradeGraph, error) {
	if maxNodes > 0 && len(pool) > maxNodes {
		pool = pool[:maxNodes]
	}

	lists := make([]userLists, len(pool))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(graphBuildWorkers)
	for i, userID := range pool {
		g.Go(func() error {
			wants, err := b.ledger.ListActiveWants(gctx, userID)
			if err != nil {
				return dataUnavailable("list wants for graph", err)
			}
			haves, err := b.ledger.ListActiveHaves(gctx, userID)
			if err != nil {
				return dataUnavailable("list haves for graph", err)
			}
			mu.Lock()
			lists[i] = userLists{wants: wants, haves: haves}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := NewTradeGraph()
	for _, userID := range pool {
		graph.AddUser(userID)
	}

	// havers[card] lists the indices of users holding that card.
	havers := make(map[int64][]int)
	for i, l := range lists {
		for _, h := range l.haves {
			if h.Quantity <= 0 {
				continue
			}
			havers[h.CardID] = append(havers[h.CardID], i)
		}
	}

	for to, l := range lists {
		for _, w := range l.wants {
			for _, from := range havers[w.CardID] {
				if from == to {
					continue
				}
				graph.AddEdgeCard(from, to, w.CardID)
			}
		}
	}
	return graph, nil
}
