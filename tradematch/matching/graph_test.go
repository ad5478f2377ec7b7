package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTradeGraphEdgeAccumulation(t *testing.T) {
	g := NewTradeGraph()
	a := g.AddUser("alice")
	b := g.AddUser("bob")

	g.AddEdgeCard(a, b, 1)
	g.AddEdgeCard(a, b, 2)
	g.AddEdgeCard(a, b, 1) // duplicate card on the same edge

	edge := g.Edge(a, b)
	require.NotNil(t, edge)
	require.Equal(t, []int64{1, 2}, edge.Cards)
	require.Nil(t, g.Edge(b, a))
	require.Len(t, g.adj[a], 1, "edge is created once, not per card")
}

func TestTradeGraphAddUserIdempotent(t *testing.T) {
	g := NewTradeGraph()
	first := g.AddUser("alice")
	second := g.AddUser("alice")
	require.Equal(t, first, second)
	require.Equal(t, 1, g.Size())
}

func TestBuildGraph(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addHave("alice", 100, 1)
	ledger.addWant("bob", 1)
	ledger.addHave("bob", 200, 2)
	ledger.addWant("carol", 2)
	ledger.addHave("carol", 300, 3)
	ledger.addWant("alice", 3)

	builder := NewGraphBuilder(ledger)
	graph, err := builder.BuildGraph(context.Background(), []string{"alice", "bob", "carol"}, 0)
	require.NoError(t, err)
	require.Equal(t, 3, graph.Size())

	a, b, c := graph.Index("alice"), graph.Index("bob"), graph.Index("carol")
	require.NotNil(t, graph.Edge(a, b))
	require.NotNil(t, graph.Edge(b, c))
	require.NotNil(t, graph.Edge(c, a))
	require.Nil(t, graph.Edge(b, a))
}

func TestBuildGraphNoSelfEdges(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addHave("alice", 100, 1)
	ledger.addWant("alice", 1)

	builder := NewGraphBuilder(ledger)
	graph, err := builder.BuildGraph(context.Background(), []string{"alice"}, 0)
	require.NoError(t, err)
	require.Nil(t, graph.Edge(0, 0))
}

func TestBuildGraphMaxNodesCap(t *testing.T) {
	ledger := newFakeLedger()
	pool := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, u := range pool {
		ledger.addHave(u, int64(100+i), int64(i+1))
	}

	builder := NewGraphBuilder(ledger)
	graph, err := builder.BuildGraph(context.Background(), pool, 3)
	require.NoError(t, err)
	require.Equal(t, 3, graph.Size())
	require.Equal(t, -1, graph.Index("u4"))
}
