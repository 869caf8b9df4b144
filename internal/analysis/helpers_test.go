package analysis

import (
	"math/rand/v2"
	"testing"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/stretchr/testify/require"
)

func buildStore(t *testing.T, pairs ...[2]graph.VertexID) *graph.Store {
	t.Helper()
	b := graph.NewBuilder(len(pairs))
	for _, p := range pairs {
		b.AddEdge(graph.Edge{Src: p[0], Dst: p[1]})
	}
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

// scenarioStore is the graph {(1,2),(2,3),(3,1),(4,5)}
func scenarioStore(t *testing.T) *graph.Store {
	return buildStore(t,
		[2]graph.VertexID{1, 2},
		[2]graph.VertexID{2, 3},
		[2]graph.VertexID{3, 1},
		[2]graph.VertexID{4, 5},
	)
}

func randomEdges(n, m int, seed uint64) [][2]graph.VertexID {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pairs := make([][2]graph.VertexID, m)
	for i := range pairs {
		pairs[i] = [2]graph.VertexID{graph.VertexID(r.IntN(n)), graph.VertexID(r.IntN(n))}
	}
	return pairs
}

func reversed(pairs [][2]graph.VertexID) [][2]graph.VertexID {
	out := make([][2]graph.VertexID, len(pairs))
	for i, p := range pairs {
		out[i] = [2]graph.VertexID{p[1], p[0]}
	}
	return out
}
