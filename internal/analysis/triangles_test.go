package analysis

import (
	"context"
	"testing"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForceTriangles counts connected neighbor pairs per vertex with set lookups
func bruteForceTriangles(pairs [][2]graph.VertexID) map[graph.VertexID]int64 {
	adj := make(map[graph.VertexID]map[graph.VertexID]bool)
	link := func(a, b graph.VertexID) {
		if adj[a] == nil {
			adj[a] = make(map[graph.VertexID]bool)
		}
		if a != b {
			adj[a][b] = true
		}
	}
	for _, p := range pairs {
		link(p[0], p[1])
		link(p[1], p[0])
	}

	counts := make(map[graph.VertexID]int64, len(adj))
	for v, nb := range adj {
		list := make([]graph.VertexID, 0, len(nb))
		for u := range nb {
			list = append(list, u)
		}
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if adj[list[i]][list[j]] {
					counts[v]++
				}
			}
		}
	}
	return counts
}

func TestTriangles_DirectedCycle(t *testing.T) {
	s := buildStore(t, [2]graph.VertexID{1, 2}, [2]graph.VertexID{2, 3}, [2]graph.VertexID{3, 1})

	res, err := Triangles(context.Background(), s, TriangleOptions{})
	require.NoError(t, err)

	for _, id := range []graph.VertexID{1, 2, 3} {
		c, ok := res.Count(id)
		require.True(t, ok)
		assert.EqualValues(t, 1, c, "vertex %d", id)
	}
	assert.EqualValues(t, 1, res.Total)
}

func TestTriangles_Scenario(t *testing.T) {
	res, err := Triangles(context.Background(), scenarioStore(t), TriangleOptions{})
	require.NoError(t, err)

	assert.Equal(t, []TriangleCount{
		{Vertex: 1, Count: 1},
		{Vertex: 2, Count: 1},
		{Vertex: 3, Count: 1},
		{Vertex: 4, Count: 0},
		{Vertex: 5, Count: 0},
	}, res.Table())
}

func TestTriangles_SelfLoopOnly(t *testing.T) {
	res, err := Triangles(context.Background(), buildStore(t, [2]graph.VertexID{7, 7}), TriangleOptions{})
	require.NoError(t, err)

	c, _ := res.Count(7)
	assert.Zero(t, c)
	assert.Zero(t, res.Total)
}

func TestTriangles_DuplicatesAndReverseEdgesIgnored(t *testing.T) {
	s := buildStore(t,
		[2]graph.VertexID{1, 2}, [2]graph.VertexID{2, 1}, [2]graph.VertexID{1, 2},
		[2]graph.VertexID{2, 3}, [2]graph.VertexID{3, 3},
		[2]graph.VertexID{3, 1}, [2]graph.VertexID{1, 3},
	)

	res, err := Triangles(context.Background(), s, TriangleOptions{})
	require.NoError(t, err)

	for _, id := range []graph.VertexID{1, 2, 3} {
		c, _ := res.Count(id)
		assert.EqualValues(t, 1, c, "vertex %d", id)
	}
}

func TestTriangles_CompleteGraph(t *testing.T) {
	var pairs [][2]graph.VertexID
	for a := graph.VertexID(1); a <= 4; a++ {
		for b := a + 1; b <= 4; b++ {
			pairs = append(pairs, [2]graph.VertexID{a, b})
		}
	}
	res, err := Triangles(context.Background(), buildStore(t, pairs...), TriangleOptions{})
	require.NoError(t, err)

	assert.EqualValues(t, 4, res.Total)
	for id := graph.VertexID(1); id <= 4; id++ {
		c, _ := res.Count(id)
		assert.EqualValues(t, 3, c)
		cc, ok := res.Clustering(id)
		require.True(t, ok)
		assert.InDelta(t, 1.0, cc, 1e-12)
	}
}

func TestTriangles_MatchesBruteForce(t *testing.T) {
	pairs := randomEdges(80, 900, 31)
	want := bruteForceTriangles(pairs)

	res, err := Triangles(context.Background(), buildStore(t, pairs...), TriangleOptions{})
	require.NoError(t, err)

	var sum int64
	for _, row := range res.Table() {
		assert.Equal(t, want[row.Vertex], row.Count, "vertex %d", row.Vertex)
		sum += row.Count
	}
	assert.Equal(t, 3*res.Total, sum, "each triangle counts at all three corners")
}

func TestTriangles_DeterministicAcrossWorkers(t *testing.T) {
	s := buildStore(t, randomEdges(6000, 60000, 37)...)

	first, err := Triangles(context.Background(), s, TriangleOptions{Workers: 1})
	require.NoError(t, err)
	second, err := Triangles(context.Background(), s, TriangleOptions{Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, first.Table(), second.Table())
	assert.Equal(t, first.Total, second.Total)
}

func TestTriangles_ClusteringLowDegree(t *testing.T) {
	res, err := Triangles(context.Background(), scenarioStore(t), TriangleOptions{})
	require.NoError(t, err)

	cc, ok := res.Clustering(4)
	require.True(t, ok)
	assert.Zero(t, cc)

	_, ok = res.Clustering(99)
	assert.False(t, ok)
}

func TestTopTriangles(t *testing.T) {
	rows := []TriangleCount{{Vertex: 5, Count: 2}, {Vertex: 2, Count: 2}, {Vertex: 1, Count: 7}, {Vertex: 3, Count: 0}}
	assert.Equal(t, []TriangleCount{{Vertex: 1, Count: 7}, {Vertex: 2, Count: 2}, {Vertex: 5, Count: 2}}, TopTriangles(rows, 3))
}
