package analysis

import (
	"context"
	"testing"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestPageRankOptions_Validate(t *testing.T) {
	tests := []struct {
		name     string
		opts     PageRankOptions
		expected PageRankOptions
	}{
		{
			name:     "valid options unchanged",
			opts:     PageRankOptions{DampingFactor: 0.8, MaxIterations: 20, Tolerance: 1e-6},
			expected: PageRankOptions{DampingFactor: 0.8, MaxIterations: 20, Tolerance: 1e-6},
		},
		{
			name:     "damping above one replaced",
			opts:     PageRankOptions{DampingFactor: 1.5, MaxIterations: 20},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, MaxIterations: 20},
		},
		{
			name:     "negative damping replaced",
			opts:     PageRankOptions{DampingFactor: -0.1, MaxIterations: 20},
			expected: PageRankOptions{DampingFactor: DefaultDampingFactor, MaxIterations: 20},
		},
		{
			name:     "zero iterations replaced",
			opts:     PageRankOptions{DampingFactor: 0.85},
			expected: PageRankOptions{DampingFactor: 0.85, MaxIterations: DefaultMaxIterations},
		},
		{
			name:     "negative tolerance cleared",
			opts:     PageRankOptions{DampingFactor: 0.85, MaxIterations: 3, Tolerance: -1},
			expected: PageRankOptions{DampingFactor: 0.85, MaxIterations: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Validate()
			assert.Equal(t, tt.expected, tt.opts)
		})
	}
}

func TestPageRank_DanglingMassRedistributed(t *testing.T) {
	// 1 -> 2, vertex 2 is dangling
	s := buildStore(t, [2]graph.VertexID{1, 2})

	opts := DefaultPageRankOptions()
	opts.MaxIterations = 1
	res, err := PageRank(context.Background(), s, opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.2875, res.Scores[0], 1e-12)
	assert.InDelta(t, 0.7125, res.Scores[1], 1e-12)

	opts.MaxIterations = 2
	res, err = PageRank(context.Background(), s, opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.3778125, res.Scores[0], 1e-12)
	assert.InDelta(t, 0.6221875, res.Scores[1], 1e-12)
}

func TestPageRank_MassConservedEveryIteration(t *testing.T) {
	// Plenty of dangling vertices and duplicate edges
	s := buildStore(t, randomEdges(500, 900, 11)...)

	for iters := 1; iters <= 15; iters++ {
		opts := DefaultPageRankOptions()
		opts.MaxIterations = iters
		res, err := PageRank(context.Background(), s, opts)
		require.NoError(t, err)

		assert.Equal(t, iters, res.Iterations)
		assert.InDelta(t, 1.0, floats.Sum(res.Scores), 1e-9, "iteration %d", iters)
		assert.InDelta(t, 1.0, res.Mass, 1e-9)
		for _, score := range res.Scores {
			assert.Positive(t, score)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestPageRank_SelfLoopOnly(t *testing.T) {
	s := buildStore(t, [2]graph.VertexID{7, 7})

	for _, iters := range []int{1, 3, 10} {
		opts := DefaultPageRankOptions()
		opts.MaxIterations = iters
		res, err := PageRank(context.Background(), s, opts)
		require.NoError(t, err)

		score, ok := res.Score(7)
		require.True(t, ok)
		assert.InDelta(t, 1.0, score, 1e-12)
	}
}

func TestPageRank_CycleIsUniform(t *testing.T) {
	res, err := PageRank(context.Background(), scenarioStore(t), DefaultPageRankOptions())
	require.NoError(t, err)

	one, _ := res.Score(1)
	two, _ := res.Score(2)
	three, _ := res.Score(3)
	assert.InDelta(t, one, two, 1e-12)
	assert.InDelta(t, two, three, 1e-12)

	four, _ := res.Score(4)
	five, _ := res.Score(5)
	assert.Greater(t, five, four, "the sink of 4->5 collects 4's mass")
}

func TestPageRank_ToleranceStopsEarly(t *testing.T) {
	s := buildStore(t, randomEdges(200, 1500, 5)...)

	opts := DefaultPageRankOptions()
	opts.MaxIterations = 500
	opts.Tolerance = 1e-10
	res, err := PageRank(context.Background(), s, opts)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Less(t, res.Iterations, 500)
	assert.Less(t, res.Delta, 1e-10)
}

func TestPageRank_FixedBudgetWithoutTolerance(t *testing.T) {
	res, err := PageRank(context.Background(), scenarioStore(t), DefaultPageRankOptions())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, res.Iterations)
	assert.False(t, res.Converged)
}

func TestPageRank_ScaleToVertexCount(t *testing.T) {
	s := scenarioStore(t)
	opts := DefaultPageRankOptions()
	opts.ScaleToVertexCount = true

	res, err := PageRank(context.Background(), s, opts)
	require.NoError(t, err)
	assert.InDelta(t, float64(s.NumVertices()), floats.Sum(res.Scores), 1e-9)
	assert.InDelta(t, 1.0, res.Mass, 1e-9)
}

func TestPageRank_DeterministicAcrossWorkers(t *testing.T) {
	// Large enough to take the parallel path
	s := buildStore(t, randomEdges(20000, 80000, 42)...)
	require.Greater(t, s.NumVertices(), parallelThreshold)

	run := func(workers int) []float64 {
		opts := DefaultPageRankOptions()
		opts.Workers = workers
		res, err := PageRank(context.Background(), s, opts)
		require.NoError(t, err)
		return res.Scores
	}

	sequential := run(1)
	assert.Equal(t, sequential, run(8), "scores must be bit-identical")
	assert.Equal(t, sequential, run(8), "repeat runs must be bit-identical")
}

func TestPageRank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PageRank(ctx, scenarioStore(t), DefaultPageRankOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopPageRank_TieBreak(t *testing.T) {
	rows := []PageRankScore{{Vertex: 9, Score: 0.2}, {Vertex: 3, Score: 0.2}, {Vertex: 1, Score: 0.6}}
	assert.Equal(t, []PageRankScore{{Vertex: 1, Score: 0.6}, {Vertex: 3, Score: 0.2}}, TopPageRank(rows, 2))
}
