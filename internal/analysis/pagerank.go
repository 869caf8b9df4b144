package analysis

import (
	"context"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// PageRank defaults: reset probability 0.15, ten iterations
const (
	DefaultDampingFactor = 0.85
	DefaultMaxIterations = 10
)

// PageRankOptions configures the PageRank computation
type PageRankOptions struct {
	// DampingFactor is the probability of following an out-edge. Must be in [0, 1].
	DampingFactor float64
	// MaxIterations is the iteration budget. Must be > 0.
	MaxIterations int
	// Tolerance stops early once the L1 change of a round drops below it.
	// Zero disables the check and runs exactly MaxIterations rounds.
	Tolerance float64
	// ScaleToVertexCount multiplies final scores by |V| so they sum to |V|
	// instead of 1.
	ScaleToVertexCount bool
	// Workers bounds per-round parallelism. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultPageRankOptions returns the reference configuration
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		DampingFactor: DefaultDampingFactor,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate replaces out-of-range values with defaults
func (o *PageRankOptions) Validate() {
	if o.DampingFactor < 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance < 0 {
		o.Tolerance = 0
	}
}

// PageRankScore is one row of the PageRank table
type PageRankScore struct {
	Vertex graph.VertexID
	Score  float64
}

// PageRankResult holds the final scores indexed by vertex index
type PageRankResult struct {
	Scores     []float64
	Iterations int
	Converged  bool
	// Delta is the L1 change of the last round
	Delta float64
	// Mass is the score total before optional scaling; 1 up to rounding
	Mass float64

	store *graph.Store
}

// Score returns the score of a vertex
func (r *PageRankResult) Score(id graph.VertexID) (float64, bool) {
	i, ok := r.store.Index(id)
	if !ok {
		return 0, false
	}
	return r.Scores[i], true
}

// Table returns one row per vertex in ascending VertexID order
func (r *PageRankResult) Table() []PageRankScore {
	rows := make([]PageRankScore, len(r.Scores))
	for v, score := range r.Scores {
		rows[v] = PageRankScore{Vertex: r.store.ID(v), Score: score}
	}
	return rows
}

// TopPageRank ranks rows by score descending, ties by ascending VertexID
func TopPageRank(rows []PageRankScore, k int) []PageRankScore {
	return TopK(rows, k, func(a, b PageRankScore) int {
		return descThenAsc(a.Score, b.Score, a.Vertex, b.Vertex)
	})
}

// PageRank runs synchronous power iteration over the store.
//
// Every round reads only the previous round's scores:
//
//	new(v) = (1-d)/N + d*dangling/N + d * sum_{u in in(v)} score(u)/out(u)
//
// where dangling is the total score held by vertices without out-edges.
// Redistributing that mass keeps the scores summing to 1. Parallel edges
// count once per occurrence on both sides of the fraction.
//
// Each vertex sums its in-neighbors in a fixed order, so results are
// bit-identical for any worker count. The context is checked between rounds.
func PageRank(ctx context.Context, s *graph.Store, opts PageRankOptions) (*PageRankResult, error) {
	opts.Validate()

	n := s.NumVertices()
	if n == 0 {
		return nil, graph.ErrEmptyGraph
	}

	d := opts.DampingFactor
	inv := 1.0 / float64(n)

	scores := make([]float64, n)
	next := make([]float64, n)
	contrib := make([]float64, n)
	for v := range scores {
		scores[v] = inv
	}

	var dangling []int32
	for v := 0; v < n; v++ {
		if s.OutDegree(v) == 0 {
			dangling = append(dangling, int32(v))
		}
	}

	result := &PageRankResult{store: s}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		danglingMass := 0.0
		for _, v := range dangling {
			danglingMass += scores[v]
		}
		base := (1-d)*inv + d*danglingMass*inv

		parallelRange(n, opts.Workers, func(lo, hi int) {
			for u := lo; u < hi; u++ {
				if deg := s.OutDegree(u); deg > 0 {
					contrib[u] = scores[u] / float64(deg)
				} else {
					contrib[u] = 0
				}
			}
		})

		parallelRange(n, opts.Workers, func(lo, hi int) {
			for v := lo; v < hi; v++ {
				sum := 0.0
				for _, u := range s.In(v) {
					sum += contrib[u]
				}
				next[v] = base + d*sum
			}
		})

		result.Delta = floats.Distance(next, scores, 1)
		scores, next = next, scores
		result.Iterations = iter + 1

		if opts.Tolerance > 0 && result.Delta < opts.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Mass = floats.Sum(scores)
	if opts.ScaleToVertexCount {
		floats.Scale(float64(n), scores)
	}
	result.Scores = scores

	logrus.WithFields(logrus.Fields{
		"iterations": result.Iterations,
		"converged":  result.Converged,
		"delta":      result.Delta,
		"mass":       result.Mass,
		"dangling":   len(dangling),
	}).Debug("PageRank completed")

	return result, nil
}
