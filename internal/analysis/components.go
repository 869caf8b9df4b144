package analysis

import (
	"context"
	"math/bits"
	"sync/atomic"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/sirupsen/logrus"
)

// ComponentsOptions configures weakly-connected component labelling
type ComponentsOptions struct {
	// MaxRounds caps the number of propagation rounds. Zero derives a cap
	// from the vertex count (see DefaultMaxRounds).
	MaxRounds int
	// Workers bounds per-round parallelism. Zero uses GOMAXPROCS.
	Workers int
}

// DefaultMaxRounds returns the automatic round cap for n vertices.
// Pointer jumping roughly halves label distances per round, so the cap
// grows with log2(n).
func DefaultMaxRounds(n int) int {
	return 64 + 8*bits.Len(uint(n))
}

// ComponentLabel assigns a vertex to the component named by its smallest VertexID
type ComponentLabel struct {
	Vertex graph.VertexID
	Label  graph.VertexID
}

// ComponentSize is one row of the components table
type ComponentSize struct {
	Label graph.VertexID
	Size  int
}

// ComponentsResult holds the final label of every vertex
type ComponentsResult struct {
	Rounds int
	// Converged is false when the round cap stopped propagation early; some
	// components may then be split across several labels.
	Converged bool

	labels []int32
	store  *graph.Store
}

// Label returns the component label of a vertex
func (r *ComponentsResult) Label(id graph.VertexID) (graph.VertexID, bool) {
	i, ok := r.store.Index(id)
	if !ok {
		return 0, false
	}
	return r.store.ID(int(r.labels[i])), true
}

// Labels returns one row per vertex in ascending VertexID order
func (r *ComponentsResult) Labels() []ComponentLabel {
	rows := make([]ComponentLabel, len(r.labels))
	for v, l := range r.labels {
		rows[v] = ComponentLabel{Vertex: r.store.ID(v), Label: r.store.ID(int(l))}
	}
	return rows
}

// Sizes counts vertices per label, in ascending label order
func (r *ComponentsResult) Sizes() []ComponentSize {
	counts := make([]int, len(r.labels))
	for _, l := range r.labels {
		counts[l]++
	}

	var sizes []ComponentSize
	for l, c := range counts {
		if c > 0 {
			sizes = append(sizes, ComponentSize{Label: r.store.ID(l), Size: c})
		}
	}
	return sizes
}

// Count returns the number of distinct labels
func (r *ComponentsResult) Count() int {
	return len(r.Sizes())
}

// TopComponents ranks components by size descending, ties by ascending label
func TopComponents(sizes []ComponentSize, k int) []ComponentSize {
	return TopK(sizes, k, func(a, b ComponentSize) int {
		return descThenAsc(a.Size, b.Size, a.Label, b.Label)
	})
}

// Components labels weakly-connected components by synchronous minimum-label
// propagation over the undirected view of the store.
//
// Labels are vertex indices; because index order follows VertexID order the
// minimum index is the minimum VertexID. Each round computes, from the
// previous round's labels only,
//
//	new(v) = min(label(v), label(label(v)), label(u) for u adjacent to v)
//
// The label(label(v)) term is a pointer jump: label(v) is a vertex of the
// same component, so its label is a valid candidate, and following it lets
// labels travel far more than one hop per round. Propagation stops at the
// first round without changes, or at the round cap.
func Components(ctx context.Context, s *graph.Store, opts ComponentsOptions) (*ComponentsResult, error) {
	n := s.NumVertices()
	if n == 0 {
		return nil, graph.ErrEmptyGraph
	}

	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds(n)
	}

	labels := make([]int32, n)
	next := make([]int32, n)
	for v := range labels {
		labels[v] = int32(v)
	}

	result := &ComponentsResult{store: s}

	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var changed atomic.Bool
		parallelRange(n, opts.Workers, func(lo, hi int) {
			dirty := false
			for v := lo; v < hi; v++ {
				m := labels[v]
				if jump := labels[m]; jump < m {
					m = jump
				}
				for _, u := range s.Neighbors(v) {
					if l := labels[u]; l < m {
						m = l
					}
				}
				next[v] = m
				if m != labels[v] {
					dirty = true
				}
			}
			if dirty {
				changed.Store(true)
			}
		})

		labels, next = next, labels
		result.Rounds = round + 1

		if !changed.Load() {
			result.Converged = true
			break
		}
	}

	result.labels = labels

	if !result.Converged {
		logrus.Warnf("Component labelling hit the round cap (%d) before converging; components may be over-split", maxRounds)
	} else {
		logrus.Debugf("Component labelling converged after %d rounds", result.Rounds)
	}

	return result, nil
}
