package graph

import (
	"iter"
	"math"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Builder accumulates edges and compiles them into an immutable Store.
// A Builder is not safe for concurrent use.
type Builder struct {
	src []VertexID
	dst []VertexID
}

// NewBuilder creates a builder; sizeHint pre-allocates room for that many edges
func NewBuilder(sizeHint int) *Builder {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Builder{
		src: make([]VertexID, 0, sizeHint),
		dst: make([]VertexID, 0, sizeHint),
	}
}

// AddEdge records one occurrence of an edge. Duplicates are kept.
func (b *Builder) AddEdge(e Edge) {
	b.src = append(b.src, e.Src)
	b.dst = append(b.dst, e.Dst)
}

// AddAll drains an edge sequence into the builder and returns how many edges it added
func (b *Builder) AddAll(edges iter.Seq[Edge]) int {
	added := 0
	for e := range edges {
		b.AddEdge(e)
		added++
	}
	return added
}

// Len returns the number of edges recorded so far
func (b *Builder) Len() int {
	return len(b.src)
}

// Build compiles the recorded edges into a Store.
// Returns ErrEmptyGraph if no edge was recorded.
func (b *Builder) Build() (*Store, error) {
	if len(b.src) == 0 {
		return nil, ErrEmptyGraph
	}

	startTime := time.Now()

	// Vertex space: every distinct endpoint, in ascending order so that
	// index order and VertexID order agree
	ids := make([]VertexID, 0, 2*len(b.src))
	ids = append(ids, b.src...)
	ids = append(ids, b.dst...)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	ids = slices.Clip(ids)

	if len(ids) > math.MaxInt32 {
		return nil, ErrTooManyVertices
	}

	index := make(map[VertexID]int32, len(ids))
	for i, id := range ids {
		index[id] = int32(i)
	}

	srcIdx := make([]int32, len(b.src))
	dstIdx := make([]int32, len(b.dst))
	for k := range b.src {
		srcIdx[k] = index[b.src[k]]
		dstIdx[k] = index[b.dst[k]]
	}

	outOff, outAdj := bucket(len(ids), srcIdx, dstIdx)
	inOff, inAdj := bucket(len(ids), dstIdx, srcIdx)

	s := &Store{
		ids:    ids,
		index:  index,
		outOff: outOff,
		outAdj: outAdj,
		inOff:  inOff,
		inAdj:  inAdj,
	}

	logrus.Infof("Graph built: %s vertices, %s edges in %v",
		humanize.Comma(int64(s.NumVertices())), humanize.Comma(int64(s.NumEdges())), time.Since(startTime))

	return s, nil
}

// bucket groups targets by key with a counting sort, producing CSR offsets
// and a flat adjacency array whose per-vertex segments are sorted.
func bucket(n int, keys, targets []int32) ([]int, []int32) {
	off := make([]int, n+1)
	for _, k := range keys {
		off[k+1]++
	}
	for v := 0; v < n; v++ {
		off[v+1] += off[v]
	}

	pos := make([]int, n)
	copy(pos, off[:n])

	adj := make([]int32, len(keys))
	for i, k := range keys {
		adj[pos[k]] = targets[i]
		pos[k]++
	}

	for v := 0; v < n; v++ {
		slices.Sort(adj[off[v]:off[v+1]])
	}
	return off, adj
}
