package graph

import (
	"slices"
	"sync"
)

// Store is the compact adjacency representation of a graph snapshot.
//
// Vertices are addressed by a dense index in [0, NumVertices()). Index order
// matches ascending VertexID order, so the smallest index in any set of
// vertices is also the smallest VertexID. Forward and reverse adjacency are
// stored in CSR form; each vertex's segment is sorted ascending and keeps
// duplicate edges.
//
// A Store never changes after Build and is safe for concurrent readers.
// Slices returned by its accessors alias internal storage and must not be
// modified.
type Store struct {
	ids   []VertexID
	index map[VertexID]int32

	outOff []int
	outAdj []int32
	inOff  []int
	inAdj  []int32

	undirectedOnce sync.Once
	undOff         []int
	undAdj         []int32
}

// NumVertices returns the size of the vertex space
func (s *Store) NumVertices() int {
	return len(s.ids)
}

// NumEdges returns the number of accepted edges, duplicates included
func (s *Store) NumEdges() int {
	return len(s.outAdj)
}

// ID returns the VertexID at index i
func (s *Store) ID(i int) VertexID {
	return s.ids[i]
}

// IDs returns all vertex IDs in ascending order
func (s *Store) IDs() []VertexID {
	return s.ids
}

// Index returns the dense index of a VertexID
func (s *Store) Index(id VertexID) (int, bool) {
	i, ok := s.index[id]
	return int(i), ok
}

// Out returns the out-neighbors of vertex i, one entry per edge occurrence
func (s *Store) Out(i int) []int32 {
	return s.outAdj[s.outOff[i]:s.outOff[i+1]]
}

// In returns the in-neighbors of vertex i, one entry per edge occurrence
func (s *Store) In(i int) []int32 {
	return s.inAdj[s.inOff[i]:s.inOff[i+1]]
}

// OutDegree returns the number of edges leaving vertex i
func (s *Store) OutDegree(i int) int {
	return s.outOff[i+1] - s.outOff[i]
}

// InDegree returns the number of edges entering vertex i
func (s *Store) InDegree(i int) int {
	return s.inOff[i+1] - s.inOff[i]
}

// Neighbors returns the undirected neighbor set of vertex i: the union of
// in- and out-neighbors, sorted, without duplicates and without i itself.
// The undirected view is materialized on first use.
func (s *Store) Neighbors(i int) []int32 {
	s.undirectedOnce.Do(s.buildUndirected)
	return s.undAdj[s.undOff[i]:s.undOff[i+1]]
}

func (s *Store) buildUndirected() {
	n := s.NumVertices()
	off := make([]int, n+1)
	adj := make([]int32, 0, len(s.outAdj)+len(s.inAdj))

	for v := 0; v < n; v++ {
		adj = mergeNeighbors(adj, s.Out(v), s.In(v), int32(v))
		off[v+1] = len(adj)
	}

	s.undOff = off
	s.undAdj = slices.Clip(adj)
}

// mergeNeighbors appends the sorted union of a and b to dst, skipping
// duplicates and self.
func mergeNeighbors(dst, a, b []int32, self int32) []int32 {
	last := int32(-1)
	push := func(x int32) {
		if x != self && x != last {
			dst = append(dst, x)
			last = x
		}
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			push(a[i])
			i++
		} else {
			push(b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		push(a[i])
	}
	for ; j < len(b); j++ {
		push(b[j])
	}
	return dst
}
