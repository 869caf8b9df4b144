package graph

import (
	"errors"
	"fmt"
)

// VertexID identifies a vertex in the input edge list
type VertexID int64

// Edge is a directed, unweighted link between two vertices
type Edge struct {
	Src VertexID
	Dst VertexID
}

// IsSelfLoop reports whether the edge starts and ends at the same vertex
func (e Edge) IsSelfLoop() bool {
	return e.Src == e.Dst
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.Src, e.Dst)
}

// ErrEmptyGraph is returned when no edge was accepted, so there is nothing to analyze
var ErrEmptyGraph = errors.New("graph has no vertices")

// ErrTooManyVertices is returned when the vertex space does not fit the compact index type
var ErrTooManyVertices = errors.New("graph exceeds the maximum number of vertices")
