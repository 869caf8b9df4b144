package analysis

import (
	"github.com/alvmarrod/graph-weaver/internal/graph"
)

// DegreeRecord holds the raw edge-multiplicity degrees of one vertex
type DegreeRecord struct {
	Vertex    graph.VertexID
	OutDegree int
	InDegree  int
}

// Degrees returns one record per vertex, in ascending VertexID order
func Degrees(s *graph.Store) []DegreeRecord {
	records := make([]DegreeRecord, s.NumVertices())
	for v := range records {
		records[v] = DegreeRecord{
			Vertex:    s.ID(v),
			OutDegree: s.OutDegree(v),
			InDegree:  s.InDegree(v),
		}
	}
	return records
}

// TopOutDegree ranks vertices with at least one outgoing edge by out-degree
func TopOutDegree(records []DegreeRecord, k int) []DegreeRecord {
	withOut := make([]DegreeRecord, 0, len(records))
	for _, r := range records {
		if r.OutDegree > 0 {
			withOut = append(withOut, r)
		}
	}
	return TopK(withOut, k, func(a, b DegreeRecord) int {
		return descThenAsc(a.OutDegree, b.OutDegree, a.Vertex, b.Vertex)
	})
}

// TopInDegree ranks vertices with at least one incoming edge by in-degree
func TopInDegree(records []DegreeRecord, k int) []DegreeRecord {
	withIn := make([]DegreeRecord, 0, len(records))
	for _, r := range records {
		if r.InDegree > 0 {
			withIn = append(withIn, r)
		}
	}
	return TopK(withIn, k, func(a, b DegreeRecord) int {
		return descThenAsc(a.InDegree, b.InDegree, a.Vertex, b.Vertex)
	})
}
