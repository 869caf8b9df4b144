package storage

import "time"

// EdgeRow is a distinct directed pair and how many times it occurred in the input
type EdgeRow struct {
	Src    int64
	Dst    int64
	Weight int
}

// Run describes one analysis run persisted alongside its results
type Run struct {
	RunID       int64
	Source      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Vertices    int
	Edges       int
	Termination string
}

// ResultRow is one ranked row of a result table
type ResultRow struct {
	Table string
	Rank  int
	Key   int64
	Value float64
}

// Metrics tracks run statistics for export on exit
type Metrics struct {
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	Source            string            `json:"source"`
	RecordsRead       int64             `json:"records_read"`
	CommentLines      int64             `json:"comment_lines"`
	MalformedRecords  int64             `json:"malformed_records"`
	SelfLoopsSkipped  int64             `json:"self_loops_skipped"`
	EdgesAccepted     int64             `json:"edges_accepted"`
	Vertices          int               `json:"vertices"`
	Edges             int               `json:"edges"`
	BuildTimeMs       int64             `json:"build_time_ms"`
	AnalysisTimeMs    map[string]int64  `json:"analysis_time_ms"`
	AnalysisErrors    map[string]string `json:"analysis_errors,omitempty"`
	PageRankIters     int               `json:"pagerank_iterations"`
	PageRankConverged bool              `json:"pagerank_converged"`
	ComponentRounds   int               `json:"component_rounds"`
	ComponentsCapped  bool              `json:"components_round_cap_reached"`
	TerminationReason string            `json:"termination_reason"`
}
