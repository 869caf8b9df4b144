package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/ingest"
	"github.com/alvmarrod/graph-weaver/internal/storage"
	"github.com/dustin/go-humanize"
)

// Tracker holds and manages run metrics
type Tracker struct {
	mu   sync.Mutex
	data storage.Metrics
}

// NewTracker creates a new metrics tracker
func NewTracker(source string) *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime:      time.Now(),
			Source:         source,
			AnalysisTimeMs: make(map[string]int64),
		},
	}
}

// RecordIngest stores the counters of the ingest pass
func (t *Tracker) RecordIngest(stats ingest.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RecordsRead = stats.Records
	t.data.CommentLines = stats.Comments
	t.data.MalformedRecords = stats.Malformed
	t.data.SelfLoopsSkipped = stats.SelfLoops
	t.data.EdgesAccepted = stats.Accepted
}

// RecordGraph stores the size of the built graph and how long the build took
func (t *Tracker) RecordGraph(vertices, edges int, buildTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Vertices = vertices
	t.data.Edges = edges
	t.data.BuildTimeMs = buildTime.Milliseconds()
}

// RecordAnalysis stores the duration and outcome of one analysis
func (t *Tracker) RecordAnalysis(name string, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.AnalysisTimeMs[name] = duration.Milliseconds()
	if err != nil {
		if t.data.AnalysisErrors == nil {
			t.data.AnalysisErrors = make(map[string]string)
		}
		t.data.AnalysisErrors[name] = err.Error()
	}
}

// RecordPageRank stores how the PageRank iteration ended
func (t *Tracker) RecordPageRank(iterations int, converged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PageRankIters = iterations
	t.data.PageRankConverged = converged
}

// RecordComponents stores how label propagation ended
func (t *Tracker) RecordComponents(rounds int, converged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ComponentRounds = rounds
	t.data.ComponentsCapped = !converged
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.AnalysisTimeMs = make(map[string]int64, len(t.data.AnalysisTimeMs))
	for k, v := range t.data.AnalysisTimeMs {
		snapshot.AnalysisTimeMs[k] = v
	}
	if t.data.AnalysisErrors != nil {
		snapshot.AnalysisErrors = make(map[string]string, len(t.data.AnalysisErrors))
		for k, v := range t.data.AnalysisErrors {
			snapshot.AnalysisErrors[k] = v
		}
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress summarizes current metrics on one line
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Records: %s read, %s malformed | Graph: %s vertices, %s edges",
		humanize.Comma(t.data.RecordsRead),
		humanize.Comma(t.data.MalformedRecords),
		humanize.Comma(int64(t.data.Vertices)),
		humanize.Comma(int64(t.data.Edges)),
	)
}
