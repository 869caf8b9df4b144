package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	maxLineBytes     = 1 << 20
	progressInterval = 1_000_000
)

// Stats counts what happened to the records of one pass over a source
type Stats struct {
	Records   int64 `json:"records"`
	Comments  int64 `json:"comments"`
	Malformed int64 `json:"malformed"`
	SelfLoops int64 `json:"self_loops_skipped"`
	Accepted  int64 `json:"accepted"`
}

// Reader turns a Source into a lazy edge sequence.
// Each call to Edges starts a fresh pass, so the sequence is restartable.
type Reader struct {
	src   Source
	opts  Options
	stats Stats
	err   error
}

// NewReader creates a reader over src
func NewReader(src Source, opts Options) *Reader {
	return &Reader{src: src, opts: opts}
}

// Edges returns the accepted edges of the source. Malformed records are
// counted and skipped. I/O failures stop the sequence and are reported by Err.
func (r *Reader) Edges(ctx context.Context) iter.Seq[graph.Edge] {
	return func(yield func(graph.Edge) bool) {
		r.stats = Stats{}
		r.err = nil

		rc, err := r.src.Open(ctx)
		if err != nil {
			r.err = fmt.Errorf("failed to open %s: %w", r.src, err)
			return
		}
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		for scanner.Scan() {
			if r.stats.Records%progressInterval == 0 && r.stats.Records > 0 {
				if err := ctx.Err(); err != nil {
					r.err = err
					return
				}
				logrus.Infof("Ingest progress: %s records, %s edges accepted",
					humanize.Comma(r.stats.Records), humanize.Comma(r.stats.Accepted))
			}
			r.stats.Records++

			edge, err := ParseLine(scanner.Text(), r.opts)
			switch {
			case errors.Is(err, ErrComment):
				r.stats.Comments++
				continue
			case err != nil:
				r.stats.Malformed++
				logrus.Debugf("Skipping malformed record %d: %q", r.stats.Records, scanner.Text())
				continue
			}

			if r.opts.SkipSelfLoops && edge.IsSelfLoop() {
				r.stats.SelfLoops++
				continue
			}

			r.stats.Accepted++
			if !yield(edge) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			r.err = fmt.Errorf("failed to read %s: %w", r.src, err)
		}
	}
}

// Stats returns the counters of the most recent pass
func (r *Reader) Stats() Stats {
	return r.stats
}

// Err returns the error that ended the most recent pass, if any
func (r *Reader) Err() error {
	return r.err
}
