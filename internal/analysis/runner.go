package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("graphweaver.analysis")

// Analysis names, used as keys in Report.Durations and Report.Errors
const (
	AnalysisDegrees    = "degrees"
	AnalysisPageRank   = "pagerank"
	AnalysisComponents = "components"
	AnalysisTriangles  = "triangles"
)

// Options configures a full analysis run
type Options struct {
	TopK       int
	Workers    int
	PageRank   PageRankOptions
	Components ComponentsOptions
}

// DefaultOptions returns the reference configuration
func DefaultOptions() Options {
	return Options{
		TopK:     DefaultTopK,
		PageRank: DefaultPageRankOptions(),
	}
}

// PageRankSummary describes how the PageRank iteration ended
type PageRankSummary struct {
	Iterations int
	Converged  bool
	Delta      float64
	Mass       float64
}

// ComponentsSummary describes how label propagation ended
type ComponentsSummary struct {
	Rounds    int
	Converged bool
	Count     int
}

// Report collects the ranked tables of one run. A table is nil when its
// analysis failed; the failure is in Errors.
type Report struct {
	Vertices int
	Edges    int

	OutDegree  []DegreeRecord
	InDegree   []DegreeRecord
	PageRank   []PageRankScore
	Components []ComponentSize
	Triangles  []TriangleCount

	PageRankStats   PageRankSummary
	ComponentsStats ComponentsSummary
	TriangleTotal   int64

	Durations map[string]time.Duration
	Errors    map[string]error

	mu sync.Mutex
}

// Err joins the errors of all failed analyses
func (r *Report) Err() error {
	var errs []error
	for _, name := range []string{AnalysisDegrees, AnalysisPageRank, AnalysisComponents, AnalysisTriangles} {
		if err, ok := r.Errors[name]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Report) record(name string, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Durations[name] = d
	if err != nil {
		r.Errors[name] = err
	}
}

// Run executes the four analyses concurrently over the same read-only store.
// A failing analysis never cancels the others.
func Run(ctx context.Context, s *graph.Store, opts Options) *Report {
	ctx, span := tracer.Start(ctx, "analysis.Run",
		trace.WithAttributes(
			attribute.Int("vertex_count", s.NumVertices()),
			attribute.Int("edge_count", s.NumEdges()),
		),
	)
	defer span.End()

	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.PageRank.Workers == 0 {
		opts.PageRank.Workers = opts.Workers
	}
	if opts.Components.Workers == 0 {
		opts.Components.Workers = opts.Workers
	}

	rep := &Report{
		Vertices:  s.NumVertices(),
		Edges:     s.NumEdges(),
		Durations: make(map[string]time.Duration),
		Errors:    make(map[string]error),
	}

	var g errgroup.Group

	g.Go(func() error {
		rep.track(ctx, AnalysisDegrees, func(context.Context) error {
			records := Degrees(s)
			rep.OutDegree = TopOutDegree(records, opts.TopK)
			rep.InDegree = TopInDegree(records, opts.TopK)
			return nil
		})
		return nil
	})

	g.Go(func() error {
		rep.track(ctx, AnalysisPageRank, func(ctx context.Context) error {
			res, err := PageRank(ctx, s, opts.PageRank)
			if err != nil {
				return err
			}
			rep.PageRank = TopPageRank(res.Table(), opts.TopK)
			rep.PageRankStats = PageRankSummary{
				Iterations: res.Iterations,
				Converged:  res.Converged,
				Delta:      res.Delta,
				Mass:       res.Mass,
			}
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("iterations", res.Iterations),
				attribute.Bool("converged", res.Converged),
			)
			return nil
		})
		return nil
	})

	g.Go(func() error {
		rep.track(ctx, AnalysisComponents, func(ctx context.Context) error {
			res, err := Components(ctx, s, opts.Components)
			if err != nil {
				return err
			}
			sizes := res.Sizes()
			rep.Components = TopComponents(sizes, opts.TopK)
			rep.ComponentsStats = ComponentsSummary{
				Rounds:    res.Rounds,
				Converged: res.Converged,
				Count:     len(sizes),
			}
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("rounds", res.Rounds),
				attribute.Bool("converged", res.Converged),
			)
			return nil
		})
		return nil
	})

	g.Go(func() error {
		rep.track(ctx, AnalysisTriangles, func(ctx context.Context) error {
			res, err := Triangles(ctx, s, TriangleOptions{Workers: opts.Workers})
			if err != nil {
				return err
			}
			rep.Triangles = TopTriangles(res.Table(), opts.TopK)
			rep.TriangleTotal = res.Total
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("triangles", res.Total))
			return nil
		})
		return nil
	})

	_ = g.Wait()

	if err := rep.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rep
}

// track runs one analysis inside its own span, timing it and recording its error
func (r *Report) track(ctx context.Context, name string, fn func(context.Context) error) {
	ctx, span := tracer.Start(ctx, "analysis."+name)
	defer span.End()

	startTime := time.Now()
	err := fn(ctx)
	elapsed := time.Since(startTime)
	r.record(name, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logrus.Errorf("Analysis %s failed after %v: %v", name, elapsed, err)
		return
	}
	logrus.Infof("Analysis %s finished in %v", name, elapsed)
}
