package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/analysis"
	"github.com/alvmarrod/graph-weaver/internal/config"
	"github.com/alvmarrod/graph-weaver/internal/graph"
	"github.com/alvmarrod/graph-weaver/internal/ingest"
	"github.com/alvmarrod/graph-weaver/internal/metrics"
	"github.com/alvmarrod/graph-weaver/internal/report"
	"github.com/alvmarrod/graph-weaver/internal/storage"
	"github.com/alvmarrod/graph-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("graphweaver")

type analyzeFlags struct {
	sharedFlags
	outputDir   string
	metricsPath string
	topK        int
	workers     int
	damping     float64
	iterations  int
	fromDB      bool
	save        bool
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Load an edge list and compute degree, PageRank, component and triangle rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			f.override(cmd, cfg)
			return runAnalyze(cmd.Context(), cfg, f.fromDB, f.save)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory for the CSV result tables")
	cmd.Flags().StringVar(&f.metricsPath, "metrics", "", "Metrics JSON output path")
	cmd.Flags().IntVar(&f.topK, "top-k", analysis.DefaultTopK, "Rows per result table")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel workers per analysis (0 = all CPUs)")
	cmd.Flags().Float64Var(&f.damping, "damping", analysis.DefaultDampingFactor, "PageRank damping factor")
	cmd.Flags().IntVar(&f.iterations, "iterations", analysis.DefaultMaxIterations, "PageRank iterations")
	cmd.Flags().BoolVar(&f.fromDB, "from-db", false, "Read edges from the SQLite edge store instead of --input")
	cmd.Flags().BoolVar(&f.save, "save", false, "Persist the result tables to the SQLite database")

	return cmd
}

func (f *analyzeFlags) override(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("metrics") {
		cfg.MetricsPath = f.metricsPath
	}
	if cmd.Flags().Changed("top-k") && f.topK > 0 {
		cfg.TopK = f.topK
	}
	if cmd.Flags().Changed("workers") && f.workers >= 0 {
		cfg.Workers = f.workers
	}
	if cmd.Flags().Changed("damping") {
		cfg.PageRank.Damping = f.damping
	}
	if cmd.Flags().Changed("iterations") && f.iterations > 0 {
		cfg.PageRank.Iterations = f.iterations
	}
}

func runAnalyze(parent context.Context, cfg *config.Config, fromDB, save bool) error {
	ctx, stop := signalContext(parent)
	defer stop()

	startedAt := time.Now()
	source := cfg.Input
	if fromDB {
		source = "sqlite:" + cfg.DBPath
	}

	logrus.Infof("Graph Weaver v%s analyzing %s", version.Version, source)
	logrus.Infof("Configuration: top_k=%d, workers=%d, damping=%.2f, iterations=%d",
		cfg.TopK, cfg.EffectiveWorkers(), cfg.PageRank.Damping, cfg.PageRank.Iterations)

	tracker := metrics.NewTracker(source)

	finish := func(reason string, err error) error {
		logrus.Info("Final stats: " + tracker.LogProgress())
		if werr := tracker.WriteToFile(cfg.MetricsPath, reason); werr != nil {
			logrus.Errorf("Failed to write metrics: %v", werr)
		} else {
			logrus.Infof("Metrics written to %s (termination: %s)", cfg.MetricsPath, reason)
		}
		return err
	}

	var db *storage.Storage
	if fromDB || save {
		var err error
		db, err = storage.NewStorage(cfg.DBPath)
		if err != nil {
			return finish(reasonIngestFailed, fmt.Errorf("failed to initialize storage: %w", err))
		}
		defer db.Close()
		logrus.Infof("Database initialized: %s", cfg.DBPath)
	}

	// Step 1: ingest and build the graph
	buildStart := time.Now()
	var (
		store *graph.Store
		err   error
	)
	if fromDB {
		store, err = buildFromStorage(ctx, db, tracker)
	} else {
		store, err = buildFromSource(ctx, cfg, tracker)
	}
	switch {
	case ctx.Err() != nil:
		return finish(reasonSignal, ctx.Err())
	case errors.Is(err, graph.ErrEmptyGraph):
		logrus.Warnf("No edges were accepted from %s", source)
		return finish(reasonEmptyGraph, err)
	case err != nil:
		return finish(reasonIngestFailed, err)
	}
	tracker.RecordGraph(store.NumVertices(), store.NumEdges(), time.Since(buildStart))

	// Step 2: run the analyses
	rep := analysis.Run(ctx, store, cfg.AnalysisOptions())
	for name, d := range rep.Durations {
		tracker.RecordAnalysis(name, d, rep.Errors[name])
	}
	if _, failed := rep.Errors[analysis.AnalysisPageRank]; !failed {
		tracker.RecordPageRank(rep.PageRankStats.Iterations, rep.PageRankStats.Converged)
	}
	if _, failed := rep.Errors[analysis.AnalysisComponents]; !failed {
		tracker.RecordComponents(rep.ComponentsStats.Rounds, rep.ComponentsStats.Converged)
	}
	if ctx.Err() != nil {
		return finish(reasonSignal, ctx.Err())
	}

	// Step 3: output
	tables := report.Tables(rep, cfg.TopK)
	if err := report.Print(os.Stdout, rep, tables); err != nil {
		logrus.Errorf("Failed to print results: %v", err)
	}
	if err := report.WriteCSV(cfg.OutputDir, tables); err != nil {
		return finish(reasonAnalysisFailed, err)
	}
	logrus.Infof("Result tables written to %s", cfg.OutputDir)

	reason := reasonCompleted
	runErr := rep.Err()
	if runErr != nil {
		reason = reasonAnalysisFailed
	}

	if save {
		run := storage.Run{
			Source:      source,
			StartedAt:   startedAt,
			FinishedAt:  time.Now(),
			Vertices:    rep.Vertices,
			Edges:       rep.Edges,
			Termination: reason,
		}
		runID, err := db.SaveRun(ctx, run, report.ResultRows(tables))
		if err != nil {
			return finish(reason, errors.Join(runErr, err))
		}
		logrus.Infof("Saved results as run %d", runID)
	}

	return finish(reason, runErr)
}

// buildFromSource streams the configured input through the ingest reader into a graph
func buildFromSource(ctx context.Context, cfg *config.Config, tracker *metrics.Tracker) (*graph.Store, error) {
	ctx, span := tracer.Start(ctx, "graph.Build")
	defer span.End()

	src := ingest.NewSource(cfg.Input, cfg.RequestTimeout())
	reader := ingest.NewReader(src, cfg.IngestOptions())

	b := graph.NewBuilder(0)
	b.AddAll(reader.Edges(ctx))
	tracker.RecordIngest(reader.Stats())

	stats := reader.Stats()
	logrus.WithFields(logrus.Fields{
		"records":   stats.Records,
		"comments":  stats.Comments,
		"malformed": stats.Malformed,
		"accepted":  stats.Accepted,
	}).Info("Ingest finished")

	if err := reader.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	store, err := b.Build()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vertex_count", store.NumVertices()),
		attribute.Int("edge_count", store.NumEdges()),
	)
	return store, nil
}

// buildFromStorage loads the SQLite edge store into a graph
func buildFromStorage(ctx context.Context, db *storage.Storage, tracker *metrics.Tracker) (*graph.Store, error) {
	ctx, span := tracer.Start(ctx, "graph.BuildFromStorage")
	defer span.End()

	_, total, err := db.EdgeCounts(ctx)
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(total)
	if err := db.EachEdge(ctx, func(e graph.Edge) error {
		b.AddEdge(e)
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	tracker.RecordIngest(ingest.Stats{Records: int64(b.Len()), Accepted: int64(b.Len())})

	store, err := b.Build()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vertex_count", store.NumVertices()),
		attribute.Int("edge_count", store.NumEdges()),
	)
	return store, nil
}
