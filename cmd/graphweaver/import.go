package main

import (
	"fmt"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/ingest"
	"github.com/alvmarrod/graph-weaver/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		f     sharedFlags
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load an edge list into the SQLite edge store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			db, err := storage.NewStorage(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer db.Close()

			if reset {
				logrus.Infof("Removing existing edges from %s", cfg.DBPath)
				if err := db.ResetEdges(ctx); err != nil {
					return err
				}
			}

			startTime := time.Now()
			reader := ingest.NewReader(ingest.NewSource(cfg.Input, cfg.RequestTimeout()), cfg.IngestOptions())
			written, err := db.ImportEdges(ctx, reader.Edges(ctx))
			if err != nil {
				return err
			}
			if err := reader.Err(); err != nil {
				return err
			}

			pairs, total, err := db.EdgeCounts(ctx)
			if err != nil {
				return err
			}

			stats := reader.Stats()
			logrus.Infof("Imported %s edges from %s in %v (%s malformed records skipped)",
				humanize.Comma(int64(written)), cfg.Input, time.Since(startTime), humanize.Comma(stats.Malformed))
			logrus.Infof("Edge store now holds %s distinct pairs, %s edges",
				humanize.Comma(int64(pairs)), humanize.Comma(int64(total)))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&reset, "reset", false, "Remove stored edges before importing")

	return cmd
}
