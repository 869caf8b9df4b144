package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alvmarrod/graph-weaver/internal/config"
	"github.com/alvmarrod/graph-weaver/internal/version"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Termination reasons written to the metrics file
const (
	reasonCompleted      = "completed"
	reasonSignal         = "signal"
	reasonEmptyGraph     = "empty_graph"
	reasonIngestFailed   = "ingest_failed"
	reasonAnalysisFailed = "analysis_failed"
)

// sharedFlags are accepted by every command that touches data
type sharedFlags struct {
	configPath string
	input      string
	dbPath     string
	logLevel   string
}

func (f *sharedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", config.DefaultPath, "Config file path (JSON, YAML or TOML)")
	cmd.Flags().StringVar(&f.input, "input", "", "Edge list path or http(s) URL")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// load reads the config file and applies flags set on the command line
func (f *sharedFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("input") {
		cfg.Input = f.input
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = f.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging applies the configured level and, when a log file is set,
// copies log output to a rotating file
func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	if cfg.LogFile == "" {
		return nil
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename: cfg.LogFile,
		MaxSize:  cfg.MaxLogSizeMB,
		MaxAge:   cfg.MaxLogAgeDays,
	}))
	logrus.Infof("Sending log messages to %s", cfg.LogFile)
	return nil
}

// signalContext cancels on SIGINT or SIGTERM. A second signal exits immediately.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logrus.Warnf("Received signal: %v, stopping...", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		sig := <-sigChan
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		os.Exit(1)
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func main() {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd := &cobra.Command{
		Use:           "graphweaver",
		Short:         "Batch analytics over directed edge lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphweaver v%s\n", version.Version)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(), newImportCmd(), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}
