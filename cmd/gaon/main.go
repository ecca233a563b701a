package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gaonsync "github.com/gaon-data/gaon/internal/sync"
	"github.com/gaon-data/gaon/pkg/config"
	"github.com/gaon-data/gaon/pkg/connector/registry"
	"github.com/gaon-data/gaon/pkg/logger"
	"github.com/gaon-data/gaon/pkg/storage"

	// Import all source connectors to register them
	_ "github.com/gaon-data/gaon/pkg/connector/sources/saasapi"
	_ "github.com/gaon-data/gaon/pkg/connector/sources/sqldesktop"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configFile string
	var verbose bool

	root := &cobra.Command{
		Use:   "gaon",
		Short: "Gaon - configuration-driven data integration",
		Long: `Gaon extracts data from configured sources (desktop SQL databases,
paginated SaaS APIs) and lands it as newline-delimited JSON in cloud
object storage. One config file declares the client, the bucket, and
the sources; one command syncs them all.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if verbose {
				level = "debug"
			}
			return logger.Init(logger.Config{Level: level})
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigPath(), "path to the config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Gaon v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Sources command to show what the config declares
	root.AddCommand(&cobra.Command{
		Use:   "sources",
		Short: "List the sources declared in the config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			fmt.Printf("Client: %s\n", cfg.Client)
			fmt.Println("Sources:")
			for i := range cfg.Sources {
				fmt.Printf("  - %s (%s)\n", cfg.Sources[i].Name, cfg.Sources[i].SourceType)
			}
			fmt.Println("\nRegistered connector types:")
			for _, t := range registry.ListSources() {
				fmt.Printf("  - %s\n", t)
			}
			return nil
		},
	})

	// Main integrate command
	var sourceName string

	integrateCmd := &cobra.Command{
		Use:   "integrate",
		Short: "Sync configured sources to object storage",
		Long: `Sync every source declared in the config, or a single one selected
with --source, into the configured bucket. Sources run in declaration
order; a failing source is reported and does not stop the others.

Example:
  gaon integrate --config config.json
  gaon integrate --source crm_contacts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegrate(configFile, sourceName, verbose)
		},
	}
	integrateCmd.Flags().StringVarP(&sourceName, "source", "s", "", "sync only the named source")
	root.AddCommand(integrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if path := os.Getenv("GAON_CONFIG"); path != "" {
		return path
	}
	return "config.json"
}

func runIntegrate(configFile, sourceName string, verbose bool) error {
	log := logger.Get()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Interrupt stops the run; in-flight progress is reported below.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := storage.NewSink(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn("failed to close storage sink", zap.Error(err))
		}
	}()

	selector := gaonsync.All()
	if sourceName != "" {
		selector = gaonsync.Named(sourceName)
	}

	log.Info("starting sync",
		zap.String("client", cfg.Client),
		zap.String("bucket", cfg.Storage.BucketName),
		zap.Int("sources", len(cfg.Sources)))

	orchestrator := gaonsync.NewOrchestrator(cfg, sink)
	results, err := orchestrator.Run(ctx, selector)
	if err != nil {
		return err
	}

	printResults(results, verbose)

	if n := countNotSuccessful(results); n > 0 {
		return fmt.Errorf("%d of %d sources did not complete", n, len(results))
	}
	return nil
}

func printResults(results []gaonsync.Result, verbose bool) {
	fmt.Println("\nSync results:")
	for _, r := range results {
		fmt.Printf("  %-24s %s\n", r.Source, r.Status)
		if !verbose {
			continue
		}
		fmt.Printf("    records: %d  batches: %d\n", r.RecordsWritten, r.BatchesWritten)
		if r.Err != nil {
			fmt.Printf("    error: %v\n", r.Err)
		}
		for _, key := range r.StorageKeys {
			fmt.Printf("    wrote %s\n", key)
		}
	}
}

func countNotSuccessful(results []gaonsync.Result) int {
	n := 0
	for _, r := range results {
		if r.Status != gaonsync.StatusSuccess {
			n++
		}
	}
	return n
}
