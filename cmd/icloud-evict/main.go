package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"icloud-evict/internal/config"
	"icloud-evict/internal/database"
	"icloud-evict/internal/disk"
	"icloud-evict/internal/dispatch"
	"icloud-evict/internal/exitcodes"
	"icloud-evict/internal/logging"
	"icloud-evict/internal/metrics"
	"icloud-evict/internal/safety"
	"icloud-evict/internal/scheduler"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <directory>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Evicts downloaded iCloud files under <directory>, freeing local disk space\nwhile keeping every file retrievable from the cloud.\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	var concurrency int
	var dryRun, watch bool
	configPath := flag.String("config", "", "Path to optional configuration file")
	flag.IntVar(&concurrency, "c", 0, "Maximum concurrent evictions (default: logical CPU count)")
	flag.IntVar(&concurrency, "concurrency", 0, "Maximum concurrent evictions (default: logical CPU count)")
	flag.BoolVar(&dryRun, "d", false, "Print the files that would be evicted without evicting")
	flag.BoolVar(&dryRun, "dry-run", false, "Print the files that would be evicted without evicting")
	flag.BoolVar(&watch, "watch", false, "Keep running, re-evicting on the configured interval")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(exitcodes.InvalidConfig)
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to load config: %v\n", err)
			os.Exit(exitcodes.InvalidConfig)
		}
	} else {
		cfg = config.Default()
	}
	if concurrency < 0 {
		fmt.Fprintln(os.Stderr, "ERROR: concurrency must be a positive integer")
		os.Exit(exitcodes.InvalidConfig)
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}

	// Initialize logger
	logger := logging.NewWithConfig(cfg)
	if dryRun {
		logger.Println("DRY RUN MODE: No files will be evicted")
	}

	// Validate the root before anything else touches the tree
	root, err := safety.NewValidator(nil).ValidateRoot(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Invalid root: %v\n", err)
		os.Exit(exitcodes.InvalidRoot)
	}

	// Initialize metrics (Prometheus)
	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
	}

	// Initialize database for eviction history
	var db *database.EvictionDB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening eviction history database: %s", cfg.DatabasePath)
		db, err = database.NewEvictionDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals: in-flight evictions finish, the rest are
	// skipped, and the summary for completed work still prints
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, finishing in-flight evictions...", sig)
		cancel()
	}()

	_, freeBefore, _, _ := disk.GetDiskUsage(root)

	if watch {
		err := scheduler.Run(ctx, cfg, root, dryRun, logger, db)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		os.Exit(exitcodes.Success)
	}

	summary, err := scheduler.RunOnceWithDB(ctx, cfg, root, dryRun, logger, db)
	if err != nil {
		logger.Printf("ERROR: Eviction run failed: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}

	_, freeAfter, _, _ := disk.GetDiskUsage(root)
	printSummary(summary, dryRun, freeBefore, freeAfter)

	if summary.Failed > 0 {
		os.Exit(exitcodes.EvictionFailed)
	}
	os.Exit(exitcodes.Success)
}

func printSummary(s *dispatch.Summary, dryRun bool, freeBefore, freeAfter int64) {
	if s.Attempted == 0 {
		fmt.Println("No files found")
		return
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Files attempted: %d (%s)\n", s.Attempted, disk.FormatBytes(s.AttemptedBytes))
	fmt.Printf("Files successful: %d (%s)\n", s.Succeeded, disk.FormatBytes(s.ReclaimedBytes))
	fmt.Printf("Files failed: %d (%s)\n", s.Failed, disk.FormatBytes(s.FailedBytes))

	if len(s.Failures) > 0 {
		fmt.Println("\nFailures:")
		for _, f := range s.Failures {
			fmt.Printf("  %s: %s\n", f.Path, f.Diagnostic)
		}
	}

	if dryRun {
		fmt.Println("Dry run complete.")
		return
	}
	if freeAfter > freeBefore {
		fmt.Printf("Free space: %s -> %s\n", disk.FormatBytes(freeBefore), disk.FormatBytes(freeAfter))
	}
	fmt.Println("Eviction complete.")
}
