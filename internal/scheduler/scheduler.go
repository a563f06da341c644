package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"icloud-evict/internal/config"
	"icloud-evict/internal/database"
	"icloud-evict/internal/disk"
	"icloud-evict/internal/dispatch"
	"icloud-evict/internal/evict"
	"icloud-evict/internal/limiter"
	"icloud-evict/internal/metrics"
	"icloud-evict/internal/walk"
)

func RunOnce(ctx context.Context, cfg *config.Config, root string, dryRun bool, logger *log.Logger) (*dispatch.Summary, error) {
	return RunOnceWithDB(ctx, cfg, root, dryRun, logger, nil)
}

func RunOnceWithDB(ctx context.Context, cfg *config.Config, root string, dryRun bool, logger *log.Logger, db *database.EvictionDB) (*dispatch.Summary, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	evictor := evict.NewCommandEvictor(cfg.EvictCommand, cfg.EvictTimeout())
	return RunOnceWithEvictor(ctx, cfg, root, dryRun, logger, db, evictor)
}

// RunOnceWithEvictor runs one full enumerate-dispatch-report cycle with an
// explicit evictor. Tests substitute a fake here; production paths go through
// RunOnce / RunOnceWithDB.
func RunOnceWithEvictor(ctx context.Context, cfg *config.Config, root string, dryRun bool, logger *log.Logger, db *database.EvictionDB, evictor evict.Evictor) (*dispatch.Summary, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	start := time.Now()
	metrics.RecordRun()
	updateFreeSpaceMetric(root, logger)

	files, err := walk.Files(ctx, root, walk.Options{
		ExcludePatterns: cfg.ExcludePatterns,
		MinFileSize:     cfg.MinFileSizeBytes,
	}, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.NewDispatcher(evictor, cfg.Concurrency, dryRun, logger)
	dispatcher.SetDB(db)
	if cfg.ResourceLimits.MaxEvictionsPerSecond > 0 {
		dispatcher.SetPacer(limiter.NewPacer(cfg.ResourceLimits.MaxEvictionsPerSecond))
	}

	summary := dispatcher.Run(ctx, files)

	elapsed := time.Since(start).Seconds()
	metrics.RunDuration.Observe(elapsed)
	updateFreeSpaceMetric(root, logger)

	logger.Printf("cycle complete: attempted=%d evicted=%d failed=%d reclaimed=%s duration=%.3fs",
		summary.Attempted, summary.Succeeded, summary.Failed,
		disk.FormatBytes(summary.ReclaimedBytes), elapsed)
	return summary, nil
}

// Run re-runs eviction on the configured interval until ctx is cancelled.
// Per-run eviction failures are logged, not fatal: the next cycle retries the
// whole tree and already-evicted files are harmless no-ops.
func Run(ctx context.Context, cfg *config.Config, root string, dryRun bool, logger *log.Logger, db *database.EvictionDB) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if _, err := RunOnceWithDB(ctx, cfg, root, dryRun, logger, db); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := RunOnceWithDB(ctx, cfg, root, dryRun, logger, db); err != nil {
				logger.Printf("error running cycle: %v", err)
			}
		}
	}
}

// updateFreeSpaceMetric refreshes the free-space gauge for the run root
func updateFreeSpaceMetric(root string, logger *log.Logger) {
	freePercent, err := disk.GetFreePercent(root)
	if err != nil {
		logger.Printf("failed to get disk usage for %s: %v", root, err)
		return
	}
	metrics.UpdateFreeSpacePercent(root, freePercent)
}
