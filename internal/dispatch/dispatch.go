package dispatch

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"icloud-evict/internal/database"
	"icloud-evict/internal/disk"
	"icloud-evict/internal/evict"
	"icloud-evict/internal/limiter"
	"icloud-evict/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger interface for structured logging in dispatch
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Metrics interface for dispatch metrics
type Metrics interface {
	FilesEvictedTotal() prometheus.Counter
	BytesReclaimedTotal() prometheus.Counter
	ErrorsTotal() prometheus.Counter
}

// dispatchMetrics wraps global metrics to implement Metrics interface
type dispatchMetrics struct{}

func (m *dispatchMetrics) FilesEvictedTotal() prometheus.Counter {
	return metrics.FilesEvictedTotal
}

func (m *dispatchMetrics) BytesReclaimedTotal() prometheus.Counter {
	return metrics.BytesReclaimedTotal
}

func (m *dispatchMetrics) ErrorsTotal() prometheus.Counter {
	return metrics.ErrorsTotal
}

// Summary aggregates per-file outcomes across all workers.
// Counters are mutex-guarded while workers run; read it after Run returns.
type Summary struct {
	mu sync.Mutex

	Attempted int
	Succeeded int
	Failed    int

	AttemptedBytes int64
	ReclaimedBytes int64
	FailedBytes    int64

	Failures []evict.Outcome
}

func (s *Summary) addSuccess(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attempted++
	s.Succeeded++
	s.AttemptedBytes += size
	s.ReclaimedBytes += size
}

func (s *Summary) addFailure(out evict.Outcome, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attempted++
	s.Failed++
	s.AttemptedBytes += size
	s.FailedBytes += size
	s.Failures = append(s.Failures, out)
}

// Dispatcher fans eviction invocations out over a bounded worker pool
type Dispatcher struct {
	evictor     evict.Evictor
	concurrency int
	dryRun      bool
	logger      Logger
	metrics     Metrics
	pacer       *limiter.Pacer
	db          *database.EvictionDB
}

// NewDispatcher creates a dispatcher with at most concurrency invocations in
// flight at any time
func NewDispatcher(evictor evict.Evictor, concurrency int, dryRun bool, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		evictor:     evictor,
		concurrency: concurrency,
		dryRun:      dryRun,
		logger:      &stdLogger{Logger: logger},
		metrics:     &dispatchMetrics{},
	}
}

// SetPacer installs an invocation rate limit
func (d *Dispatcher) SetPacer(p *limiter.Pacer) {
	d.pacer = p
}

// SetDB installs the eviction history database
func (d *Dispatcher) SetDB(db *database.EvictionDB) {
	d.db = db
}

// SetMetrics overrides the metrics sink (tests)
func (d *Dispatcher) SetMetrics(m Metrics) {
	d.metrics = m
}

// Run consumes the file channel until it closes or ctx is cancelled, and
// returns the completed summary. Every consumed path yields exactly one
// outcome; in dry-run mode the evictor is never invoked and every path gets a
// synthetic success.
func (d *Dispatcher) Run(ctx context.Context, files <-chan string) *Summary {
	summary := &Summary{}

	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx, files, summary)
		}()
	}
	wg.Wait()

	return summary
}

func (d *Dispatcher) worker(ctx context.Context, files <-chan string, summary *Summary) {
	for path := range files {
		if ctx.Err() != nil {
			// Cancelled: stop pulling, leave the rest unprocessed
			return
		}
		d.processFile(ctx, path, summary)
	}
}

func (d *Dispatcher) processFile(ctx context.Context, path string, summary *Summary) {
	// Size before eviction; afterwards the placeholder reports the remote size
	var size int64
	info, err := os.Stat(path)
	if err != nil {
		// Vanished between enumeration and invocation: a per-file failure,
		// not special-cased further
		out := evict.Outcome{Path: path, Diagnostic: fmt.Sprintf("stat: %v", err)}
		d.logger.Error("Failed to stat file", "path", path, "error", err)
		summary.addFailure(out, 0)
		d.metrics.ErrorsTotal().Inc()
		d.record(database.ActionError, path, 0, 0, out.Diagnostic)
		return
	}
	size = info.Size()

	if d.dryRun {
		d.logger.Info("[DRY RUN] Would evict", "path", path, "size", disk.FormatBytes(size))
		summary.addSuccess(size)
		d.record(database.ActionDryRun, path, size, 0, "")
		return
	}

	if d.pacer != nil {
		if err := d.pacer.Wait(ctx); err != nil {
			return
		}
	}

	start := time.Now()
	out := d.evictor.Evict(ctx, path)
	elapsed := time.Since(start)

	if out.OK {
		d.logger.Info("Evicted", "path", path, "size", disk.FormatBytes(size))
		summary.addSuccess(size)
		d.metrics.FilesEvictedTotal().Inc()
		d.metrics.BytesReclaimedTotal().Add(float64(size))
		d.record(database.ActionEvict, path, size, elapsed, "")
		return
	}

	d.logger.Error("Failed to evict", "path", path, "size", disk.FormatBytes(size), "diagnostic", out.Diagnostic)
	summary.addFailure(out, size)
	d.metrics.ErrorsTotal().Inc()
	d.record(database.ActionError, path, size, elapsed, out.Diagnostic)
}

// record writes history if a database is configured; history failures never
// fail the run
func (d *Dispatcher) record(action, path string, size int64, duration time.Duration, errMsg string) {
	if d.db == nil {
		return
	}
	if err := d.db.RecordEviction(action, path, size, duration, errMsg); err != nil {
		d.logger.Error("Failed to record history", "path", path, "error", err)
	}
}
