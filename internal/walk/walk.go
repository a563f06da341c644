package walk

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Options controls which regular files the walker emits
type Options struct {
	ExcludePatterns []string // Glob patterns matched against base names
	MinFileSize     int64    // Files smaller than this are not worth a subprocess
}

// Files enumerates every regular file under root, streaming paths on the
// returned channel. Symlinks are never followed or emitted (cycle avoidance,
// a documented policy choice). Directories that cannot be read are logged and
// skipped; traversal continues into siblings. Only an invalid root is fatal,
// reported synchronously before the channel is live.
func Files(ctx context.Context, root string, opts Options, logger *log.Logger) (<-chan string, error) {
	if logger == nil {
		logger = log.Default()
	}
	wlog := &stdLogger{Logger: logger}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	out := make(chan string)
	go func() {
		defer close(out)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Permission denied, directory vanished mid-walk: skip and continue
				wlog.Warn("Skipping unreadable path", "path", path, "error", err)
				return nil
			}

			if ctx.Err() != nil {
				return filepath.SkipAll
			}

			// Regular files only: directories descend, symlinks and
			// everything else are ignored
			if !d.Type().IsRegular() {
				return nil
			}

			for _, pattern := range opts.ExcludePatterns {
				matched, err := filepath.Match(pattern, filepath.Base(path))
				if err != nil {
					wlog.Warn("Invalid exclude pattern", "pattern", pattern, "error", err)
					continue
				}
				if matched {
					return nil
				}
			}

			if opts.MinFileSize > 0 {
				fi, err := d.Info()
				if err != nil {
					// File vanished between listing and stat: let the
					// dispatcher surface it as a per-file failure
					wlog.Warn("Failed to stat file", "path", path, "error", err)
				} else if fi.Size() < opts.MinFileSize {
					return nil
				}
			}

			select {
			case out <- path:
			case <-ctx.Done():
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			wlog.Warn("Traversal aborted", "root", root, "error", err)
		}
	}()

	return out, nil
}
