package evict

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxDiagnosticBytes caps the stderr captured from an eviction subprocess
const maxDiagnosticBytes = 64 * 1024

// Outcome is the result of one eviction attempt on one file
type Outcome struct {
	Path       string
	OK         bool
	Diagnostic string // Captured stderr, verbatim; empty on success
}

// Evictor abstracts the external eviction utility
// Enables mocking in tests to prove dry-run never spawns a subprocess
type Evictor interface {
	Evict(ctx context.Context, path string) Outcome
}

// CommandEvictor invokes the configured eviction command as a subprocess,
// appending the file path as the final argument. Success is exit status zero.
// One attempt per file; retry policy belongs to a higher layer and is
// deliberately absent here.
type CommandEvictor struct {
	Command []string      // e.g. ["brctl", "evict"]
	Timeout time.Duration // 0 = wait indefinitely
}

// NewCommandEvictor creates an evictor for the given command prefix
func NewCommandEvictor(command []string, timeout time.Duration) *CommandEvictor {
	return &CommandEvictor{Command: command, Timeout: timeout}
}

func (e *CommandEvictor) Evict(ctx context.Context, path string) Outcome {
	if len(e.Command) == 0 {
		return Outcome{Path: path, Diagnostic: "no eviction command configured"}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &capWriter{buf: &stderr, limit: maxDiagnosticBytes}

	err := cmd.Run()
	if err == nil {
		return Outcome{Path: path, OK: true}
	}

	diag := strings.TrimSpace(stderr.String())
	if ctx.Err() == context.DeadlineExceeded {
		diag = fmt.Sprintf("timed out after %s", e.Timeout)
	} else if diag == "" {
		// Spawn failure or a command that exits silently
		diag = err.Error()
	}

	return Outcome{Path: path, Diagnostic: diag}
}

// capWriter discards writes past the limit so a chatty subprocess cannot
// balloon memory
type capWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
