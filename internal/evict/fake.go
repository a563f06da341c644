package evict

import (
	"context"
	"sync"
)

// FakeEvictor implements Evictor for testing
// Records every call without spawning subprocesses; safe for concurrent use
type FakeEvictor struct {
	mu       sync.Mutex
	calls    []string
	Failures map[string]string // path -> diagnostic for paths that should fail
}

func (f *FakeEvictor) Evict(_ context.Context, path string) Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if diag, ok := f.Failures[path]; ok {
		return Outcome{Path: path, Diagnostic: diag}
	}
	return Outcome{Path: path, OK: true}
}

// Calls returns a copy of the recorded invocation paths
func (f *FakeEvictor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
