package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"icloud-evict/internal/config"
	"icloud-evict/internal/database"
	"icloud-evict/internal/evict"
	"icloud-evict/internal/metrics"
	"icloud-evict/internal/scheduler"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

// buildTree creates the canonical mixed-result tree:
// a.txt evicts, b.txt fails with "not a cloud file", sub/c.txt evicts
func buildTree(t *testing.T) (root string, a, b, c string) {
	t.Helper()
	root = t.TempDir()
	a = filepath.Join(root, "a.txt")
	b = filepath.Join(root, "b.txt")
	c = filepath.Join(root, "sub", "c.txt")

	for _, p := range []string{a, b, c} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("content"), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root, a, b, c
}

func TestEndToEndMixedResults(t *testing.T) {
	root, _, b, _ := buildTree(t)

	fake := &evict.FakeEvictor{Failures: map[string]string{b: "not a cloud file"}}
	cfg := config.Default()

	summary, err := scheduler.RunOnceWithEvictor(context.Background(), cfg, root, false, nil, nil, fake)
	if err != nil {
		t.Fatalf("RunOnceWithEvictor failed: %v", err)
	}

	if summary.Attempted != 3 {
		t.Errorf("attempted = %d, want 3", summary.Attempted)
	}
	if summary.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", summary.Succeeded)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure outcome, got %d", len(summary.Failures))
	}
	if summary.Failures[0].Path != b || summary.Failures[0].Diagnostic != "not a cloud file" {
		t.Errorf("unexpected failure outcome: %+v", summary.Failures[0])
	}

	// All three files were offered to the evictor
	if calls := fake.Calls(); len(calls) != 3 {
		t.Errorf("expected 3 invocations, got %v", calls)
	}
}

func TestEndToEndDryRun(t *testing.T) {
	root, _, b, _ := buildTree(t)

	// Even scripted failures must never be reached in dry-run mode
	fake := &evict.FakeEvictor{Failures: map[string]string{b: "not a cloud file"}}
	cfg := config.Default()

	summary, err := scheduler.RunOnceWithEvictor(context.Background(), cfg, root, true, nil, nil, fake)
	if err != nil {
		t.Fatalf("RunOnceWithEvictor failed: %v", err)
	}

	if calls := fake.Calls(); len(calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 invocations, got %v", calls)
	}
	if summary.Succeeded != 3 || summary.Failed != 0 {
		t.Errorf("expected 3 synthetic successes, got %+v", summary)
	}
}

func TestInvalidRootFailsBeforeDispatch(t *testing.T) {
	fake := &evict.FakeEvictor{}
	cfg := config.Default()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := scheduler.RunOnceWithEvictor(context.Background(), cfg, missing, false, nil, nil, fake)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if calls := fake.Calls(); len(calls) != 0 {
		t.Errorf("expected no invocations for invalid root, got %v", calls)
	}
}

func TestEndToEndRecordsHistory(t *testing.T) {
	root, _, b, _ := buildTree(t)

	db, err := database.NewEvictionDB(filepath.Join(t.TempDir(), "evictions.db"))
	if err != nil {
		t.Fatalf("NewEvictionDB failed: %v", err)
	}
	defer db.Close()

	fake := &evict.FakeEvictor{Failures: map[string]string{b: "not a cloud file"}}
	cfg := config.Default()

	if _, err := scheduler.RunOnceWithEvictor(context.Background(), cfg, root, false, nil, db, fake); err != nil {
		t.Fatalf("RunOnceWithEvictor failed: %v", err)
	}

	records, err := db.GetRecentEvictions(10)
	if err != nil {
		t.Fatalf("GetRecentEvictions failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(records))
	}

	failures, err := db.GetEvictionsByAction(database.ActionError)
	if err != nil {
		t.Fatalf("GetEvictionsByAction failed: %v", err)
	}
	if len(failures) != 1 || failures[0].Path != b {
		t.Errorf("unexpected failure rows: %+v", failures)
	}
	if failures[0].ErrorMessage != "not a cloud file" {
		t.Errorf("diagnostic not preserved: %q", failures[0].ErrorMessage)
	}
}

func TestExcludedFilesNeverDispatch(t *testing.T) {
	root, a, _, _ := buildTree(t)

	fake := &evict.FakeEvictor{}
	cfg := config.Default()
	cfg.ExcludePatterns = []string{"b.txt", "c.txt"}

	summary, err := scheduler.RunOnceWithEvictor(context.Background(), cfg, root, false, nil, nil, fake)
	if err != nil {
		t.Fatalf("RunOnceWithEvictor failed: %v", err)
	}

	if summary.Attempted != 1 {
		t.Errorf("attempted = %d, want 1", summary.Attempted)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0] != a {
		t.Errorf("expected only %s invoked, got %v", a, calls)
	}
}
