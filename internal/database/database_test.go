package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *EvictionDB {
	t.Helper()
	db, err := NewEvictionDB(filepath.Join(t.TempDir(), "evictions.db"))
	if err != nil {
		t.Fatalf("NewEvictionDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return db
}

func TestRecordAndQueryEvictions(t *testing.T) {
	db := newTestDB(t)

	if err := db.RecordEviction(ActionEvict, "/icloud/a.txt", 1024, 50*time.Millisecond, ""); err != nil {
		t.Fatalf("RecordEviction failed: %v", err)
	}
	if err := db.RecordEviction(ActionError, "/icloud/b.txt", 2048, 10*time.Millisecond, "not a cloud file"); err != nil {
		t.Fatalf("RecordEviction failed: %v", err)
	}
	if err := db.RecordEviction(ActionEvict, "/icloud/sub/c.txt", 4096, 75*time.Millisecond, ""); err != nil {
		t.Fatalf("RecordEviction failed: %v", err)
	}

	records, err := db.GetRecentEvictions(10)
	if err != nil {
		t.Fatalf("GetRecentEvictions failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	failures, err := db.GetEvictionsByAction(ActionError)
	if err != nil {
		t.Fatalf("GetEvictionsByAction failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Path != "/icloud/b.txt" {
		t.Errorf("failure path = %q", failures[0].Path)
	}
	if failures[0].ErrorMessage != "not a cloud file" {
		t.Errorf("failure message = %q", failures[0].ErrorMessage)
	}
	if failures[0].FileName != "b.txt" {
		t.Errorf("failure file name = %q", failures[0].FileName)
	}
}

func TestGetEvictionsByPath(t *testing.T) {
	db := newTestDB(t)

	db.RecordEviction(ActionEvict, "/icloud/docs/report.pdf", 100, 0, "")
	db.RecordEviction(ActionEvict, "/icloud/photos/pic.jpg", 200, 0, "")

	records, err := db.GetEvictionsByPath("/icloud/docs/%")
	if err != nil {
		t.Fatalf("GetEvictionsByPath failed: %v", err)
	}
	if len(records) != 1 || records[0].Path != "/icloud/docs/report.pdf" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGetLargestEvictions(t *testing.T) {
	db := newTestDB(t)

	db.RecordEviction(ActionEvict, "/icloud/small.txt", 10, 0, "")
	db.RecordEviction(ActionEvict, "/icloud/huge.mov", 1<<30, 0, "")
	db.RecordEviction(ActionError, "/icloud/failed-huge.mov", 1<<31, 0, "boom")

	records, err := db.GetLargestEvictions(1)
	if err != nil {
		t.Fatalf("GetLargestEvictions failed: %v", err)
	}
	// Failed attempts never reclaimed space and must not rank
	if len(records) != 1 || records[0].Path != "/icloud/huge.mov" {
		t.Errorf("unexpected largest: %+v", records)
	}
}

func TestGetEvictionStats(t *testing.T) {
	db := newTestDB(t)

	db.RecordEviction(ActionEvict, "/icloud/a.txt", 1000, 0, "")
	db.RecordEviction(ActionEvict, "/icloud/b.txt", 500, 0, "")
	db.RecordEviction(ActionError, "/icloud/c.txt", 200, 0, "boom")
	db.RecordEviction(ActionDryRun, "/icloud/d.txt", 300, 0, "")

	stats, err := db.GetEvictionStats(7)
	if err != nil {
		t.Fatalf("GetEvictionStats failed: %v", err)
	}

	if stats.TotalEvicted != 2 {
		t.Errorf("TotalEvicted = %d, want 2", stats.TotalEvicted)
	}
	if stats.TotalFailed != 1 {
		t.Errorf("TotalFailed = %d, want 1", stats.TotalFailed)
	}
	if stats.TotalDryRun != 1 {
		t.Errorf("TotalDryRun = %d, want 1", stats.TotalDryRun)
	}
	if stats.TotalSpaceReclaimed != 1500 {
		t.Errorf("TotalSpaceReclaimed = %d, want 1500", stats.TotalSpaceReclaimed)
	}
}
