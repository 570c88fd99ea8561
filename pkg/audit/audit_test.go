package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testLogger(t *testing.T) *Logger {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	l, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLogAndQuery(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()

	err := l.Log(ctx, EventA2ATaskDone, "task-1", "calendar-001", "a2a", "action=fetch_week_events")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, Filter{EventType: EventA2ATaskDone})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Detail != "action=fetch_week_events" {
		t.Errorf("Detail = %q, want %q", entries[0].Detail, "action=fetch_week_events")
	}
	if entries[0].TaskID != "task-1" {
		t.Errorf("TaskID = %q, want %q", entries[0].TaskID, "task-1")
	}
}

func TestLogStructuredDetail(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()

	detail := map[string]any{"week_start": "2025-02-17", "total_events": 4}
	if err := l.Log(ctx, EventWorkflowDone, "", "orchestrator-main", "workflow", detail); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, _ := l.Query(ctx, Filter{Limit: 1})
	if len(entries) == 0 {
		t.Fatal("no entries")
	}
	want := `{"total_events":4,"week_start":"2025-02-17"}`
	if entries[0].Detail != want {
		t.Errorf("Detail = %q, want %q", entries[0].Detail, want)
	}
}

func TestQueryFilters(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()

	if err := l.Log(ctx, EventA2ATaskNew, "t1", "calendar-001", "a2a", "new"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(ctx, EventA2ATaskFail, "t1", "calendar-001", "a2a", "fail"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(ctx, EventA2ATaskNew, "t2", "formatter-001", "a2a", "new"); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, _ := l.Query(ctx, Filter{EventType: EventA2ATaskNew})
	if len(entries) != 2 {
		t.Errorf("by event: len = %d, want 2", len(entries))
	}

	entries, _ = l.Query(ctx, Filter{TaskID: "t1"})
	if len(entries) != 2 {
		t.Errorf("by task: len = %d, want 2", len(entries))
	}

	entries, _ = l.Query(ctx, Filter{AgentID: "formatter-001"})
	if len(entries) != 1 {
		t.Errorf("by agent: len = %d, want 1", len(entries))
	}

	entries, _ = l.Query(ctx, Filter{EventType: EventA2ATaskNew, TaskID: "t1"})
	if len(entries) != 1 {
		t.Errorf("combined: len = %d, want 1", len(entries))
	}

	entries, _ = l.Query(ctx, Filter{Limit: 1})
	if len(entries) != 1 {
		t.Errorf("by limit: len = %d, want 1", len(entries))
	}
}

func TestQueryTimeRange(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if err := l.Log(ctx, EventWorkflowFail, "", "", "", "event"); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, _ := l.Query(ctx, Filter{Since: before})
	if len(entries) != 1 {
		t.Errorf("since: len = %d, want 1", len(entries))
	}

	entries, _ = l.Query(ctx, Filter{Until: before})
	if len(entries) != 0 {
		t.Errorf("before event: len = %d, want 0", len(entries))
	}
}

func TestQueryOrdering(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()

	for _, detail := range []string{"first", "second", "third"} {
		if err := l.Log(ctx, EventScheduleRun, "", "", "scheduler", detail); err != nil {
			t.Fatalf("Log: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := l.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Detail != "third" {
		t.Errorf("entries[0].Detail = %q, want %q (DESC order)", entries[0].Detail, "third")
	}
	if entries[2].Detail != "first" {
		t.Errorf("entries[2].Detail = %q, want %q", entries[2].Detail, "first")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if err := l.Log(context.Background(), EventA2ATaskNew, "t1", "", "", ""); err != nil {
		t.Fatalf("Log: %v", err)
	}
}

func TestAutoMigrateIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	if _, err := New(db); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(db); err != nil {
		t.Fatalf("second New: %v", err)
	}
}
