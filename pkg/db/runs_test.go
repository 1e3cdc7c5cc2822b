package db

import (
	"context"
	"errors"
	"testing"

	"github.com/dtnitsch/osm-extracts/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func TestStartAndFinishRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.StartRun(StageCrawl)
	if err != nil {
		t.Fatalf("StartRun() failed: %v", err)
	}
	if runID == 0 {
		t.Fatal("StartRun() returned 0 ID")
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if run.Status != StatusRunning || run.FinishedAt != nil {
		t.Errorf("new run = %+v, want running and unfinished", run)
	}

	if err := db.FinishRun(runID, nil); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	run, err = db.GetRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", run.Status, StatusCompleted)
	}
	if run.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestFinishRun_WithError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, _ := db.StartRun(StageClip)
	if err := db.FinishRun(runID, errors.New("download failed")); err != nil {
		t.Fatal(err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", run.Status, StatusFailed)
	}
	if run.ErrorMessage != "download failed" {
		t.Errorf("ErrorMessage = %q", run.ErrorMessage)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.GetRun(99); err == nil {
		t.Fatal("GetRun(99) succeeded, want error")
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	crawlID, _ := db.StartRun(StageCrawl)
	j := db.Journal(crawlID)
	_ = j.RecordLookup(ctx, models.LookupRecord{RegionID: "1", Kind: "details", URL: "u1", StatusCode: 200, OK: true})
	_ = j.RecordLookup(ctx, models.LookupRecord{RegionID: "2", Kind: "polygon", URL: "u2", StatusCode: 500})

	clipID, _ := db.StartRun(StageClip)
	cj := db.Journal(clipID)
	_ = cj.RecordClip(ctx, models.ClipRecord{Country: "testland", ProvinceID: "2", ProvinceName: "north", Outcome: "failed"})
	_ = cj.RecordClip(ctx, models.ClipRecord{Country: "testland", ProvinceID: "3", ProvinceName: "south", Outcome: "clipped"})

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}

	// newest first
	if runs[0].RunID != clipID || runs[1].RunID != crawlID {
		t.Errorf("order = [%d %d], want [%d %d]", runs[0].RunID, runs[1].RunID, clipID, crawlID)
	}
	if runs[0].Clips != 2 || runs[0].FailedClips != 1 {
		t.Errorf("clip run counters = %d/%d, want 2/1", runs[0].Clips, runs[0].FailedClips)
	}
	if runs[1].Lookups != 2 || runs[1].FailedLookups != 1 {
		t.Errorf("crawl run counters = %d/%d, want 2/1", runs[1].Lookups, runs[1].FailedLookups)
	}

	limited, err := db.ListRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("ListRuns(1) returned %d runs", len(limited))
	}
}
