package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	dbpkg "github.com/dtnitsch/osm-extracts/pkg/db"
)

func openTestDB(t *testing.T) *dbpkg.DB {
	t.Helper()
	database, err := dbpkg.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestPrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintRuns(&buf, openTestDB(t), 10); err != nil {
		t.Fatalf("PrintRuns() error = %v", err)
	}
	if got := buf.String(); got != "No runs found\n" {
		t.Errorf("PrintRuns() = %q", got)
	}
	if _, err := LatestRunID(openTestDB(t)); err == nil {
		t.Error("LatestRunID() on empty journal succeeded")
	}
}

func TestPrintRunsAndRun(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	crawlID, err := database.StartRun(dbpkg.StageCrawl)
	if err != nil {
		t.Fatal(err)
	}
	journal := database.Journal(crawlID)
	_ = journal.RecordLookup(ctx, models.LookupRecord{RegionID: "1", Kind: "details", URL: "u1", StatusCode: 200, OK: true, Duration: 120 * time.Millisecond})
	_ = journal.RecordLookup(ctx, models.LookupRecord{RegionID: "2", Kind: "polygon", URL: "u2", StatusCode: 504, Error: "504 Gateway Timeout"})
	if err := database.FinishRun(crawlID, nil); err != nil {
		t.Fatal(err)
	}

	clipID, err := database.StartRun(dbpkg.StageClip)
	if err != nil {
		t.Fatal(err)
	}
	_ = database.Journal(clipID).RecordClip(ctx, models.ClipRecord{Country: "testland", ProvinceID: "2", ProvinceName: "north", Outcome: "clipped", OutputPath: "output/testland/north-latest.osm.pbf"})
	if err := database.FinishRun(clipID, errors.New("no download URL for country 9")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := PrintRuns(&buf, database, 0); err != nil {
		t.Fatalf("PrintRuns() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total: 2 runs") {
		t.Errorf("PrintRuns() missing total:\n%s", out)
	}
	// Newest first.
	if strings.Index(out, "clip ") > strings.Index(out, "crawl ") {
		t.Errorf("runs not listed newest first:\n%s", out)
	}

	latest, err := LatestRunID(database)
	if err != nil || latest != clipID {
		t.Errorf("LatestRunID() = %d, %v; want %d", latest, err, clipID)
	}

	buf.Reset()
	if err := PrintRun(&buf, database, crawlID, true); err != nil {
		t.Fatalf("PrintRun() error = %v", err)
	}
	out = buf.String()
	if !strings.Contains(out, "Lookups:     2 total (1 failed)") {
		t.Errorf("PrintRun() counts wrong:\n%s", out)
	}
	if strings.Contains(out, "details 1") || !strings.Contains(out, "[failed] polygon 2 (504") {
		t.Errorf("PrintRun(failedOnly) lookups wrong:\n%s", out)
	}

	buf.Reset()
	if err := PrintRun(&buf, database, clipID, false); err != nil {
		t.Fatalf("PrintRun() error = %v", err)
	}
	out = buf.String()
	if !strings.Contains(out, "Status:      failed") || !strings.Contains(out, "[clipped] testland/north (2)") {
		t.Errorf("PrintRun() clip run wrong:\n%s", out)
	}
}
