package crawl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/crawler"
)

type stubLookups struct {
	calls int
}

func (s *stubLookups) FetchDetails(_ context.Context, id models.RegionID) (models.Metadata, error) {
	s.calls++
	if id == "20" {
		return nil, nil
	}
	return models.Metadata(`{"names":{"name:en":"Region ` + id.String() + `"}}`), nil
}

func (s *stubLookups) FetchPolygon(_ context.Context, id models.RegionID) (*string, error) {
	s.calls++
	poly := "poly " + id.String()
	return &poly, nil
}

func (s *stubLookups) FetchGeoJSON(_ context.Context, _ models.RegionID) (models.GeoBoundary, error) {
	s.calls++
	return nil, nil
}

var discard = slog.New(slog.DiscardHandler)

func TestRun_WritesIndentedDataset(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input_osm_ids.json")
	output := filepath.Join(dir, "out", "output_osm_metadata.json")
	if err := os.WriteFile(input, []byte(`[{"country": 1, "provinces": [10, "20"]}, {"country": 2, "provinces": []}]`), 0644); err != nil {
		t.Fatal(err)
	}

	lookups := &stubLookups{}
	stats, err := Run(context.Background(), crawler.New(lookups, discard), discard, input, output)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Countries != 2 || stats.Provinces != 2 || stats.MissingMetadata != 1 || stats.MissingGeoJSON != 2 {
		t.Errorf("Stats = %+v", stats)
	}
	// 2 country details + 2 provinces * 3 lookups
	if lookups.calls != 8 {
		t.Errorf("lookups made = %d, want 8", lookups.calls)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("dataset not written: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\n    {\n        \"country\": {") {
		t.Errorf("dataset not indented with 4 spaces:\n%s", text)
	}
	if !strings.Contains(text, `"osm_id": 10`) || !strings.Contains(text, `"osm_id": 20`) {
		t.Errorf("numeric ids not preserved:\n%s", text)
	}
	if !strings.Contains(text, `"nominatim_data": null`) {
		t.Errorf("failed lookup not written as null:\n%s", text)
	}
	if !strings.Contains(text, `"provinces": []`) {
		t.Errorf("empty provinces not written as []:\n%s", text)
	}
}

func TestRun_BadInputFailsBeforeLookups(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing file"},
		{name: "malformed json", content: `[{"country": 1, "provinces": [`},
		{name: "empty string id", content: `[{"country": "", "provinces": []}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "input.json")
			if tt.content != "" {
				if err := os.WriteFile(input, []byte(tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			output := filepath.Join(dir, "output.json")

			lookups := &stubLookups{}
			if _, err := Run(context.Background(), crawler.New(lookups, discard), discard, input, output); err == nil {
				t.Fatal("Run() succeeded, want error")
			}
			if lookups.calls != 0 {
				t.Errorf("lookups made = %d, want 0", lookups.calls)
			}
			if _, err := os.Stat(output); !os.IsNotExist(err) {
				t.Error("output written despite bad input")
			}
		})
	}
}
