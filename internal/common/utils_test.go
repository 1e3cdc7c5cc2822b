package common

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", DefaultConfigFile, "")
	set.String("db", "", "")
	set.String("output-dir", "", "")
	set.Duration("request-interval", 0, "")
	if err := set.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(newContext(t))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.OutputDir != models.DefaultOutputDir || cfg.Granularity != models.DefaultGranularity {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadConfig(newContext(t, "--config", path)); err == nil {
		t.Fatal("LoadConfig() with missing explicit config succeeded")
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osm-extracts.yaml")
	content := "output_dir: from-file\ndb_path: file.db\nrequest_interval: 3s\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(newContext(t, "--config", path, "--db", "flag.db", "--request-interval", "250ms"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.OutputDir != "from-file" {
		t.Errorf("OutputDir = %q, want from-file", cfg.OutputDir)
	}
	if cfg.DBPath != "flag.db" {
		t.Errorf("DBPath = %q, want flag.db", cfg.DBPath)
	}
	if cfg.RequestInterval != 250*time.Millisecond {
		t.Errorf("RequestInterval = %v, want 250ms", cfg.RequestInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		quiet     bool
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "", wantInfo: true},
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "warn"},
		{quiet: true, level: "debug"},
	}
	for _, tt := range tests {
		logger := NewLogger(tt.quiet, tt.level)
		if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("NewLogger(%v, %q) debug enabled = %v, want %v", tt.quiet, tt.level, got, tt.wantDebug)
		}
		if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
			t.Errorf("NewLogger(%v, %q) info enabled = %v, want %v", tt.quiet, tt.level, got, tt.wantInfo)
		}
	}
}

func TestFetchers_DetailsHeadersOnlyOnDetailsFetcher(t *testing.T) {
	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
	}))
	defer server.Close()

	cfg := models.DefaultConfig()
	ctx := context.Background()
	tests := []struct {
		name        string
		get         func() error
		wantReferer string
	}{
		{
			name:        "details",
			get:         func() error { _, err := NewDetailsFetcher(cfg).Get(ctx, server.URL); return err },
			wantReferer: cfg.DetailsHeaders["Referer"],
		},
		{
			name: "shared",
			get:  func() error { _, err := NewFetcher(cfg).Get(ctx, server.URL); return err },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.get(); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if gotUA != cfg.UserAgent {
				t.Errorf("User-Agent = %q, want %q", gotUA, cfg.UserAgent)
			}
			if gotReferer != tt.wantReferer {
				t.Errorf("Referer = %q, want %q", gotReferer, tt.wantReferer)
			}
		})
	}
}
