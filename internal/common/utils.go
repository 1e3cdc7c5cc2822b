package common

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/dtnitsch/osm-extracts/pkg/fetcher"
	"github.com/dtnitsch/osm-extracts/pkg/metrics"
	"github.com/urfave/cli/v2"
)

// DefaultConfigFile is read when present; a missing default file is not an error.
const DefaultConfigFile = "osm-extracts.yaml"

// NewLogger builds the JSON logger every action writes to stderr.
func NewLogger(quiet bool, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if quiet {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads the config file named by --config and applies flag overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	path := c.String("config")
	if path == DefaultConfigFile && !c.IsSet("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := models.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("request-interval") {
		cfg.RequestInterval = c.Duration("request-interval")
	}
	if c.IsSet("osmosis") {
		cfg.OsmosisPath = c.String("osmosis")
	}
	if c.IsSet("verify") {
		cfg.VerifyDownloads = c.Bool("verify")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setup loads config and builds the logger for an action.
func Setup(c *cli.Context) (*models.Config, *slog.Logger, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	return cfg, NewLogger(c.Bool("quiet"), cfg.LogLevel), nil
}

// NewFetcher builds the HTTP client described by cfg, without the details headers.
func NewFetcher(cfg *models.Config) *fetcher.Fetcher {
	return fetcher.NewFetcher(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
}

// NewDetailsFetcher is NewFetcher plus cfg.DetailsHeaders, for the details endpoint.
func NewDetailsFetcher(cfg *models.Config) *fetcher.Fetcher {
	return fetcher.NewFetcher(fetcher.Options{
		UserAgent: cfg.UserAgent,
		Headers:   cfg.DetailsHeaders,
		Timeout:   cfg.HTTPTimeout,
	})
}

// Run ties one stage execution to the journal and the metrics file.
type Run struct {
	Stage   string
	DB      *db.DB
	Journal *db.Journal
	Metrics *metrics.Metrics

	metricsFile string
	logger      *slog.Logger
}

// StartRun opens the journal and records a running stage. The caller must call Finish.
func StartRun(cfg *models.Config, stage string, logger *slog.Logger) (*Run, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	runID, err := database.StartRun(stage)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	logger.Info("Run started", "stage", stage, "run_id", runID, "db", database.Path())

	return &Run{
		Stage:       stage,
		DB:          database,
		Journal:     database.Journal(runID),
		Metrics:     metrics.New(),
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}, nil
}

// Finish closes the run with runErr, writes metrics and closes the database.
func (r *Run) Finish(runErr error) {
	if err := r.DB.FinishRun(r.Journal.RunID(), runErr); err != nil {
		r.logger.Warn("Failed to finish run", "run_id", r.Journal.RunID(), "error", err)
	}
	r.Metrics.MarkFinished(r.Stage, time.Now())
	if err := r.Metrics.WriteTextfile(r.metricsFile); err != nil {
		r.logger.Warn("Failed to write metrics file", "path", r.metricsFile, "error", err)
	}
	if err := r.DB.Close(); err != nil {
		r.logger.Warn("Failed to close database", "error", err)
	}
}
