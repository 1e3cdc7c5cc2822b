package clip

import (
	"fmt"
	"log/slog"

	"github.com/dtnitsch/osm-extracts/internal/common"
	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/caching"
	"github.com/dtnitsch/osm-extracts/pkg/clipper"
	"github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/dtnitsch/osm-extracts/pkg/manifest"
	"github.com/dtnitsch/osm-extracts/pkg/pbf"
	"github.com/dtnitsch/osm-extracts/pkg/storage"
	"github.com/urfave/cli/v2"
)

const (
	DefaultMetadataFile = "input_osm_metadata.json"
	DefaultURLsFile     = "input_osm_urls.json"
)

func ClipAction(c *cli.Context) error {
	cfg, logger, err := common.Setup(c)
	if err != nil {
		return err
	}

	dataset, urls, err := LoadInputs(c.String("metadata"), c.String("urls"))
	if err != nil {
		return err
	}
	logger.Info("Loaded inputs", "countries", len(dataset), "urls", len(urls))

	run, err := common.StartRun(cfg, db.StageClip, logger)
	if err != nil {
		return err
	}

	cache := caching.NewExtractCache(common.NewFetcher(cfg), logger)
	cache.Metrics = run.Metrics
	if cfg.VerifyDownloads {
		cache.Verify = verifyWith(logger)
	}

	pipeline := &Pipeline{
		Cache: cache,
		Clipper: &clipper.Clipper{
			Runner:      clipper.OsmosisRunner{Path: cfg.OsmosisPath},
			WorkDir:     cfg.WorkDir,
			Granularity: cfg.Granularity,
			Logger:      logger,
			Metrics:     run.Metrics,
			Journal:     run.Journal,
		},
		Logger:    logger,
		OutputDir: cfg.OutputDir,
	}

	summary, err := pipeline.Run(c.Context, dataset, urls)
	writeManifest(run, cfg.OutputDir, logger)
	run.Finish(err)
	if err != nil {
		return err
	}
	logger.Info("Clip finished", "countries", summary.Countries, "clipped", summary.Clipped, "failed", summary.Failed, "skipped", summary.Skipped)
	return nil
}

// LoadInputs reads the enriched dataset and the country URL map.
func LoadInputs(metadataPath, urlsPath string) (models.EnrichedDataset, models.URLMap, error) {
	store := &storage.Storage{}

	var dataset models.EnrichedDataset
	if err := store.LoadJSON(metadataPath, &dataset); err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	var urls models.URLMap
	if err := store.LoadJSON(urlsPath, &urls); err != nil {
		return nil, nil, fmt.Errorf("failed to load URL map: %w", err)
	}
	return dataset, urls, nil
}

// writeManifest records what the run produced; failures only warn.
func writeManifest(run *common.Run, outputDir string, logger *slog.Logger) {
	runID := run.Journal.RunID()
	clips, err := run.DB.GetRunClips(runID)
	if err != nil {
		logger.Warn("Failed to read clips for manifest", "run_id", runID, "error", err)
		return
	}
	store := &storage.Storage{}
	path, err := manifest.Write(outputDir, manifest.Generate(runID, clips, store), store)
	if err != nil {
		logger.Warn("Failed to write manifest", "error", err)
		return
	}
	logger.Info("Manifest written", "path", path, "extracts", len(clips))
}

func verifyWith(logger *slog.Logger) func(string) error {
	return func(path string) error {
		summary, err := pbf.Inspect(path)
		if err != nil {
			return err
		}
		logger.Info("Verified OSM PBF header", "path", path, "writing_program", summary.WritingProgram, "required_features", summary.RequiredFeatures)
		return nil
	}
}
