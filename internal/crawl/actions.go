package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/osm-extracts/internal/common"
	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/crawler"
	"github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/dtnitsch/osm-extracts/pkg/metadata"
	"github.com/dtnitsch/osm-extracts/pkg/storage"
	"github.com/dtnitsch/osm-extracts/pkg/throttle"
	"github.com/urfave/cli/v2"
)

const (
	DefaultInputFile  = "input_osm_ids.json"
	DefaultOutputFile = "output_osm_metadata.json"
)

func CrawlAction(c *cli.Context) error {
	cfg, logger, err := common.Setup(c)
	if err != nil {
		return err
	}

	run, err := common.StartRun(cfg, db.StageCrawl, logger)
	if err != nil {
		return err
	}

	client := metadata.NewClient(
		common.NewFetcher(cfg),
		throttle.New(cfg.RequestInterval, logger),
		metadata.Endpoints{Details: cfg.DetailsURL, Polygon: cfg.PolygonURL, GeoJSON: cfg.GeoJSONURL},
		logger,
	)
	client.Journal = run.Journal
	client.Metrics = run.Metrics
	client.DetailsFetcher = common.NewDetailsFetcher(cfg)

	_, err = Run(c.Context, crawler.New(client, logger), logger, c.String("input"), c.String("output"))
	run.Finish(err)
	return err
}

// Run loads the hierarchy from inputPath, enriches it and writes the dataset to outputPath.
// A missing or malformed input fails before any lookup is made.
func Run(ctx context.Context, cr *crawler.Crawler, logger *slog.Logger, inputPath, outputPath string) (models.DatasetStats, error) {
	store := &storage.Storage{}

	var hierarchy models.Hierarchy
	if err := store.LoadJSON(inputPath, &hierarchy); err != nil {
		return models.DatasetStats{}, fmt.Errorf("failed to load hierarchy: %w", err)
	}
	logger.Info("Loaded hierarchy", "path", inputPath, "countries", len(hierarchy))

	dataset, err := cr.Crawl(ctx, hierarchy)
	if err != nil {
		return models.DatasetStats{}, err
	}

	if err := store.SaveJSON(outputPath, dataset, storage.DatasetIndent); err != nil {
		return models.DatasetStats{}, fmt.Errorf("failed to write dataset: %w", err)
	}

	stats := dataset.Stats()
	logger.Info("Crawl finished",
		"path", outputPath,
		"countries", stats.Countries,
		"provinces", stats.Provinces,
		"missing_country_data", stats.MissingCountryData,
		"missing_metadata", stats.MissingMetadata,
		"missing_polygons", stats.MissingPolygons,
		"missing_geojson", stats.MissingGeoJSON,
	)
	return stats, nil
}
