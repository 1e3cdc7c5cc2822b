package clip

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/clipper"
)

// Ensurer makes a national extract available on disk; *caching.ExtractCache.
type Ensurer interface {
	Ensure(ctx context.Context, path, sourceURL string) error
}

// ProvinceClipper cuts one province; *clipper.Clipper.
type ProvinceClipper interface {
	Clip(ctx context.Context, nationalPath string, province models.ProvinceRecord, outputDir string) (clipper.Outcome, error)
}

// Summary counts what a pipeline run did.
type Summary struct {
	Countries int `json:"countries"`
	Clipped   int `json:"clipped"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Pipeline produces <OutputDir>/<country>-latest.osm.pbf per country and
// <OutputDir>/<country>/<province>-latest.osm.pbf per province.
type Pipeline struct {
	Cache     Ensurer
	Clipper   ProvinceClipper
	Logger    *slog.Logger
	OutputDir string
}

// NationalPath is where the extract of country is cached.
func NationalPath(outputDir, country string) string {
	return clipper.OutputPath(outputDir, country)
}

// Run processes the dataset in order. A country without a URL, a failed download or a
// cancelled context stops the run; a failed province clip does not.
func (p *Pipeline) Run(ctx context.Context, dataset models.EnrichedDataset, urls models.URLMap) (Summary, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var summary Summary
	for _, entry := range dataset {
		country := models.CountryFileName(entry.Country)
		if _, ok := entry.Country.Metadata.Name(models.PreferredNameLocale); !ok {
			logger.Warn("No English name for country, using fallback", "osm_id", entry.Country.ID, "country", country)
		}

		sourceURL, ok := urls.Lookup(entry.Country.ID)
		if !ok {
			return summary, fmt.Errorf("no download URL for country %s (%s)", entry.Country.ID, country)
		}

		nationalPath := NationalPath(p.OutputDir, country)
		if err := p.Cache.Ensure(ctx, nationalPath, sourceURL); err != nil {
			return summary, fmt.Errorf("failed to prepare extract for %s: %w", country, err)
		}
		summary.Countries++

		provinceDir := filepath.Join(p.OutputDir, country)
		for _, province := range entry.Provinces {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			outcome, err := p.Clipper.Clip(ctx, nationalPath, province, provinceDir)
			if err != nil {
				logger.Error("Failed to clip province", "osm_id", province.ID, "country", country, "error", err)
				summary.Failed++
				continue
			}
			switch outcome {
			case clipper.OutcomeClipped:
				summary.Clipped++
			case clipper.OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
		}
		logger.Info("Country finished", "osm_id", entry.Country.ID, "country", country, "provinces", len(entry.Provinces))
	}
	return summary, nil
}
