// Package crawler enriches a country/province hierarchy with remote metadata.
package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/osm-extracts/models"
)

// Lookups is the set of remote lookups the crawler needs, satisfied by *metadata.Client.
// Implementations return a nil value for a failed lookup and an error only when the
// crawl must stop.
type Lookups interface {
	FetchDetails(ctx context.Context, id models.RegionID) (models.Metadata, error)
	FetchPolygon(ctx context.Context, id models.RegionID) (*string, error)
	FetchGeoJSON(ctx context.Context, id models.RegionID) (models.GeoBoundary, error)
}

// Crawler walks the hierarchy strictly sequentially: a country before its provinces,
// and per province details, then polygon, then geojson.
type Crawler struct {
	lookups Lookups
	logger  *slog.Logger
}

func New(lookups Lookups, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Crawler{lookups: lookups, logger: logger}
}

// Crawl returns one entry per hierarchy entry, in input order. Failed lookups leave
// the corresponding field nil; the record is still emitted with its id.
func (c *Crawler) Crawl(ctx context.Context, hierarchy models.Hierarchy) (models.EnrichedDataset, error) {
	dataset := make(models.EnrichedDataset, 0, len(hierarchy))
	for i, item := range hierarchy {
		entry, err := c.crawlEntry(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("crawl stopped at entry %d (country %s): %w", i, item.Country, err)
		}
		dataset = append(dataset, entry)
	}
	return dataset, nil
}

func (c *Crawler) crawlEntry(ctx context.Context, item models.HierarchyEntry) (models.EnrichedEntry, error) {
	c.logger.Info("Processing OSM ID", "osm_id", item.Country, "level", "country", "provinces", len(item.Provinces))

	details, err := c.lookups.FetchDetails(ctx, item.Country)
	if err != nil {
		return models.EnrichedEntry{}, err
	}

	entry := models.EnrichedEntry{
		Country:   models.CountryRecord{ID: item.Country, Metadata: details},
		Provinces: make([]models.ProvinceRecord, 0, len(item.Provinces)),
	}
	for _, id := range item.Provinces {
		province, err := c.crawlProvince(ctx, id)
		if err != nil {
			return models.EnrichedEntry{}, err
		}
		entry.Provinces = append(entry.Provinces, province)
	}
	return entry, nil
}

func (c *Crawler) crawlProvince(ctx context.Context, id models.RegionID) (models.ProvinceRecord, error) {
	c.logger.Info("Processing OSM ID", "osm_id", id, "level", "province")

	record := models.ProvinceRecord{ID: id}
	var err error
	if record.Metadata, err = c.lookups.FetchDetails(ctx, id); err != nil {
		return record, err
	}
	if record.Polygon, err = c.lookups.FetchPolygon(ctx, id); err != nil {
		return record, err
	}
	if record.GeoJSON, err = c.lookups.FetchGeoJSON(ctx, id); err != nil {
		return record, err
	}
	return record, nil
}
