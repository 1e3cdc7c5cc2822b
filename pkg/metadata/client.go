// Package metadata looks up administrative details and boundaries of OSM relations.
//
// Three services are queried per region: Nominatim details (JSON), the polygons.openstreetmap.fr
// .poly export and its GeoJSON variant. Every call is paced first and reported to the pacer
// when it completes. A failed lookup is logged and yields an absent value; only context
// cancellation is returned as an error.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
	"github.com/dtnitsch/osm-extracts/pkg/fetcher"
	"github.com/dtnitsch/osm-extracts/pkg/metrics"
	"github.com/dtnitsch/osm-extracts/pkg/throttle"
)

// Kind names one of the three lookups.
type Kind string

const (
	KindDetails Kind = "details"
	KindPolygon Kind = "polygon"
	KindGeoJSON Kind = "geojson"
)

// IDPlaceholder is replaced by the region id in endpoint templates.
const IDPlaceholder = "{id}"

// Endpoints holds the URL template of each lookup.
type Endpoints struct {
	Details string
	Polygon string
	GeoJSON string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Details: models.DefaultDetailsURL,
		Polygon: models.DefaultPolygonURL,
		GeoJSON: models.DefaultGeoJSONURL,
	}
}

// URL expands the template for kind with id.
func (e Endpoints) URL(kind Kind, id models.RegionID) string {
	var tmpl string
	switch kind {
	case KindDetails:
		tmpl = e.Details
	case KindPolygon:
		tmpl = e.Polygon
	case KindGeoJSON:
		tmpl = e.GeoJSON
	}
	return strings.ReplaceAll(tmpl, IDPlaceholder, url.QueryEscape(id.String()))
}

// Journal receives a record of every lookup attempt.
type Journal interface {
	RecordLookup(ctx context.Context, rec models.LookupRecord) error
}

// Client performs paced lookups. It holds all request state; nothing is global.
type Client struct {
	fetcher   *fetcher.Fetcher
	pacer     throttle.Pacer
	endpoints Endpoints
	logger    *slog.Logger

	// Optional.
	Journal Journal
	Metrics *metrics.Metrics
	// DetailsFetcher, when set, serves the details lookup in place of the shared fetcher.
	DetailsFetcher *fetcher.Fetcher
}

func NewClient(f *fetcher.Fetcher, pacer throttle.Pacer, endpoints Endpoints, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		fetcher:   f,
		pacer:     pacer,
		endpoints: endpoints,
		logger:    logger,
	}
}

// FetchDetails returns the Nominatim details payload, or nil when the lookup fails.
func (c *Client) FetchDetails(ctx context.Context, id models.RegionID) (models.Metadata, error) {
	body, err := c.lookup(ctx, KindDetails, id, validJSON)
	if err != nil || body == nil {
		return nil, err
	}
	return models.Metadata(body), nil
}

// FetchPolygon returns the .poly boundary text, or nil when the lookup fails.
func (c *Client) FetchPolygon(ctx context.Context, id models.RegionID) (*string, error) {
	body, err := c.lookup(ctx, KindPolygon, id, nil)
	if err != nil || body == nil {
		return nil, err
	}
	poly := string(body)
	return &poly, nil
}

// FetchGeoJSON returns the GeoJSON boundary, or nil when the lookup fails.
func (c *Client) FetchGeoJSON(ctx context.Context, id models.RegionID) (models.GeoBoundary, error) {
	body, err := c.lookup(ctx, KindGeoJSON, id, validJSON)
	if err != nil || body == nil {
		return nil, err
	}
	return models.GeoBoundary(body), nil
}

var errInvalidJSON = errors.New("response body is not valid JSON")

func validJSON(body []byte) error {
	if !json.Valid(body) {
		return errInvalidJSON
	}
	return nil
}

func (c *Client) fetcherFor(kind Kind) *fetcher.Fetcher {
	if kind == KindDetails && c.DetailsFetcher != nil {
		return c.DetailsFetcher
	}
	return c.fetcher
}

// lookup paces, fetches and checks one lookup. A nil body with a nil error means the
// lookup failed and was logged.
func (c *Client) lookup(ctx context.Context, kind Kind, id models.RegionID, check func([]byte) error) ([]byte, error) {
	if err := c.pacer.Wait(ctx, string(kind)); err != nil {
		return nil, err
	}

	u := c.endpoints.URL(kind, id)
	rec := models.LookupRecord{RegionID: id.String(), Kind: string(kind), URL: u}

	start := time.Now()
	resp, err := c.fetcherFor(kind).Get(ctx, u)
	rec.Duration = time.Since(start)
	c.pacer.Done(string(kind))

	var body []byte
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		rec.Error = err.Error()
		c.logger.Warn("Failed to fetch data", "kind", kind, "osm_id", id, "url", u, "error", err)
	case !resp.OK():
		rec.StatusCode = resp.StatusCode
		rec.Error = fetcher.Describe(resp)
		c.logger.Warn("Failed to fetch data", "kind", kind, "osm_id", id, "url", u, "status", resp.StatusCode, "response", rec.Error)
	default:
		rec.StatusCode = resp.StatusCode
		if check != nil {
			if cerr := check(resp.Body); cerr != nil {
				rec.Error = cerr.Error()
				c.logger.Warn("Failed to decode data", "kind", kind, "osm_id", id, "url", u, "error", cerr)
				break
			}
		}
		rec.OK = true
		body = resp.Body
		c.logger.Debug("Fetched data", "kind", kind, "osm_id", id, "bytes", len(body), "duration_ms", rec.Duration.Milliseconds())
	}

	c.Metrics.ObserveLookup(string(kind), rec.OK, rec.Duration)
	if c.Journal != nil {
		if jerr := c.Journal.RecordLookup(ctx, rec); jerr != nil {
			c.logger.Warn("Failed to record lookup", "osm_id", id, "error", jerr)
		}
	}
	return body, nil
}
