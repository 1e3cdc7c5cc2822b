// Package models defines the region records, datasets and configuration shared by
// the crawl and clip stages.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RegionID identifies an OSM relation (country or province).
// Input files may carry it as a JSON number or string; numeric ids are written back as numbers.
type RegionID string

func (id RegionID) String() string {
	return string(id)
}

func (id RegionID) isNumeric() bool {
	s := string(id)
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (id RegionID) MarshalJSON() ([]byte, error) {
	if id.isNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *RegionID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid region id %s: %w", data, err)
	}

	switch t := v.(type) {
	case json.Number:
		*id = RegionID(t.String())
	case string:
		if t == "" {
			return fmt.Errorf("invalid region id: empty string")
		}
		*id = RegionID(t)
	default:
		return fmt.Errorf("invalid region id %s: must be a number or string", data)
	}
	return nil
}

// Metadata is the raw Nominatim details payload. nil means the lookup failed.
type Metadata []byte

func (m Metadata) MarshalJSON() ([]byte, error) {
	return marshalRaw(m)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = unmarshalRaw(data)
	return nil
}

// Names returns the locale-keyed names mapping ("name", "name:en", ...).
// Non-string values are ignored.
func (m Metadata) Names() map[string]string {
	if len(m) == 0 {
		return nil
	}
	var payload struct {
		Names map[string]interface{} `json:"names"`
	}
	if err := json.Unmarshal(m, &payload); err != nil {
		return nil
	}
	names := make(map[string]string, len(payload.Names))
	for k, v := range payload.Names {
		if s, ok := v.(string); ok {
			names[k] = s
		}
	}
	return names
}

// Name returns the display name for locale, if present and non-empty.
func (m Metadata) Name(locale string) (string, bool) {
	name, ok := m.Names()[locale]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// GeoBoundary is the raw GeoJSON geometry of a region. nil means the lookup failed.
type GeoBoundary []byte

func (g GeoBoundary) MarshalJSON() ([]byte, error) {
	return marshalRaw(g)
}

func (g *GeoBoundary) UnmarshalJSON(data []byte) error {
	*g = unmarshalRaw(data)
	return nil
}

func marshalRaw(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func unmarshalRaw(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	out := make([]byte, len(trimmed))
	copy(out, trimmed)
	return out
}

// CountryRecord is the enriched form of a country id.
type CountryRecord struct {
	ID       RegionID `json:"osm_id"`
	Metadata Metadata `json:"nominatim_data"`
}

// ProvinceRecord is the enriched form of a province id.
type ProvinceRecord struct {
	ID       RegionID    `json:"osm_id"`
	Metadata Metadata    `json:"nominatim_data"`
	Polygon  *string     `json:"polygon_data"`
	GeoJSON  GeoBoundary `json:"geojson_data"`
}

// HasPolygon reports whether the province carries a usable .poly boundary.
func (p ProvinceRecord) HasPolygon() bool {
	return p.Polygon != nil && *p.Polygon != ""
}

// EnrichedEntry is one country with its provinces, in input order.
type EnrichedEntry struct {
	Country   CountryRecord    `json:"country"`
	Provinces []ProvinceRecord `json:"provinces"`
}

// EnrichedDataset is the complete output of a crawl.
type EnrichedDataset []EnrichedEntry

// DatasetStats summarizes how complete a dataset is.
type DatasetStats struct {
	Countries          int `json:"countries" yaml:"countries"`
	Provinces          int `json:"provinces" yaml:"provinces"`
	MissingCountryData int `json:"missing_country_data" yaml:"missing_country_data"`
	MissingMetadata    int `json:"missing_metadata" yaml:"missing_metadata"`
	MissingPolygons    int `json:"missing_polygons" yaml:"missing_polygons"`
	MissingGeoJSON     int `json:"missing_geojson" yaml:"missing_geojson"`
}

func (d EnrichedDataset) Stats() DatasetStats {
	var s DatasetStats
	for _, entry := range d {
		s.Countries++
		if entry.Country.Metadata == nil {
			s.MissingCountryData++
		}
		for _, p := range entry.Provinces {
			s.Provinces++
			if p.Metadata == nil {
				s.MissingMetadata++
			}
			if !p.HasPolygon() {
				s.MissingPolygons++
			}
			if p.GeoJSON == nil {
				s.MissingGeoJSON++
			}
		}
	}
	return s
}

// HierarchyEntry is one line of the crawl input: a country and its provinces.
type HierarchyEntry struct {
	Country   RegionID   `json:"country"`
	Provinces []RegionID `json:"provinces"`
}

type Hierarchy []HierarchyEntry

// URLMap maps the string form of a country id to its national extract download URL.
type URLMap map[string]string

func (m URLMap) Lookup(id RegionID) (string, bool) {
	u, ok := m[id.String()]
	if !ok || u == "" {
		return "", false
	}
	return u, true
}
