package models

import "time"

// LookupRecord describes one remote metadata lookup attempt.
type LookupRecord struct {
	RegionID   string
	Kind       string // details, polygon, geojson
	URL        string
	StatusCode int // 0 for transport errors
	OK         bool
	Error      string
	Duration   time.Duration
}

// ClipRecord describes the result of clipping one province.
type ClipRecord struct {
	Country      string
	ProvinceID   string
	ProvinceName string
	OutputPath   string
	Outcome      string // clipped, failed, skipped
	Error        string
	Duration     time.Duration
}
