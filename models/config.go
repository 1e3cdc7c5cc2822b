package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDetailsURL  = "https://nominatim.openstreetmap.org/details.php?osmtype=R&osmid={id}&class=boundary&addressdetails=1&hierarchy=0&group_hierarchy=1&format=json"
	DefaultPolygonURL  = "https://polygons.openstreetmap.fr/get_poly.py?id={id}&params=0.020000-0.005000-0.005000"
	DefaultGeoJSONURL  = "https://polygons.openstreetmap.fr/get_geojson.py?id={id}&params=0.020000-0.005000-0.005000"
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:129.0) Gecko/20100101 Firefox/129.0"
	DefaultOutputDir   = "output"
	DefaultOsmosisPath = "osmosis"
	DefaultGranularity = 10000
)

// Config holds runtime configuration for both stages.
// Values come from an optional YAML file and are overridden by CLI flags.
type Config struct {
	DetailsURL string            `yaml:"details_url" validate:"required,contains={id}"`
	PolygonURL string            `yaml:"polygon_url" validate:"required,contains={id}"`
	GeoJSONURL string            `yaml:"geojson_url" validate:"required,contains={id}"`
	UserAgent  string            `yaml:"user_agent"`

	// DetailsHeaders are sent to the details endpoint only.
	DetailsHeaders map[string]string `yaml:"details_headers"`

	RequestInterval time.Duration `yaml:"request_interval" validate:"gt=0"`
	HTTPTimeout     time.Duration `yaml:"http_timeout" validate:"gte=0"`

	OutputDir       string `yaml:"output_dir" validate:"required"`
	WorkDir         string `yaml:"work_dir"`
	OsmosisPath     string `yaml:"osmosis_path" validate:"required"`
	Granularity     int    `yaml:"granularity" validate:"gt=0"`
	VerifyDownloads bool   `yaml:"verify_downloads"`

	DBPath      string `yaml:"db_path"`
	MetricsFile string `yaml:"metrics_file"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		DetailsURL: DefaultDetailsURL,
		PolygonURL: DefaultPolygonURL,
		GeoJSONURL: DefaultGeoJSONURL,
		UserAgent:  DefaultUserAgent,
		DetailsHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Referer":         "https://nominatim.openstreetmap.org/",
		},
		RequestInterval: time.Second,
		HTTPTimeout:     60 * time.Second,
		OutputDir:       DefaultOutputDir,
		OsmosisPath:     DefaultOsmosisPath,
		Granularity:     DefaultGranularity,
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML config file over the defaults and validates the result.
// An empty path returns the validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports every violation in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("config error: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return errors.Join(msgs...)
}
