package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all pipeline settings, populated from environment variables
// and an optional sightings.yaml file.
type Config struct {
	// Observation source.
	ObservationAPIURL string
	PlaceID           int
	TaxonName         string
	CreatedSince      string
	QualityGrade      string
	PageSize          int
	PageDelay         time.Duration
	HTTPTimeout       time.Duration
	UserAgent         string

	// Boundary source.
	BoundarySource string
	BoundaryCRS    domain.CRS
	RegionField    string

	// Artifacts.
	ExportPath       string
	ExportFormat     string
	MapPath          string
	MapTitle         string
	MapCenterLat     float64
	MapCenterLon     float64
	MapZoom          int
	MapBoundaryLayer string
	MapPointLayer    string

	// Operations.
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	MetricsTextfile string
	RunInterval     time.Duration
	ShutdownTimeout time.Duration

	// Optional event sink; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

var defaults = map[string]any{
	"observation_api_url":       "https://api.inaturalist.org/v1/observations",
	"observation_place_id":      6857,
	"observation_taxon_name":    "Spider",
	"observation_created_since": "2025-01-01",
	"observation_quality_grade": "research",
	"observation_page_size":     200,
	"observation_page_delay":    "1s",
	"http_timeout":              "30s",
	"user_agent":                "sightings-etl/1.0",
	"boundary_source":           "",
	"boundary_crs":              "",
	"region_field":              "Trust",
	"export_path":               "spider_sightings_with_trust.csv",
	"export_format":             "csv",
	"map_path":                  "spider_map.html",
	"map_title":                 "Spider sightings by Wildlife Trust",
	"map_center_lat":            54.0,
	"map_center_lon":            -2.0,
	"map_zoom":                  6,
	"map_boundary_layer":        "Wildlife Trusts",
	"map_point_layer":           "Spider Sightings (Clustered)",
	"log_level":                 "info",
	"log_format":                "json",
	"http_addr":                 "",
	"metrics_textfile":          "",
	"run_interval":              "0s",
	"shutdown_timeout":          "10s",
	"kafka_brokers":             "",
	"kafka_topic":               "enriched-sightings",
}

// Load reads configuration from the environment, then sightings.yaml (or the
// file named by SIGHTINGS_CONFIG), then defaults.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path := os.Getenv("SIGHTINGS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sightings")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		ObservationAPIURL: v.GetString("observation_api_url"),
		PlaceID:           v.GetInt("observation_place_id"),
		TaxonName:         v.GetString("observation_taxon_name"),
		CreatedSince:      v.GetString("observation_created_since"),
		QualityGrade:      v.GetString("observation_quality_grade"),
		PageSize:          v.GetInt("observation_page_size"),
		PageDelay:         v.GetDuration("observation_page_delay"),
		HTTPTimeout:       v.GetDuration("http_timeout"),
		UserAgent:         v.GetString("user_agent"),

		BoundarySource: v.GetString("boundary_source"),
		RegionField:    v.GetString("region_field"),

		ExportPath:       v.GetString("export_path"),
		ExportFormat:     strings.ToLower(v.GetString("export_format")),
		MapPath:          v.GetString("map_path"),
		MapTitle:         v.GetString("map_title"),
		MapCenterLat:     v.GetFloat64("map_center_lat"),
		MapCenterLon:     v.GetFloat64("map_center_lon"),
		MapZoom:          v.GetInt("map_zoom"),
		MapBoundaryLayer: v.GetString("map_boundary_layer"),
		MapPointLayer:    v.GetString("map_point_layer"),

		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		HTTPAddr:        v.GetString("http_addr"),
		MetricsTextfile: v.GetString("metrics_textfile"),
		RunInterval:     v.GetDuration("run_interval"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		KafkaBrokers: parseBrokers(v.GetString("kafka_brokers")),
		KafkaTopic:   v.GetString("kafka_topic"),
	}

	if s := v.GetString("boundary_crs"); s != "" {
		crs, err := domain.ParseCRS(s)
		if err != nil {
			return nil, fmt.Errorf("invalid BOUNDARY_CRS: %w", err)
		}
		cfg.BoundaryCRS = crs
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PageSize <= 0 {
		return errors.New("OBSERVATION_PAGE_SIZE must be a positive integer")
	}
	if c.PageDelay < 0 {
		return errors.New("OBSERVATION_PAGE_DELAY must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("invalid HTTP_TIMEOUT")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if c.RunInterval < 0 {
		return errors.New("RUN_INTERVAL must not be negative")
	}
	switch c.ExportFormat {
	case "csv", "xlsx", "sqlite":
	default:
		return fmt.Errorf("EXPORT_FORMAT must be csv, xlsx or sqlite, got %q", c.ExportFormat)
	}
	if c.ExportPath == "" {
		return errors.New("EXPORT_PATH is required")
	}
	if c.MapPath == "" {
		return errors.New("MAP_PATH is required")
	}
	if c.RegionField == "" {
		return errors.New("REGION_FIELD is required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
