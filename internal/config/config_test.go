package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no sightings.yaml is
// picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.inaturalist.org/v1/observations", cfg.ObservationAPIURL)
	assert.Equal(t, 6857, cfg.PlaceID)
	assert.Equal(t, "Spider", cfg.TaxonName)
	assert.Equal(t, "2025-01-01", cfg.CreatedSince)
	assert.Equal(t, "research", cfg.QualityGrade)
	assert.Equal(t, 200, cfg.PageSize)
	assert.Equal(t, time.Second, cfg.PageDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.BoundarySource)
	assert.False(t, cfg.BoundaryCRS.Known())
	assert.Equal(t, "Trust", cfg.RegionField)
	assert.Equal(t, "csv", cfg.ExportFormat)
	assert.Equal(t, "spider_sightings_with_trust.csv", cfg.ExportPath)
	assert.Equal(t, "spider_map.html", cfg.MapPath)
	assert.Equal(t, 54.0, cfg.MapCenterLat)
	assert.Equal(t, -2.0, cfg.MapCenterLon)
	assert.Equal(t, 6, cfg.MapZoom)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Zero(t, cfg.RunInterval)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_CustomEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OBSERVATION_PLACE_ID", "1")
	t.Setenv("OBSERVATION_TAXON_NAME", "Araneae")
	t.Setenv("OBSERVATION_PAGE_SIZE", "50")
	t.Setenv("OBSERVATION_PAGE_DELAY", "250ms")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("BOUNDARY_SOURCE", "/data/trusts.shp")
	t.Setenv("BOUNDARY_CRS", "urn:ogc:def:crs:EPSG::27700")
	t.Setenv("EXPORT_FORMAT", "XLSX")
	t.Setenv("EXPORT_PATH", "out.xlsx")
	t.Setenv("MAP_ZOOM", "8")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("RUN_INTERVAL", "24h")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "sightings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.PlaceID)
	assert.Equal(t, "Araneae", cfg.TaxonName)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/data/trusts.shp", cfg.BoundarySource)
	assert.Equal(t, domain.BritishGrid, cfg.BoundaryCRS)
	assert.Equal(t, "xlsx", cfg.ExportFormat)
	assert.Equal(t, "out.xlsx", cfg.ExportPath)
	assert.Equal(t, 8, cfg.MapZoom)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "sightings", cfg.KafkaTopic)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sightings.yaml"), []byte(
		"observation_taxon_name: Opiliones\nregion_field: NAME\n"), 0o644))
	t.Setenv("REGION_FIELD", "Trust")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Opiliones", cfg.TaxonName)
	assert.Equal(t, "Trust", cfg.RegionField, "environment overrides the file")
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SIGHTINGS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"page size zero":       {"OBSERVATION_PAGE_SIZE", "0"},
		"page size negative":   {"OBSERVATION_PAGE_SIZE", "-5"},
		"negative delay":       {"OBSERVATION_PAGE_DELAY", "-1s"},
		"zero http timeout":    {"HTTP_TIMEOUT", "0s"},
		"unknown format":       {"EXPORT_FORMAT", "parquet"},
		"bad boundary crs":     {"BOUNDARY_CRS", "not-a-crs"},
		"negative interval":    {"RUN_INTERVAL", "-1h"},
		"zero shutdown":        {"SHUTDOWN_TIMEOUT", "0s"},
		"kafka without topic":  {"KAFKA_TOPIC", ""},
		"missing region field": {"REGION_FIELD", ""},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(kv[0], kv[1])
			if name == "kafka without topic" {
				t.Setenv("KAFKA_BROKERS", "localhost:9092")
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestParseBrokers(t *testing.T) {
	assert.Nil(t, parseBrokers(""))
	assert.Equal(t, []string{"a:1"}, parseBrokers(" a:1 ,, "))
}
