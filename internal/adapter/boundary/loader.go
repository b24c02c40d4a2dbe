// Package boundary loads the regional boundary polygons from an HTTP GeoJSON
// endpoint, a local GeoJSON file, or a local shapefile.
package boundary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// DefaultSource is the Wildlife Trust regional boundaries open-data layer.
const DefaultSource = "https://services-eu1.arcgis.com/Y9jgVEvgymHqAYPW/arcgis/rest/services/" +
	"Wildlife_Trust_Regional_Boundaries_-_Open_Data/FeatureServer/0/query" +
	"?outFields=*&where=1%3D1&f=geojson"

// maxBodySize caps the boundary document read from the network.
const maxBodySize = 256 << 20

// Loader implements pipeline.BoundarySource.
type Loader struct {
	source     string
	labelField string
	crs        domain.CRS
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Loader.
type Options struct {
	Source     string
	LabelField string
	// CRS, when set, replaces the declared or detected reference system.
	CRS       domain.CRS
	UserAgent string
	Timeout   time.Duration
}

// NewLoader creates a boundary loader.
func NewLoader(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	return &Loader{
		source:     opts.Source,
		labelField: opts.LabelField,
		crs:        opts.CRS,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Load reads the full boundary collection, dispatching on the source form.
func (l *Loader) Load(ctx context.Context) (domain.BoundarySet, error) {
	var (
		set domain.BoundarySet
		err error
	)
	switch {
	case strings.HasPrefix(l.source, "http://"), strings.HasPrefix(l.source, "https://"):
		set, err = l.loadHTTP(ctx)
	case strings.EqualFold(filepath.Ext(l.source), ".shp"):
		set, err = readShapefile(l.source, l.labelField, l.crs, l.logger)
	default:
		set, err = l.loadFile()
	}
	if err != nil {
		return domain.BoundarySet{}, err
	}
	if len(set.Polygons) == 0 {
		l.logger.Warn("boundary source has no polygons", "source", l.source)
	}
	return set, nil
}

func (l *Loader) loadFile() (domain.BoundarySet, error) {
	data, err := os.ReadFile(l.source)
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("read boundaries: %w", err)
	}
	return l.decode(data)
}

func (l *Loader) loadHTTP(ctx context.Context) (domain.BoundarySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	l.metrics.RequestDuration.WithLabelValues("boundaries").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("boundary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.BoundarySet{}, &domain.StatusError{URL: l.source, StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.BoundarySet{}, fmt.Errorf("read boundary response: %w", err)
	}
	return l.decode(data)
}

func (l *Loader) decode(data []byte) (domain.BoundarySet, error) {
	set, err := decodeGeoJSON(data, l.labelField, l.logger)
	if err != nil {
		return domain.BoundarySet{}, err
	}
	if l.crs.Known() && l.crs != set.CRS {
		l.logger.Warn("boundary CRS overridden", "declared", set.CRS.String(), "override", l.crs.String())
		set.CRS = l.crs
	}
	return set, nil
}
