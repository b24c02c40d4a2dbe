package boundary

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// featureCollection mirrors a GeoJSON FeatureCollection, keeping the legacy
// top-level "crs" member that RFC 7946 dropped but ArcGIS still emits.
type featureCollection struct {
	Type     string       `json:"type"`
	CRS      *namedCRS    `json:"crs"`
	Features []rawFeature `json:"features"`
}

type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// rawFeature is decoded by hand because ArcGIS emits numeric feature ids.
type rawFeature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

// decodeGeoJSON parses a FeatureCollection into a boundary set. A collection
// without a crs member is EPSG:4326; a crs member that cannot be parsed is an
// error. Features without polygonal geometry are skipped.
func decodeGeoJSON(data []byte, labelField string, logger *slog.Logger) (domain.BoundarySet, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return domain.BoundarySet{}, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return domain.BoundarySet{}, fmt.Errorf("decode geojson: expected FeatureCollection, got %q", fc.Type)
	}

	crs := domain.WGS84
	if fc.CRS != nil {
		parsed, err := domain.ParseCRS(fc.CRS.Properties.Name)
		if err != nil {
			return domain.BoundarySet{}, fmt.Errorf("geojson crs member: %w", err)
		}
		crs = parsed
	}

	set := domain.BoundarySet{CRS: crs, Polygons: make([]domain.BoundaryPolygon, 0, len(fc.Features))}
	for i, f := range fc.Features {
		if f.Geometry == nil {
			logger.Debug("boundary feature skipped", "index", i, "reason", "no geometry")
			continue
		}
		g, err := f.Geometry.Decode()
		if err != nil {
			return domain.BoundarySet{}, fmt.Errorf("decode feature %d geometry: %w", i, err)
		}
		switch g.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			logger.Debug("boundary feature skipped", "index", i, "type", f.Geometry.Type)
			continue
		}
		set.Polygons = append(set.Polygons, domain.BoundaryPolygon{
			Label:      labelOf(f.Properties, labelField),
			Geometry:   g,
			Properties: f.Properties,
		})
	}
	return set, nil
}

// labelOf reads the label attribute, rendering non-string values as text.
func labelOf(props map[string]any, field string) *string {
	v, ok := props[field]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}
