// Package mapview renders the boundary polygons and observation points as a
// self-contained Leaflet HTML document.
package mapview

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/artifact"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/spatial"
	"github.com/twpayne/go-geom/encoding/geojson"
)

//go:embed template.html
var templateHTML string

var page = template.Must(template.New("map").Parse(templateHTML))

// Options controls the map viewport and labelling.
type Options struct {
	Path          string
	Title         string
	CenterLat     float64
	CenterLon     float64
	Zoom          int
	LabelField    string
	BoundaryLayer string
	PointLayer    string
}

// Composer stages the map document.
type Composer struct {
	opts Options
}

// NewComposer creates a Composer writing to opts.Path.
func NewComposer(opts Options) *Composer {
	return &Composer{opts: opts}
}

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type pageData struct {
	Title         string
	CenterLat     float64
	CenterLon     float64
	Zoom          int
	LabelField    string
	BoundaryLayer string
	PointLayer    string
	Boundaries    template.JS
	Markers       template.JS
	PointCount    int
	GeneratedAt   string
	RunID         string
}

// Prepare reprojects the boundaries to WGS84 and stages the rendered map.
func (c *Composer) Prepare(boundaries domain.BoundarySet, points domain.PointSet, run domain.RunInfo) (artifact.Artifact, error) {
	f, err := artifact.Stage(c.opts.Path, func(w io.Writer) error {
		return c.Render(w, boundaries, points, run)
	})
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", c.opts.Path, err)
	}
	return f, nil
}

// Render writes the map document to w.
func (c *Composer) Render(w io.Writer, boundaries domain.BoundarySet, points domain.PointSet, run domain.RunInfo) error {
	wgs, err := spatial.TransformBoundaries(boundaries, domain.WGS84)
	if err != nil {
		return fmt.Errorf("reproject boundaries: %w", err)
	}
	fc, err := featureCollection(wgs, c.opts.LabelField)
	if err != nil {
		return err
	}
	markers, err := json.Marshal(markersFor(points))
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}

	// encoding/json escapes <, > and & so both payloads are safe inside <script>.
	return page.Execute(w, pageData{
		Title:         c.opts.Title,
		CenterLat:     c.opts.CenterLat,
		CenterLon:     c.opts.CenterLon,
		Zoom:          c.opts.Zoom,
		LabelField:    c.opts.LabelField,
		BoundaryLayer: c.opts.BoundaryLayer,
		PointLayer:    c.opts.PointLayer,
		Boundaries:    template.JS(fc),      //nolint:gosec
		Markers:       template.JS(markers), //nolint:gosec
		PointCount:    points.Len(),
		GeneratedAt:   run.GeneratedAt.Format(time.RFC3339),
		RunID:         run.ID,
	})
}

func featureCollection(set domain.BoundarySet, labelField string) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(set.Polygons))}
	for _, p := range set.Polygons {
		props := make(map[string]interface{}, len(p.Properties)+1)
		for k, v := range p.Properties {
			props[k] = v
		}
		if p.Label != nil {
			props[labelField] = *p.Label
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: p.Geometry, Properties: props})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("encode boundaries: %w", err)
	}
	return data, nil
}

func markersFor(points domain.PointSet) []marker {
	out := make([]marker, len(points.Points))
	for i, p := range points.Points {
		out[i] = marker{Lat: p.Lat, Lon: p.Lon, Popup: popup(p)}
	}
	return out
}

// popup formats "guess (species)<br>observed", with missing values shown as
// "unknown".
func popup(p domain.ObservationPoint) string {
	return fmt.Sprintf("%s (%s)<br>%s", orUnknown(p.SpeciesGuess), orUnknown(p.SpeciesName), orUnknown(p.ObservedOn))
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return html.EscapeString(*s)
}
