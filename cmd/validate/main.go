// Command validate checks a CSV sightings export for integrity: header
// layout, identifier ordering, coordinate ranges, and, when a boundary source
// is given, that every region label matches a fresh spatial join. An optional
// map document is checked against the export's row count.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -export spider_sightings_with_trust.csv \
//	  -boundaries data/trusts.geojson \
//	  -region-field Trust \
//	  -map spider_map.html
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/adapter/boundary"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/export"
	"github.com/couchcryptid/sightings-etl/internal/observability"
	"github.com/couchcryptid/sightings-etl/internal/spatial"
	"github.com/twpayne/go-geom"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// row is one parsed export row.
type row struct {
	line   int
	id     int
	lat    float64
	lon    float64
	region *string
}

func main() {
	exportPath := flag.String("export", "", "path to the CSV export")
	boundarySource := flag.String("boundaries", "", "optional boundary source (URL, GeoJSON file, or shapefile)")
	regionField := flag.String("region-field", "Trust", "boundary property holding the region label")
	boundaryCRS := flag.String("boundary-crs", "", "optional CRS override for the boundary source")
	mapPath := flag.String("map", "", "optional path to the map document")
	flag.Parse()

	if *exportPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	var crs domain.CRS
	if *boundaryCRS != "" {
		c, err := domain.ParseCRS(*boundaryCRS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(1)
		}
		crs = c
	}

	opts := options{
		exportPath:  *exportPath,
		mapPath:     *mapPath,
		boundaries:  *boundarySource,
		regionField: *regionField,
		crs:         crs,
	}
	os.Exit(run(context.Background(), opts, os.Stdout))
}

type options struct {
	exportPath  string
	mapPath     string
	boundaries  string
	regionField string
	crs         domain.CRS
}

func run(ctx context.Context, opts options, out io.Writer) int {
	fmt.Fprintln(out, "=== Sightings Export Validation ===")
	fmt.Fprintln(out)

	header, records, err := loadCSV(opts.exportPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load export: %v\n", err)
		return 1
	}

	headerPhase := validateHeader(header)
	rowPhase, rows := parseRows(records)
	phases := []*phase{
		headerPhase,
		rowPhase,
		validateIdentifiers(rows),
		validateCoordinates(rows),
	}

	if opts.boundaries != "" {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		loader := boundary.NewLoader(boundary.Options{
			Source:     opts.boundaries,
			LabelField: opts.regionField,
			CRS:        opts.crs,
			Timeout:    60 * time.Second,
		}, logger, observability.NewMetricsForTesting())
		set, err := loader.Load(ctx)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load boundaries: %v\n", err)
			return 1
		}
		phases = append(phases, validateRegions(rows, set))
	}
	if opts.mapPath != "" {
		phases = append(phases, validateMap(opts.mapPath, len(rows)))
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d rows, %d labelled\n", len(rows), countLabelled(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return all[0], all[1:], nil
}

func countLabelled(rows []row) int {
	n := 0
	for _, r := range rows {
		if r.region != nil {
			n++
		}
	}
	return n
}

// ── Phase 1: Header ──

func validateHeader(header []string) *phase {
	p := &phase{name: "Phase 1: Header layout"}
	if !slices.Equal(header, export.Columns) {
		p.errorf("header = %v, want %v", header, export.Columns)
	}
	return p
}

// ── Phase 2: Row parsing ──

func parseRows(records [][]string) (*phase, []row) {
	p := &phase{name: "Phase 2: Row shape"}
	rows := make([]row, 0, len(records))
	for i, rec := range records {
		line := i + 2
		if len(rec) != len(export.Columns) {
			p.errorf("line %d: %d fields, want %d", line, len(rec), len(export.Columns))
			continue
		}
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			p.errorf("line %d: id %q is not an integer", line, rec[0])
			continue
		}
		lat, errLat := strconv.ParseFloat(rec[4], 64)
		lon, errLon := strconv.ParseFloat(rec[5], 64)
		if errLat != nil || errLon != nil {
			p.errorf("line %d: unparseable coordinates %q, %q", line, rec[4], rec[5])
			continue
		}
		r := row{line: line, id: id, lat: lat, lon: lon}
		if label := rec[6]; label != "" {
			r.region = &label
		}
		rows = append(rows, r)
	}
	return p, rows
}

// ── Phase 3: Identifiers ──
// Ids are 1-based collection positions: strictly increasing, gaps allowed
// where records were dropped.

func validateIdentifiers(rows []row) *phase {
	p := &phase{name: "Phase 3: Identifier ordering"}
	prev := 0
	for _, r := range rows {
		if r.id <= 0 {
			p.errorf("line %d: id %d is not positive", r.line, r.id)
		}
		if r.id <= prev {
			p.errorf("line %d: id %d does not follow %d", r.line, r.id, prev)
		}
		prev = r.id
	}
	return p
}

// ── Phase 4: Coordinates ──

func validateCoordinates(rows []row) *phase {
	p := &phase{name: "Phase 4: Coordinate ranges"}
	for _, r := range rows {
		if math.IsNaN(r.lat) || math.IsInf(r.lat, 0) || r.lat < -90 || r.lat > 90 {
			p.errorf("line %d: latitude %v out of range", r.line, r.lat)
		}
		if math.IsNaN(r.lon) || math.IsInf(r.lon, 0) || r.lon < -180 || r.lon > 180 {
			p.errorf("line %d: longitude %v out of range", r.line, r.lon)
		}
	}
	return p
}

// ── Phase 5: Region labels ──
// Re-runs the spatial join against the boundary source and compares labels.

func validateRegions(rows []row, set domain.BoundarySet) *phase {
	p := &phase{name: "Phase 5: Region labels match boundaries"}

	points := domain.PointSet{CRS: domain.WGS84}
	for _, r := range rows {
		points.Points = append(points.Points, domain.ObservationPoint{ID: r.id, Lat: r.lat, Lon: r.lon})
		points.Geoms = append(points.Geoms, geom.NewPointFlat(geom.XY, []float64{r.lon, r.lat}))
	}

	projected, err := spatial.Reconcile(points, set.CRS)
	if err != nil {
		p.errorf("reconcile: %v", err)
		return p
	}
	joined, _, err := spatial.Join(projected, set)
	if err != nil {
		p.errorf("join: %v", err)
		return p
	}

	for i, rec := range joined {
		got, want := rows[i].region, rec.RegionLabel
		if !ptrStrEq(got, want) {
			p.errorf("line %d (id %d): region %s, boundaries say %s", rows[i].line, rows[i].id, ptrStr(got), ptrStr(want))
		}
	}
	return p
}

// ── Phase 6: Map document ──

func validateMap(path string, rowCount int) *phase {
	p := &phase{name: "Phase 6: Map document"}
	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read map: %v", err)
		return p
	}
	html := string(data)
	for _, want := range []string{"L.map(", "L.markerClusterGroup(", "L.geoJSON("} {
		if !strings.Contains(html, want) {
			p.errorf("map is missing %s", want)
		}
	}
	if want := fmt.Sprintf("%d sightings", rowCount); !strings.Contains(html, want) {
		p.errorf("map footer does not report %q", want)
	}
	return p
}

func ptrStrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrStr(s *string) string {
	if s == nil {
		return "<none>"
	}
	return strconv.Quote(*s)
}
