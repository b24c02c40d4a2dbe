package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/couchcryptid/sightings-etl/internal/artifact"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// Region boxes used by the mock boundary source, in WGS84 degrees.
var mockRegions = []struct {
	label          string
	minLon, maxLon float64
}{
	{"West", -3, -1},
	{"Central", -1, 1},
	{"East", 1, 3},
}

// mockObservation builds the i-th (0-based) record of the mock collection.
// Every fiftieth record has no geometry, and every fourth lies outside all
// regions.
func mockObservation(i int) domain.RawObservation {
	guess := fmt.Sprintf("guess %d", i+1)
	obs := domain.RawObservation{
		ID:           int64(1000 + i),
		Taxon:        &domain.RawTaxon{Name: "Araneus diadematus"},
		SpeciesGuess: &guess,
	}
	if i%50 == 49 {
		return obs
	}
	lon := []float64{-2, 0, 2, 10}[i%4]
	obs.GeoJSON = &domain.RawGeometry{Type: "Point", Coordinates: []float64{lon, 52}}
	return obs
}

// mockSource serves total records in pages and records every request.
type mockSource struct {
	total     int
	failCount bool
	failPages map[int]bool

	mu    sync.Mutex
	calls []int
}

func (m *mockSource) FetchPage(_ context.Context, page, perPage int) (domain.ObservationPage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, page)
	first := len(m.calls) == 1
	m.mu.Unlock()

	if first && m.failCount {
		return domain.ObservationPage{}, &domain.StatusError{URL: "mock", StatusCode: 503}
	}
	if !first && m.failPages[page] {
		return domain.ObservationPage{}, errors.New("connection reset")
	}

	var results []domain.RawObservation
	for i := (page - 1) * perPage; i < page*perPage && i < m.total; i++ {
		results = append(results, mockObservation(i))
	}
	return domain.ObservationPage{TotalResults: m.total, Page: page, PerPage: perPage, Results: results}, nil
}

func (m *mockSource) requests() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.calls...)
}

// mockBoundaries returns the three mock regions in the given CRS.
type mockBoundaries struct {
	crs domain.CRS
	err error
}

func (m *mockBoundaries) Load(_ context.Context) (domain.BoundarySet, error) {
	if m.err != nil {
		return domain.BoundarySet{}, m.err
	}
	set := domain.BoundarySet{CRS: m.crs}
	for _, r := range mockRegions {
		label := r.label
		poly := geom.NewPolygonFlat(geom.XY, []float64{
			r.minLon, 50, r.maxLon, 50, r.maxLon, 54, r.minLon, 54, r.minLon, 50,
		}, []int{10})
		set.Polygons = append(set.Polygons, domain.BoundaryPolygon{
			Label:      &label,
			Geometry:   poly,
			Properties: map[string]any{"Trust": label},
		})
	}
	return set, nil
}

// stubArtifact is an in-memory artifact with injectable failures.
type stubArtifact struct {
	path      string
	commitErr error
	committed bool
	discarded bool
}

func (a *stubArtifact) Path() string { return a.path }

func (a *stubArtifact) Commit() error {
	if a.commitErr != nil {
		return a.commitErr
	}
	a.committed = true
	return nil
}

func (a *stubArtifact) Discard() error {
	a.discarded = true
	return nil
}

type stubMapper struct {
	prepareErr error
	art        *stubArtifact
	points     int
	crs        domain.CRS
}

func (m *stubMapper) Prepare(_ domain.BoundarySet, points domain.PointSet, _ domain.RunInfo) (artifact.Artifact, error) {
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	m.points = points.Len()
	m.crs = points.CRS
	if m.art == nil {
		m.art = &stubArtifact{path: "map.html"}
	}
	return m.art, nil
}

type stubPublisher struct {
	err     error
	records int
	runID   string
}

func (p *stubPublisher) Publish(_ context.Context, run domain.RunInfo, records []domain.JoinedRecord) error {
	p.runID = run.ID
	if p.err != nil {
		return p.err
	}
	p.records = len(records)
	return nil
}

// dirEntries lists file names in dir, including staged temp files.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func outPath(dir, name string) string { return filepath.Join(dir, name) }
