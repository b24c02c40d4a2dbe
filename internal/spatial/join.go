package spatial

import (
	"fmt"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/twpayne/go-geom"
)

// JoinStats summarizes a spatial join.
type JoinStats struct {
	Matched   int
	Unmatched int
}

// Index holds a boundary set prepared for repeated point lookups.
type Index struct {
	entries []indexEntry
}

type indexEntry struct {
	polygon domain.BoundaryPolygon
	bounds  *geom.Bounds
}

// NewIndex prepares the boundary set for lookups, keeping collection order.
func NewIndex(set domain.BoundarySet) *Index {
	idx := &Index{entries: make([]indexEntry, 0, len(set.Polygons))}
	for _, p := range set.Polygons {
		if p.Geometry == nil {
			continue
		}
		idx.entries = append(idx.entries, indexEntry{polygon: p, bounds: p.Geometry.Bounds()})
	}
	return idx
}

// Locate returns the first polygon, in collection order, that c falls
// within. The boolean is false when no polygon contains c.
func (idx *Index) Locate(c geom.Coord) (domain.BoundaryPolygon, bool) {
	for _, e := range idx.entries {
		if !e.bounds.OverlapsPoint(geom.XY, c) {
			continue
		}
		if Within(c, e.polygon.Geometry) {
			return e.polygon, true
		}
	}
	return domain.BoundaryPolygon{}, false
}

// Join performs a left-outer "within" join of points against boundaries.
// Every point yields exactly one record, in input order. A point contained by
// several polygons takes the first in boundary order; a point contained by
// none gets a nil RegionLabel. Both sets must share a known CRS.
func Join(points domain.PointSet, boundaries domain.BoundarySet) ([]domain.JoinedRecord, JoinStats, error) {
	if !points.CRS.Known() || !boundaries.CRS.Known() {
		return nil, JoinStats{}, domain.ErrUnknownCRS
	}
	if points.CRS != boundaries.CRS {
		return nil, JoinStats{}, fmt.Errorf("%w: points %s, boundaries %s",
			domain.ErrCRSMismatch, points.CRS, boundaries.CRS)
	}
	if len(points.Geoms) != len(points.Points) {
		return nil, JoinStats{}, fmt.Errorf("point set has %d points but %d geometries",
			len(points.Points), len(points.Geoms))
	}

	idx := NewIndex(boundaries)
	out := make([]domain.JoinedRecord, len(points.Points))
	var stats JoinStats
	for i, p := range points.Points {
		out[i] = domain.JoinedRecord{ObservationPoint: p}
		poly, ok := idx.Locate(points.Geoms[i].Coords())
		if !ok {
			stats.Unmatched++
			continue
		}
		out[i].RegionLabel = poly.Label
		stats.Matched++
	}
	return out, stats, nil
}
