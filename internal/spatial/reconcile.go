package spatial

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/twpayne/go-geom"
)

// Reconcile reprojects the point set into target, the CRS of the boundary
// set it will be joined against. When both already share a CRS the input is
// returned unchanged. Either CRS being unknown yields ErrUnknownCRS; a pair
// with no available transform yields ErrUnsupportedCRS.
func Reconcile(points domain.PointSet, target domain.CRS) (domain.PointSet, error) {
	if !points.CRS.Known() {
		return domain.PointSet{}, fmt.Errorf("point set: %w", domain.ErrUnknownCRS)
	}
	if !target.Known() {
		return domain.PointSet{}, fmt.Errorf("boundary set: %w", domain.ErrUnknownCRS)
	}
	if points.CRS == target {
		return points, nil
	}

	fn, err := transformer(points.CRS, target)
	if err != nil {
		return domain.PointSet{}, err
	}

	out := domain.PointSet{
		CRS:    target,
		Points: slices.Clone(points.Points),
		Geoms:  make([]*geom.Point, len(points.Geoms)),
	}
	for i, g := range points.Geoms {
		t, err := transformGeom(g, fn, target.Code())
		if err != nil {
			return domain.PointSet{}, fmt.Errorf("point %d: %w", points.Points[i].ID, err)
		}
		out.Geoms[i] = t.(*geom.Point)
	}
	return out, nil
}

// TransformBoundaries reprojects every polygon in the set into target.
// Labels, properties, and order are preserved.
func TransformBoundaries(set domain.BoundarySet, target domain.CRS) (domain.BoundarySet, error) {
	if !set.CRS.Known() || !target.Known() {
		return domain.BoundarySet{}, domain.ErrUnknownCRS
	}
	if set.CRS == target {
		return set, nil
	}

	fn, err := transformer(set.CRS, target)
	if err != nil {
		return domain.BoundarySet{}, err
	}

	out := domain.BoundarySet{
		CRS:      target,
		Polygons: make([]domain.BoundaryPolygon, len(set.Polygons)),
	}
	for i, p := range set.Polygons {
		g, err := transformGeom(p.Geometry, fn, target.Code())
		if err != nil {
			return domain.BoundarySet{}, fmt.Errorf("polygon %d: %w", i, err)
		}
		out.Polygons[i] = domain.BoundaryPolygon{
			Label:      p.Label,
			Geometry:   g,
			Properties: p.Properties,
		}
	}
	return out, nil
}
