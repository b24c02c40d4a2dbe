package domain

import "github.com/twpayne/go-geom"

// BoundaryPolygon is one region from the boundary source. Geometry is a
// *geom.Polygon or *geom.MultiPolygon expressed in the owning set's CRS.
type BoundaryPolygon struct {
	Label      *string
	Geometry   geom.T
	Properties map[string]any
}

// BoundarySet is the full, ordered boundary collection for a run. Order is
// significant: it decides which region wins when regions overlap.
type BoundarySet struct {
	CRS      CRS
	Polygons []BoundaryPolygon
}

// Labels returns the distinct non-nil labels in collection order.
func (s BoundarySet) Labels() []string {
	seen := make(map[string]bool, len(s.Polygons))
	labels := make([]string, 0, len(s.Polygons))
	for _, p := range s.Polygons {
		if p.Label == nil || seen[*p.Label] {
			continue
		}
		seen[*p.Label] = true
		labels = append(labels, *p.Label)
	}
	return labels
}

// PointSet holds normalized observation points together with their geometry.
// Geoms[i] is the location of Points[i] expressed in CRS.
type PointSet struct {
	CRS    CRS
	Points []ObservationPoint
	Geoms  []*geom.Point
}

// Len returns the number of points in the set.
func (s PointSet) Len() int { return len(s.Points) }
