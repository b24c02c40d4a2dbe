package spatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Within reports whether c lies within g, a *geom.Polygon or
// *geom.MultiPolygon. Points on the boundary count as within, including
// points on the edge of a hole. Other geometry types never contain a point.
func Within(c geom.Coord, g geom.T) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, c)
	case *geom.MultiPolygon:
		for i := range t.NumPolygons() {
			if polygonContains(t.Polygon(i), c) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	rings := p.NumLinearRings()
	if rings == 0 {
		return false
	}
	layout := p.Layout()
	if xy.LocatePointInRing(layout, c, p.LinearRing(0).FlatCoords()) == location.Exterior {
		return false
	}
	for i := 1; i < rings; i++ {
		if xy.LocatePointInRing(layout, c, p.LinearRing(i).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}
