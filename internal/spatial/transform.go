package spatial

import (
	"fmt"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/twpayne/go-geom"
)

// coordFunc maps one x/y pair to another.
type coordFunc func(x, y float64) (float64, float64)

// transformer returns the coordinate mapping from one CRS to another, using
// WGS84 as the pivot.
func transformer(from, to domain.CRS) (coordFunc, error) {
	src, err := projectionFor(from)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", from, err)
	}
	dst, err := projectionFor(to)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", to, err)
	}
	return func(x, y float64) (float64, float64) {
		lon, lat := src.Inverse(x, y)
		return dst.Forward(lon, lat)
	}, nil
}

// transformGeom returns a copy of g with every coordinate passed through fn.
// Only the geometry types that appear in point and boundary sets are handled.
func transformGeom(g geom.T, fn coordFunc, srid int) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Point:
		c := t.Clone()
		transformFlat(c.FlatCoords(), c.Stride(), fn)
		return c.SetSRID(srid), nil
	case *geom.Polygon:
		c := t.Clone()
		transformFlat(c.FlatCoords(), c.Stride(), fn)
		return c.SetSRID(srid), nil
	case *geom.MultiPolygon:
		c := t.Clone()
		transformFlat(c.FlatCoords(), c.Stride(), fn)
		return c.SetSRID(srid), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

func transformFlat(flat []float64, stride int, fn coordFunc) {
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = fn(flat[i], flat[i+1])
	}
}
