package spatial

import (
	"fmt"
	"math"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/wroge/wgs84"
)

// Projection converts between WGS84 longitude/latitude degrees and a
// projected or geographic coordinate system.
type Projection interface {
	// Forward converts WGS84 lon/lat degrees to x/y in the target system.
	Forward(lon, lat float64) (x, y float64)
	// Inverse converts x/y in the target system back to WGS84 lon/lat degrees.
	Inverse(x, y float64) (lon, lat float64)
}

// projections lists every CRS that can take part in a transform. Each entry
// maps to and from WGS84, which acts as the pivot between any two systems.
var projections = map[domain.CRS]Projection{
	domain.WGS84:       identity{},
	domain.WebMercator: newCRSProjection(wgs84.WebMercator(), webMercatorMaxLat),
	domain.BritishGrid: newCRSProjection(wgs84.OSGB36NationalGrid(), 90),
}

// Supported reports whether the CRS can be transformed to and from WGS84.
func Supported(c domain.CRS) bool {
	_, ok := projections[c]
	return ok
}

func projectionFor(c domain.CRS) (Projection, error) {
	if !c.Known() {
		return nil, domain.ErrUnknownCRS
	}
	p, ok := projections[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCRS, c)
	}
	return p, nil
}

type identity struct{}

func (identity) Forward(lon, lat float64) (float64, float64) { return lon, lat }
func (identity) Inverse(x, y float64) (float64, float64) { return x, y }

// webMercatorMaxLat clamps latitude where EPSG:3857 diverges.
const webMercatorMaxLat = 85.06

const (
	// inverseTolerance is the forward residual, in target units, at which
	// refinement stops.
	inverseTolerance = 1e-6
	inverseMaxSteps  = 5
	jacobianStep     = 1e-6
)

// crsProjection adapts a wgs84 reference system to Projection. Heights are
// dropped on the way in and out.
type crsProjection struct {
	forward wgs84.Func
	inverse wgs84.Func
	maxLat  float64
}

func newCRSProjection(crs wgs84.CoordinateReferenceSystem, maxLat float64) crsProjection {
	return crsProjection{
		forward: wgs84.To(crs),
		inverse: wgs84.From(crs),
		maxLat:  maxLat,
	}
}

func (p crsProjection) Forward(lon, lat float64) (float64, float64) {
	lat = math.Max(-p.maxLat, math.Min(p.maxLat, lat))
	x, y, _ := p.forward(lon, lat, 0)
	return x, y
}

// Inverse starts from the library's closed-form inverse and applies Newton
// steps against Forward, so a round trip returns the original point even
// where the inverse series is truncated.
func (p crsProjection) Inverse(x, y float64) (float64, float64) {
	lon, lat, _ := p.inverse(x, y, 0)
	for range inverseMaxSteps {
		fx, fy := p.Forward(lon, lat)
		rx, ry := x-fx, y-fy
		if math.Hypot(rx, ry) < inverseTolerance {
			break
		}
		ax, ay := p.Forward(lon+jacobianStep, lat)
		bx, by := p.Forward(lon, lat+jacobianStep)
		j11, j21 := (ax-fx)/jacobianStep, (ay-fy)/jacobianStep
		j12, j22 := (bx-fx)/jacobianStep, (by-fy)/jacobianStep
		det := j11*j22 - j12*j21
		if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			break
		}
		lon += (j22*rx - j12*ry) / det
		lat += (j11*ry - j21*rx) / det
	}
	return lon, lat
}
