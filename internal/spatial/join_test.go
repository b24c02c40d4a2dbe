package spatial_test

import (
	"testing"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// square returns an axis-aligned square polygon with its lower-left corner at
// (x, y).
func square(x, y, size float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x, y,
		x + size, y,
		x + size, y + size,
		x, y + size,
		x, y,
	}, []int{10})
}

func region(label string, g geom.T) domain.BoundaryPolygon {
	return domain.BoundaryPolygon{Label: &label, Geometry: g}
}

func labelOf(r domain.JoinedRecord) string {
	if r.RegionLabel == nil {
		return "<nil>"
	}
	return *r.RegionLabel
}

func TestJoin(t *testing.T) {
	boundaries := domain.BoundarySet{
		CRS: domain.WGS84,
		Polygons: []domain.BoundaryPolygon{
			region("West", square(0, 0, 1)),
			region("East", square(1, 0, 1)),
		},
	}

	t.Run("inside and outside", func(t *testing.T) {
		points := pointSet(domain.WGS84, [2]float64{0.5, 0.5}, [2]float64{5, 5}, [2]float64{1.5, 0.5})
		got, stats, err := spatial.Join(points, boundaries)
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, "West", labelOf(got[0]))
		assert.Equal(t, "<nil>", labelOf(got[1]))
		assert.Equal(t, "East", labelOf(got[2]))
		assert.Equal(t, spatial.JoinStats{Matched: 2, Unmatched: 1}, stats)

		for i, r := range got {
			assert.Equal(t, points.Points[i], r.ObservationPoint)
		}
	})

	t.Run("shared edge resolves to first polygon", func(t *testing.T) {
		points := pointSet(domain.WGS84, [2]float64{1, 0.5})
		for range 5 {
			got, _, err := spatial.Join(points, boundaries)
			require.NoError(t, err)
			assert.Equal(t, "West", labelOf(got[0]))
		}
	})

	t.Run("overlap takes collection order", func(t *testing.T) {
		overlapping := domain.BoundarySet{
			CRS: domain.WGS84,
			Polygons: []domain.BoundaryPolygon{
				region("Big", square(0, 0, 10)),
				region("Small", square(2, 2, 1)),
			},
		}
		got, _, err := spatial.Join(pointSet(domain.WGS84, [2]float64{2.5, 2.5}), overlapping)
		require.NoError(t, err)
		assert.Equal(t, "Big", labelOf(got[0]))
	})

	t.Run("no boundaries leaves every label nil", func(t *testing.T) {
		points := pointSet(domain.WGS84, [2]float64{0.5, 0.5}, [2]float64{1.5, 0.5})
		got, stats, err := spatial.Join(points, domain.BoundarySet{CRS: domain.WGS84})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, r := range got {
			assert.Nil(t, r.RegionLabel)
		}
		assert.Equal(t, 2, stats.Unmatched)
	})

	t.Run("empty point set", func(t *testing.T) {
		got, stats, err := spatial.Join(domain.PointSet{CRS: domain.WGS84}, boundaries)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, stats.Matched+stats.Unmatched)
	})

	t.Run("CRS mismatch", func(t *testing.T) {
		_, _, err := spatial.Join(pointSet(domain.WebMercator, [2]float64{0, 0}), boundaries)
		require.ErrorIs(t, err, domain.ErrCRSMismatch)
	})

	t.Run("unknown CRS", func(t *testing.T) {
		_, _, err := spatial.Join(pointSet("", [2]float64{0, 0}), boundaries)
		require.ErrorIs(t, err, domain.ErrUnknownCRS)
	})
}

func TestJoinProjectedBoundaries(t *testing.T) {
	// A 1°x1° box starting at the origin, expressed in web mercator.
	projected := domain.BoundarySet{
		CRS: domain.WebMercator,
		Polygons: []domain.BoundaryPolygon{
			region("Box", geom.NewPolygonFlat(geom.XY, []float64{
				0, 0,
				111319.49, 0,
				111319.49, 111325.14,
				0, 111325.14,
				0, 0,
			}, []int{10})),
		},
	}

	points, err := spatial.Reconcile(pointSet(domain.WGS84, [2]float64{0.5, 0.5}, [2]float64{1.5, 0.5}), projected.CRS)
	require.NoError(t, err)

	got, stats, err := spatial.Join(points, projected)
	require.NoError(t, err)
	assert.Equal(t, "Box", labelOf(got[0]))
	assert.Nil(t, got[1].RegionLabel)
	assert.Equal(t, spatial.JoinStats{Matched: 1, Unmatched: 1}, stats)

	// Exported coordinates stay in WGS84 after reprojection.
	assert.Equal(t, 0.5, got[0].Lon)
}

func TestWithin(t *testing.T) {
	// Outer ring 0..10 with a hole 4..6.
	withHole := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
		4, 4, 4, 6, 6, 6, 6, 4, 4, 4,
	}, []int{10, 20})

	multi := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 1, 0, 1, 1, 0, 1, 0, 0,
		5, 5, 6, 5, 6, 6, 5, 6, 5, 5,
	}, [][]int{{10}, {20}})

	tests := []struct {
		name string
		c    geom.Coord
		g    geom.T
		want bool
	}{
		{"interior", geom.Coord{1, 1}, withHole, true},
		{"outer edge", geom.Coord{0, 5}, withHole, true},
		{"vertex", geom.Coord{10, 10}, withHole, true},
		{"inside hole", geom.Coord{5, 5}, withHole, false},
		{"hole edge", geom.Coord{4, 5}, withHole, true},
		{"outside", geom.Coord{11, 5}, withHole, false},
		{"first member", geom.Coord{0.5, 0.5}, multi, true},
		{"second member", geom.Coord{5.5, 5.5}, multi, true},
		{"between members", geom.Coord{3, 3}, multi, false},
		{"point geometry", geom.Coord{0, 0}, geom.NewPointFlat(geom.XY, []float64{0, 0}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spatial.Within(tt.c, tt.g))
		})
	}
}
