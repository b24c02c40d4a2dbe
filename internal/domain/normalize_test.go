package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeObservation(t *testing.T) {
	t.Run("axis order is lon then lat", func(t *testing.T) {
		raw := RawObservation{
			ID:           9001,
			GeoJSON:      &RawGeometry{Type: "Point", Coordinates: []float64{-1.5, 53.8}},
			Taxon:        &RawTaxon{Name: "Araneus diadematus"},
			SpeciesGuess: strPtr("Garden Spider"),
			ObservedOn:   strPtr("2025-03-01"),
		}

		p, err := NormalizeObservation(raw, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, p.ID)
		assert.Equal(t, 53.8, p.Lat)
		assert.Equal(t, -1.5, p.Lon)
		assert.Equal(t, "Araneus diadematus", *p.SpeciesName)
		assert.Equal(t, "Garden Spider", *p.SpeciesGuess)
		assert.Equal(t, "2025-03-01", *p.ObservedOn)
	})

	t.Run("missing taxon gives nil species name", func(t *testing.T) {
		raw := RawObservation{GeoJSON: &RawGeometry{Coordinates: []float64{0, 0}}}
		p, err := NormalizeObservation(raw, 1)
		require.NoError(t, err)
		assert.Nil(t, p.SpeciesName)
		assert.Nil(t, p.SpeciesGuess)
		assert.Nil(t, p.ObservedOn)
	})

	t.Run("taxon name passes through unchanged", func(t *testing.T) {
		for _, name := range []string{"  ", "", " Araneus diadematus "} {
			raw := RawObservation{
				GeoJSON: &RawGeometry{Coordinates: []float64{0, 0}},
				Taxon:   &RawTaxon{Name: name},
			}
			p, err := NormalizeObservation(raw, 1)
			require.NoError(t, err)
			require.NotNil(t, p.SpeciesName, "%q", name)
			assert.Equal(t, name, *p.SpeciesName)
		}
	})

	for name, geo := range map[string]*RawGeometry{
		"nil geometry":      nil,
		"empty coordinates": {Type: "Point"},
		"single coordinate": {Coordinates: []float64{1}},
		"NaN latitude":      {Coordinates: []float64{1, math.NaN()}},
		"infinite lon":      {Coordinates: []float64{math.Inf(1), 1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeObservation(RawObservation{GeoJSON: geo}, 1)
			require.ErrorIs(t, err, ErrNoGeometry)
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	records := []RawObservation{
		{GeoJSON: &RawGeometry{Coordinates: []float64{-1, 51}}},
		{},
		{GeoJSON: &RawGeometry{Coordinates: []float64{-2, 52}}},
	}

	set, dropped := NormalizeAll(records)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, WGS84, set.CRS)
	require.Equal(t, 2, set.Len())
	require.Len(t, set.Geoms, 2)

	// The dropped record still consumes id 2.
	assert.Equal(t, 1, set.Points[0].ID)
	assert.Equal(t, 3, set.Points[1].ID)

	assert.Equal(t, -2.0, set.Geoms[1].X())
	assert.Equal(t, 52.0, set.Geoms[1].Y())
}

func TestNormalizeAllEmpty(t *testing.T) {
	set, dropped := NormalizeAll(nil)
	assert.Zero(t, dropped)
	assert.Zero(t, set.Len())
	assert.Equal(t, WGS84, set.CRS)
}
