package domain

import (
	"math"

	"github.com/twpayne/go-geom"
)

// NormalizeObservation converts a raw observation into a point. seq is the
// 1-based position of the record in the full collected sequence and becomes
// the point ID. It returns ErrNoGeometry when the record carries no usable
// coordinates.
func NormalizeObservation(raw RawObservation, seq int) (ObservationPoint, error) {
	if raw.GeoJSON == nil || len(raw.GeoJSON.Coordinates) < 2 {
		return ObservationPoint{}, ErrNoGeometry
	}

	// GeoJSON order is [lon, lat].
	lon := raw.GeoJSON.Coordinates[0]
	lat := raw.GeoJSON.Coordinates[1]
	if !isFinite(lat) || !isFinite(lon) {
		return ObservationPoint{}, ErrNoGeometry
	}

	return ObservationPoint{
		ID:           seq,
		SpeciesName:  speciesName(raw.Taxon),
		SpeciesGuess: raw.SpeciesGuess,
		ObservedOn:   raw.ObservedOn,
		Lat:          lat,
		Lon:          lon,
	}, nil
}

// NormalizeAll converts every raw observation, dropping those without
// geometry. IDs reflect position in records, so a dropped record still
// consumes its ID. The returned set is in WGS84 with one point geometry per
// surviving observation.
func NormalizeAll(records []RawObservation) (PointSet, int) {
	set := PointSet{
		CRS:    WGS84,
		Points: make([]ObservationPoint, 0, len(records)),
		Geoms:  make([]*geom.Point, 0, len(records)),
	}
	dropped := 0
	for i, raw := range records {
		p, err := NormalizeObservation(raw, i+1)
		if err != nil {
			dropped++
			continue
		}
		set.Points = append(set.Points, p)
		set.Geoms = append(set.Geoms, geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}))
	}
	return set, dropped
}

// speciesName passes the taxon name through as given. Only a missing taxon
// yields nil.
func speciesName(t *RawTaxon) *string {
	if t == nil {
		return nil
	}
	name := t.Name
	return &name
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
