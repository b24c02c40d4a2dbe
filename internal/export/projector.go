// Package export projects joined records onto the fixed export columns and
// writes them as CSV, XLSX, or SQLite.
package export

import (
	"strconv"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// Columns is the export header, in output order.
var Columns = []string{"id", "speciesName", "speciesGuess", "observedOn", "lat", "lon", "regionLabel"}

// Row is one exported record. Nil fields are written as empty cells or NULL.
type Row struct {
	ID           int
	SpeciesName  *string
	SpeciesGuess *string
	ObservedOn   *string
	Lat          float64
	Lon          float64
	RegionLabel  *string
}

// Project selects the export columns from each record, keeping order.
func Project(records []domain.JoinedRecord) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			ID:           r.ID,
			SpeciesName:  r.SpeciesName,
			SpeciesGuess: r.SpeciesGuess,
			ObservedOn:   r.ObservedOn,
			Lat:          r.Lat,
			Lon:          r.Lon,
			RegionLabel:  r.RegionLabel,
		}
	}
	return rows
}

// Strings renders the row as text cells in Columns order.
func (r Row) Strings() []string {
	return []string{
		strconv.Itoa(r.ID),
		deref(r.SpeciesName),
		deref(r.SpeciesGuess),
		deref(r.ObservedOn),
		formatCoord(r.Lat),
		formatCoord(r.Lon),
		deref(r.RegionLabel),
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
