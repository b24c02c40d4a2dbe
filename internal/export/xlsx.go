package export

import (
	"fmt"

	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet holding the export.
const SheetName = "sightings"

func writeXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.ID)
		addOptional(row, r.SpeciesName)
		addOptional(row, r.SpeciesGuess)
		addOptional(row, r.ObservedOn)
		row.AddCell().SetFloat(r.Lat)
		row.AddCell().SetFloat(r.Lon)
		addOptional(row, r.RegionLabel)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("xlsx: save: %w", err)
	}
	return nil
}

// addOptional appends a string cell, left blank when s is nil.
func addOptional(row *xlsx.Row, s *string) {
	cell := row.AddCell()
	if s != nil {
		cell.SetString(*s)
	}
}
