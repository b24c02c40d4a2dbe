package export

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// TableName is the table holding the export.
const TableName = "sightings"

const createTableSQL = `CREATE TABLE sightings (
	id           INTEGER PRIMARY KEY,
	speciesName  TEXT,
	speciesGuess TEXT,
	observedOn   TEXT,
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	regionLabel  TEXT
)`

const insertSQL = `INSERT INTO sightings
	(id, speciesName, speciesGuess, observedOn, lat, lon, regionLabel)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

func writeSQLite(path string, rows []Row) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite: open: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("sqlite: close: %w", cerr)
		}
	}()

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback() //nolint:errcheck // prepare error takes precedence
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.ID, nullString(r.SpeciesName), nullString(r.SpeciesGuess),
			nullString(r.ObservedOn), r.Lat, r.Lon, nullString(r.RegionLabel))
		if err != nil {
			tx.Rollback() //nolint:errcheck // insert error takes precedence
			return fmt.Errorf("sqlite: insert row %d: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
