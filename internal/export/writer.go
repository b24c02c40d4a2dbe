package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/sightings-etl/internal/artifact"
	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// Format selects the export file type.
type Format string

// Supported export formats.
const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Writer produces the export artifact at a fixed path.
type Writer struct {
	path   string
	format Format
}

// NewWriter creates a Writer for path in the given format.
func NewWriter(path string, format Format) *Writer {
	return &Writer{path: path, format: format}
}

// Prepare projects the records and stages the export file. The file becomes
// visible at the configured path only once the artifact is committed.
func (w *Writer) Prepare(records []domain.JoinedRecord) (artifact.Artifact, error) {
	rows := Project(records)

	var (
		f   *artifact.File
		err error
	)
	switch w.format {
	case FormatCSV:
		f, err = artifact.Stage(w.path, func(out io.Writer) error { return writeCSV(out, rows) })
	case FormatXLSX:
		f, err = artifact.StagePath(w.path, func(tmp string) error { return writeXLSX(tmp, rows) })
	case FormatSQLite:
		f, err = artifact.StagePath(w.path, func(tmp string) error { return writeSQLite(tmp, rows) })
	default:
		return nil, fmt.Errorf("unsupported export format %q", w.format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", w.path, err)
	}
	return f, nil
}
