// Package transfer exports the medicine table to CSV or XLSX and imports CSV
// files produced by the export back into a store.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

var (
	// ErrWrite is returned when an export file cannot be written.
	ErrWrite = errors.New("export write failed")
	// ErrRead is returned when an import file cannot be read or parsed.
	ErrRead = errors.New("import read failed")
	// ErrImportRowConflict marks an imported row that collided with an
	// existing name or id.
	ErrImportRowConflict = errors.New("import row conflicts with an existing record")
)

// utf8BOM is written ahead of exported CSV so spreadsheet tools detect UTF-8.
const utf8BOM = "\xEF\xBB\xBF"

// Source provides the records to export.
type Source interface {
	ListAll(ctx context.Context) ([]domain.MedicineRecord, error)
}

// Sink receives imported rows verbatim.
type Sink interface {
	Restore(ctx context.Context, rec domain.MedicineRecord) (domain.MedicineRecord, error)
}

// RowError describes one import row that was not written.
type RowError struct {
	// Line is the 1-based line in the file; the header is line 1.
	Line int
	Name string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Name, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Report summarises an import.
type Report struct {
	Imported int
	Failures []RowError
}

// OK reports whether every row was imported.
func (r Report) OK() bool { return len(r.Failures) == 0 }

func rowFailure(line int, rec domain.MedicineRecord, err error) RowError {
	if errors.Is(err, store.ErrDuplicateName) || errors.Is(err, store.ErrDuplicateID) {
		err = fmt.Errorf("%w: %w", ErrImportRowConflict, err)
	}
	return RowError{Line: line, Name: rec.Name, Err: err}
}
