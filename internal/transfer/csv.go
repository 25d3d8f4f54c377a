package transfer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"medstore/m/domain"
)

// ExportCSV writes every record, id included, to path.
func ExportCSV(ctx context.Context, src Source, path string) (int, error) {
	records, err := src.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := WriteCSV(file, records); err != nil {
		_ = file.Close()
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	zap.L().Info("medicines exported", zap.String("path", path), zap.Int("rows", len(records)))
	return len(records), nil
}

// WriteCSV writes a BOM, the header row and one row per record.
func WriteCSV(w io.Writer, records []domain.MedicineRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if records == nil {
		records = []domain.MedicineRecord{}
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// ImportFile imports the CSV file at path into dst.
func ImportFile(ctx context.Context, dst Sink, path string) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer file.Close()
	return Import(ctx, dst, file)
}

// Import parses the whole table before writing anything, then appends rows
// one by one. Rows that the store rejects are collected in the report and the
// remaining rows are still imported.
func Import(ctx context.Context, dst Sink, r io.Reader) (Report, error) {
	records, err := ReadCSV(r)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		line := i + 2
		if _, err := dst.Restore(ctx, rec); err != nil {
			failure := rowFailure(line, rec, err)
			zap.L().Warn("import row rejected", zap.Int("line", line), zap.String("name", rec.Name), zap.Error(err))
			report.Failures = append(report.Failures, failure)
			continue
		}
		report.Imported++
	}
	zap.L().Info("medicines imported", zap.Int("rows", report.Imported), zap.Int("failed", len(report.Failures)))
	return report, nil
}

// ReadCSV parses an exported table, tolerating a leading BOM.
func ReadCSV(r io.Reader) ([]domain.MedicineRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, []byte(utf8BOM)) {
		_, _ = br.Discard(len(utf8BOM))
	}

	var records []domain.MedicineRecord
	if err := gocsv.Unmarshal(br, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return records, nil
}
