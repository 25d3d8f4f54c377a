package transfer

import (
	"context"
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"
	"go.uber.org/zap"
)

const sheetName = "Sheet1"

var xlsxColumns = []string{"A", "B", "C", "D", "E"}

// ExportXLSX writes the same table as ExportCSV into the first sheet of an
// xlsx workbook.
func ExportXLSX(ctx context.Context, src Source, path string) (int, error) {
	records, err := src.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	header := []interface{}{"id", "name", "location", "category", "expiry_date"}
	for col, v := range header {
		f.SetCellValue(sheetName, xlsxColumns[col]+"1", v)
	}
	for i, rec := range records {
		row := i + 2
		values := []interface{}{rec.ID, rec.Name, rec.Location, rec.Category, rec.ExpiryDate}
		for col, v := range values {
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", xlsxColumns[col], row), v)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	zap.L().Info("medicines exported", zap.String("path", path), zap.Int("rows", len(records)), zap.String("format", "xlsx"))
	return len(records), nil
}
