package seed

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"medstore/m/internal/transfer"
)

// Store is what seeding needs: a way to check for existing rows and to append
// exported ones.
type Store interface {
	transfer.Source
	transfer.Sink
}

// LoadMedicines imports the CSV at csvPath into an empty store. A store that
// already holds records, an empty path or a missing file leaves everything
// untouched. Rows rejected by the store are logged and skipped.
func LoadMedicines(ctx context.Context, s Store, csvPath string) (int, error) {
	if csvPath == "" {
		return 0, nil
	}
	if _, err := os.Stat(csvPath); errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("medicine seed file not found, skipping", zap.String("path", csvPath))
		return 0, nil
	}

	existing, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		zap.L().Debug("store already populated, skipping seed", zap.Int("rows", len(existing)))
		return 0, nil
	}

	report, err := transfer.ImportFile(ctx, s, csvPath)
	if err != nil {
		return 0, err
	}
	for _, f := range report.Failures {
		zap.L().Warn("seed row skipped", zap.Int("line", f.Line), zap.String("name", f.Name), zap.Error(f.Err))
	}
	zap.L().Info("seeded medicine store", zap.String("path", csvPath), zap.Int("rows", report.Imported))
	return report.Imported, nil
}
