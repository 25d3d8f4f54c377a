package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_DSN", "HTTP_PORT", "OCR_ENGINE", "OCR_ENGINE_PATH", "OCR_LANGUAGES",
		"EXPORT_DIR", "STORAGE_LOCATIONS", "CATEGORIES", "EXPIRY_ALERT_DAYS", "LOG_MODE", "LOG_FILE", "SEED_CSV"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "medicine.db", cfg.DatabaseDSN)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "cli", cfg.OCREngine)
	assert.Equal(t, "tesseract", cfg.EnginePath)
	assert.Equal(t, []string{"chi_sim", "eng"}, cfg.OCRLanguages)
	assert.Equal(t, []string{"A1", "B2", "C3"}, cfg.Locations)
	assert.Len(t, cfg.Categories, 3)
	assert.Equal(t, 30, cfg.ExpiryAlertDays)
	assert.Equal(t, "", cfg.LogFile)
	assert.Equal(t, "", cfg.SeedCSV)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OCR_ENGINE_PATH", "/opt/tesseract/bin/tesseract")
	t.Setenv("OCR_ENGINE", "GOSSERACT")
	t.Setenv("STORAGE_LOCATIONS", "D4, E5 ,")
	t.Setenv("EXPIRY_ALERT_DAYS", "7")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SEED_CSV", "assets/medicine.csv")

	cfg := Load()
	assert.Equal(t, "/opt/tesseract/bin/tesseract", cfg.EnginePath)
	assert.Equal(t, "gosseract", cfg.OCREngine)
	assert.Equal(t, []string{"D4", "E5"}, cfg.Locations)
	assert.Equal(t, 7, cfg.ExpiryAlertDays)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "assets/medicine.csv", cfg.SeedCSV)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "http")
	t.Setenv("EXPIRY_ALERT_DAYS", "soon")
	t.Setenv("OCR_ENGINE", "cloud")

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30, cfg.ExpiryAlertDays)
	assert.Equal(t, "cli", cfg.OCREngine)
}
