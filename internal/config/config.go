package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"medstore/m/domain"
)

// Config holds application configuration values.
type Config struct {
	DatabaseDSN string
	HTTPPort    string

	// OCREngine selects the recognition backend: "cli" runs the binary at
	// EnginePath, "gosseract" links libtesseract.
	OCREngine    string
	EnginePath   string
	OCRLanguages []string

	ExportDir       string
	Locations       []string
	Categories      []string
	ExpiryAlertDays int
	SeedCSV         string

	LogMode string
	LogFile string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	cfg := Config{
		DatabaseDSN:  envOr("DATABASE_DSN", "medicine.db"),
		HTTPPort:     envOr("HTTP_PORT", "8080"),
		OCREngine:    strings.ToLower(envOr("OCR_ENGINE", "cli")),
		EnginePath:   envOr("OCR_ENGINE_PATH", "tesseract"),
		OCRLanguages: splitList(envOr("OCR_LANGUAGES", "chi_sim+eng"), "+"),
		ExportDir:    envOr("EXPORT_DIR", "."),
		Locations:    splitList(os.Getenv("STORAGE_LOCATIONS"), ","),
		Categories:   splitList(os.Getenv("CATEGORIES"), ","),
		SeedCSV:      os.Getenv("SEED_CSV"),
		LogMode:      envOr("LOG_MODE", "development"),
		LogFile:      os.Getenv("LOG_FILE"),
	}
	if len(cfg.Locations) == 0 {
		cfg.Locations = append([]string(nil), domain.DefaultLocations...)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = append([]string(nil), domain.DefaultCategories...)
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		zap.S().Warnf("invalid HTTP_PORT value %q, defaulting to 8080", cfg.HTTPPort)
		cfg.HTTPPort = "8080"
	}

	days, err := cast.ToIntE(envOr("EXPIRY_ALERT_DAYS", "30"))
	if err != nil || days <= 0 {
		zap.S().Warnf("invalid EXPIRY_ALERT_DAYS value %q, defaulting to 30", os.Getenv("EXPIRY_ALERT_DAYS"))
		days = 30
	}
	cfg.ExpiryAlertDays = days

	if cfg.OCREngine != "cli" && cfg.OCREngine != "gosseract" {
		zap.S().Warnf("unknown OCR_ENGINE %q, defaulting to cli", cfg.OCREngine)
		cfg.OCREngine = "cli"
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
