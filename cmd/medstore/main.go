package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medstore/m/internal/api"
	"medstore/m/internal/config"
	"medstore/m/internal/logging"
	"medstore/m/internal/ocr"
	"medstore/m/internal/ocr/tesseract"
	"medstore/m/internal/seed"
	"medstore/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.Setup(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatalf("unable to set up logging: %v", err)
	}
	defer logger.Sync()

	records, err := store.NewSQLiteStore(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("unable to open medicine store", zap.String("dsn", cfg.DatabaseDSN), zap.Error(err))
	}
	if _, err := seed.LoadMedicines(context.Background(), records, cfg.SeedCSV); err != nil {
		logger.Warn("unable to seed medicine store", zap.Error(err))
	}

	var engine ocr.Engine
	switch cfg.OCREngine {
	case "gosseract":
		engine = tesseract.NewEngine()
	default:
		engine = ocr.NewCLIEngine(cfg.EnginePath)
	}
	scanner := ocr.NewAdapter(engine, cfg.OCRLanguages...)

	handler := api.New(records, scanner, api.Options{
		Locations:       cfg.Locations,
		Categories:      cfg.Categories,
		ExportDir:       cfg.ExportDir,
		ExpiryAlertDays: cfg.ExpiryAlertDays,
	})

	logger.Info("medicine management server starting",
		zap.String("port", cfg.HTTPPort),
		zap.String("ocr_engine", engine.Name()))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
