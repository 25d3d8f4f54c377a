package tesseract

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"medstore/m/internal/ocr"
)

// Engine implements ocr.Engine on top of libtesseract through gosseract.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a libtesseract-backed OCR engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image input. Errors from the library
// mean the engine or its language data is unusable and are reported as
// ocr.ErrUnavailable.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return "", fmt.Errorf("%w: set languages: %v", ocr.ErrUnavailable, err)
		}
	}
	if in.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(in.PageSegMode)); err != nil {
			return "", fmt.Errorf("%w: set page segmentation mode: %v", ocr.ErrUnavailable, err)
		}
	}
	if in.EngineMode > 0 {
		if err := c.SetVariable("tessedit_ocr_engine_mode", strconv.Itoa(in.EngineMode)); err != nil {
			return "", fmt.Errorf("%w: set engine mode: %v", ocr.ErrUnavailable, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ocr.ErrUnavailable, err)
	}
	return text, nil
}
