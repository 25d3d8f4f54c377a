package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"medstore/m/internal/preprocess"
)

// Adapter extracts a single line of text from a label image with one engine
// pass. It never retries.
type Adapter struct {
	engine    Engine
	languages []string
}

// NewAdapter wraps engine. Languages default to simplified Chinese plus English.
func NewAdapter(engine Engine, languages ...string) *Adapter {
	if len(languages) == 0 {
		languages = []string{"chi_sim", "eng"}
	}
	return &Adapter{engine: engine, languages: append([]string(nil), languages...)}
}

// Recognize returns the trimmed text of img. ok is false when the engine
// produced nothing.
func (a *Adapter) Recognize(ctx context.Context, img *image.Gray) (text string, ok bool, err error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", false, fmt.Errorf("encode image: %w", err)
	}

	raw, err := a.engine.Recognize(ctx, Input{
		Image:       buf.Bytes(),
		Languages:   a.languages,
		PageSegMode: PSMSingleLine,
		EngineMode:  OEMDefault,
	})
	if err != nil {
		zap.L().Warn("ocr failed", zap.String("engine", a.engine.Name()), zap.Error(err))
		return "", false, err
	}

	text = strings.TrimSpace(raw)
	if text == "" {
		return "", false, nil
	}
	zap.L().Debug("ocr recognised", zap.String("engine", a.engine.Name()), zap.String("text", text))
	return text, true, nil
}

// ScanImage validates, decodes and binarizes an uploaded photo, then
// recognises it.
func (a *Adapter) ScanImage(ctx context.Context, r io.Reader, filename string) (string, bool, error) {
	if err := preprocess.CheckExtension(filename); err != nil {
		return "", false, err
	}
	img, err := preprocess.Load(r)
	if err != nil {
		return "", false, err
	}
	return a.Recognize(ctx, preprocess.Binarize(img))
}
