// Package ocr recognises a medicine name on a binarized label image. The
// recognition itself is delegated to an Engine so the tesseract binary and the
// libtesseract binding are interchangeable.
package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the recognition engine cannot run at all,
// for example a missing binary or language model.
var ErrUnavailable = errors.New("OCR engine unavailable")

// PageSegMode values understood by tesseract.
const (
	PSMSingleLine = 7
	// OEMDefault lets tesseract pick between its legacy and LSTM recognisers.
	OEMDefault = 3
)

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// Image is a PNG encoded image.
	Image []byte
	// Languages are tesseract language codes, e.g. "chi_sim", "eng".
	Languages   []string
	PageSegMode int
	EngineMode  int
}

// Engine recognises the text of a single image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}
