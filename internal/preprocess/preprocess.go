// Package preprocess turns a photographed label into a two-valued image that
// tesseract reads reliably: grayscale, a 5x5 gaussian blur, then an Otsu
// threshold.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const kernelSize = 5

var (
	// ErrDecode is returned when the uploaded bytes are not a readable image.
	ErrDecode = errors.New("image decode failure")
	// ErrUnsupportedFormat is returned for files that are neither JPEG nor PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format, use .jpg or .png")
)

// CheckExtension accepts .jpg, .jpeg and .png file names.
func CheckExtension(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Load decodes an image, honouring EXIF orientation of phone photos.
func Load(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Binarize converts img into an image whose pixels are either 0 or 255.
func Binarize(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	blurred := imaging.Convolve5x5(gray, gaussianKernel(), nil)

	bounds := blurred.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	var hist [256]int
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			v := blurred.Pix[y*blurred.Stride+x*4]
			out.Pix[y*out.Stride+x] = v
			hist[v]++
		}
	}

	t := Otsu(hist)
	for i, v := range out.Pix {
		if v > t {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// Otsu returns the threshold that maximises between-class variance of hist.
// Pixels strictly above the threshold belong to the foreground class.
func Otsu(hist [256]int) uint8 {
	var total, sum float64
	for i, n := range hist {
		total += float64(n)
		sum += float64(i) * float64(n)
	}

	var (
		weightBg, sumBg float64
		best            = -1.0
		threshold       uint8
	)
	for t := 0; t < 256; t++ {
		weightBg += float64(hist[t])
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t) * float64(hist[t])
		meanBg := sumBg / weightBg
		meanFg := (sum - sumBg) / weightFg
		between := weightBg * weightFg * (meanBg - meanFg) * (meanBg - meanFg)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// gaussianKernel builds the normalised 5x5 kernel. Sigma follows OpenCV's
// rule for a non-positive sigma: 0.3*((k-1)*0.5-1)+0.8.
func gaussianKernel() [25]float64 {
	sigma := 0.3*(float64(kernelSize-1)*0.5-1) + 0.8
	var row [kernelSize]float64
	var rowSum float64
	for i := range row {
		d := float64(i - kernelSize/2)
		row[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		rowSum += row[i]
	}
	var k [25]float64
	for y := 0; y < kernelSize; y++ {
		for x := 0; x < kernelSize; x++ {
			k[y*kernelSize+x] = (row[y] / rowSum) * (row[x] / rowSum)
		}
	}
	return k
}
