// Package printer delivers rendered receipts to ESC/POS thermal
// printers over the network, through a retrying job queue.
package printer

import (
	"bytes"
	"image"
)

// ESC/POS control bytes.
const (
	escByte byte = 0x1B
	gsByte  byte = 0x1D
)

// Encoder accumulates an ESC/POS command stream. Receipts are printed
// as raster graphics, so the full pipeline is init, raster, feed, cut.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Init resets the printer to its power-on state.
func (e *Encoder) Init() {
	e.buf.Write([]byte{escByte, '@'})
}

// Raster emits the image line by line in 24-dot double-density bit
// image mode, thresholding pixels to black and white at 50% gray.
func (e *Encoder) Raster(img image.Image) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	bytesPerLine := (width + 7) / 8
	bmp := bitmap(img)

	for y := 0; y < height; y++ {
		e.buf.Write([]byte{escByte, '*', 33, byte(bytesPerLine), byte(bytesPerLine >> 8)})
		e.buf.Write(bmp[y*bytesPerLine : (y+1)*bytesPerLine])
		e.buf.WriteByte('\n')
	}
}

// Feed advances the paper n lines.
func (e *Encoder) Feed(n int) {
	for range n {
		e.buf.WriteByte('\n')
	}
}

// Cut performs a full paper cut.
func (e *Encoder) Cut() {
	e.buf.Write([]byte{gsByte, 'V', 0})
}

func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// EncodeReceipt wraps a rendered receipt image in the full print
// sequence; the trailing feed clears the cutter's blind zone before the
// cut.
func EncodeReceipt(img image.Image) []byte {
	e := NewEncoder()
	e.Init()
	e.Raster(img)
	e.Feed(3)
	e.Cut()
	return e.Bytes()
}

// bitmap packs the image into one bit per pixel, MSB first, dark pixels
// set.
func bitmap(img image.Image) []byte {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	bytesPerLine := (width + 7) / 8
	out := make([]byte, bytesPerLine*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			if (r+g+b)/3 < 0x8000 {
				out[y*bytesPerLine+x/8] |= 1 << (7 - x%8)
			}
		}
	}
	return out
}
