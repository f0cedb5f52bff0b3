package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/oydokon/webshop/internal/fonts"
)

// dotsPerPoint maps the page's point coordinates onto thermal printer
// pixels: an 80mm roll prints 576 dots wide.
const dotsPerPoint = 576.0 / pageWidth

// rasterRenderer replays a plan onto a gg canvas at printer density. It is
// the same display list the PDF path draws, so the raster receipt carries
// identical line breaks.
type rasterRenderer struct {
	reg    *fonts.Registry
	plan   Plan
	ctx    *gg.Context
	faces  map[float64]font.Face
	images map[imageSlot]image.Image
}

// RenderPNG rasterizes the plan with the supplied QR and barcode images
// and returns PNG bytes plus the number of lines drawn.
func RenderPNG(reg *fonts.Registry, plan Plan, qr, bc image.Image) ([]byte, int, error) {
	w := int(plan.PageWidth*dotsPerPoint + 0.5)
	h := int(plan.PageHeight*dotsPerPoint + 0.5)

	ctx := gg.NewContext(w, h)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)

	r := &rasterRenderer{
		reg:   reg,
		plan:  plan,
		ctx:   ctx,
		faces: make(map[float64]font.Face),
		images: map[imageSlot]image.Image{
			slotQR:      qr,
			slotBarcode: bc,
		},
	}

	drawn, err := plan.walk(reg, r)
	if err != nil {
		return nil, drawn, err
	}

	var buf bytes.Buffer
	if err := ctx.EncodePNG(&buf); err != nil {
		return nil, drawn, fmt.Errorf("encoding receipt png: %w", err)
	}
	return buf.Bytes(), drawn, nil
}

func (r *rasterRenderer) face(size float64) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := r.reg.Face(r.plan.FontName, size*dotsPerPoint)
	if err != nil {
		return nil, err
	}
	r.faces[size] = f
	return f, nil
}

func (r *rasterRenderer) Text(s string, x, y, size float64) {
	face, err := r.face(size)
	if err != nil {
		return
	}
	r.ctx.SetFontFace(face)
	r.ctx.DrawString(s, x*dotsPerPoint, (r.plan.PageHeight-y)*dotsPerPoint)
}

func (r *rasterRenderer) Rule(x1, y, x2 float64) {
	yPx := (r.plan.PageHeight - y) * dotsPerPoint
	r.ctx.SetLineWidth(2)
	r.ctx.DrawLine(x1*dotsPerPoint, yPx, x2*dotsPerPoint, yPx)
	r.ctx.Stroke()
}

func (r *rasterRenderer) Image(slot imageSlot, x, y, w, h float64) error {
	img, ok := r.images[slot]
	if !ok || img == nil {
		return fmt.Errorf("image slot %d not supplied", slot)
	}
	wPx := int(w*dotsPerPoint + 0.5)
	hPx := int(h*dotsPerPoint + 0.5)
	if img.Bounds().Dx() != wPx || img.Bounds().Dy() != hPx {
		// Nearest neighbor keeps code modules crisp for the scanner.
		img = imaging.Resize(img, wPx, hPx, imaging.NearestNeighbor)
	}
	r.ctx.DrawImage(img, int(x*dotsPerPoint), int((r.plan.PageHeight-y)*dotsPerPoint))
	return nil
}
