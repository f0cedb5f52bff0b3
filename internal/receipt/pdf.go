package receipt

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-pdf/fpdf"

	"github.com/oydokon/webshop/internal/fonts"
)

type renderState int

const (
	stateOpened renderState = iota
	stateWriting
	stateFinalized
)

// Renderer writes a plan onto a PDF page. It moves through three states:
// Opened (canvas allocated at the plan's dimensions), Writing (the cursor
// walks the display list top to bottom), Finalized (bytes flushed, no
// further writes). The page uses the plan's bottom-left-origin coordinates;
// conversion to PDF's top-down space happens at the draw calls.
type Renderer struct {
	reg    *fonts.Registry
	plan   Plan
	doc    *fpdf.Fpdf
	state  renderState
	drawn  int
	images map[imageSlot][]byte
}

// NewRenderer opens a canvas sized per the plan and embeds the plan's font.
func NewRenderer(reg *fonts.Registry, plan Plan) (*Renderer, error) {
	program := reg.Bytes(plan.FontName)
	if program == nil {
		return nil, fmt.Errorf("font %q not registered", plan.FontName)
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: plan.PageWidth, Ht: plan.PageHeight},
	})
	// The font loader keeps the slice; hand it a copy so the registry's
	// bytes stay pristine.
	doc.AddUTF8FontFromBytes(plan.FontName, "", slices.Clone(program))
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	doc.SetFont(plan.FontName, "", plan.FontSize)
	doc.SetTextColor(0, 0, 0)
	doc.SetDrawColor(0, 0, 0)

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("opening pdf canvas: %w", err)
	}

	return &Renderer{
		reg:    reg,
		plan:   plan,
		doc:    doc,
		state:  stateOpened,
		images: make(map[imageSlot][]byte),
	}, nil
}

// SetQR supplies the PNG bytes drawn into the QR reservation.
func (r *Renderer) SetQR(png []byte) { r.images[slotQR] = png }

// SetBarcode supplies the PNG bytes drawn into the barcode reservation.
func (r *Renderer) SetBarcode(png []byte) { r.images[slotBarcode] = png }

// Render replays the plan's display list once.
func (r *Renderer) Render() error {
	if r.state != stateOpened {
		return fmt.Errorf("render: canvas not in opened state")
	}
	r.state = stateWriting

	drawn, err := r.plan.walk(r.reg, r)
	r.drawn = drawn
	if err != nil {
		return err
	}
	if err := r.doc.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

// Finalize flushes the document. The renderer accepts no writes afterwards.
func (r *Renderer) Finalize() ([]byte, error) {
	if r.state != stateWriting {
		return nil, fmt.Errorf("finalize: nothing rendered")
	}
	r.state = stateFinalized

	var buf bytes.Buffer
	if err := r.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("flushing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// DrawnLines reports how many text and rule lines the writing pass emitted;
// it must equal the plan's LineCount.
func (r *Renderer) DrawnLines() int { return r.drawn }

// driver implementation. y arrives in bottom-left-origin points.

func (r *Renderer) Text(s string, x, y, size float64) {
	r.doc.SetFontSize(size)
	r.doc.Text(x, r.plan.PageHeight-y, s)
}

func (r *Renderer) Rule(x1, y, x2 float64) {
	r.doc.SetLineWidth(0.7)
	r.doc.Line(x1, r.plan.PageHeight-y, x2, r.plan.PageHeight-y)
}

func (r *Renderer) Image(slot imageSlot, x, y, w, h float64) error {
	data, ok := r.images[slot]
	if !ok {
		return fmt.Errorf("image slot %d not supplied", slot)
	}
	name := fmt.Sprintf("slot-%d", slot)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	r.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	r.doc.ImageOptions(name, x, r.plan.PageHeight-y, w, h, false, opts, 0, "")
	return nil
}
