// Package receipt turns a stored order into a printable thermal receipt.
//
// Generation is two-pass: Estimate wraps every text block to predict the
// page height, and the renderers replay exactly the wrapped lines the
// estimate produced. The passes can never disagree on line counts because
// there is only one wrap.
package receipt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/oydokon/webshop/internal/fonts"
	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

// All distances are PDF points; the page is an 80mm thermal roll of
// computed height.
const (
	mm = 72.0 / 25.4

	pageWidth    = 80 * mm
	leftMargin   = 6 * mm
	rightMargin  = 6 * mm
	topMargin    = 6 * mm
	bottomMargin = 8 * mm

	qrSide        = 40 * mm
	barcodeWidth  = 44 * mm
	barcodeHeight = 10 * mm
	imageGap      = 4.0

	// priceColumn reserves room beside item names for the qty/price
	// figures. Both passes use this one constant.
	priceColumn = 30 * mm

	// fixedPadding is the small slack the height formula always adds.
	fixedPadding = 20.0

	// MinPageHeight keeps very short orders legible; anything shorter is
	// clamped up to it.
	MinPageHeight = 120 * mm

	// DefaultFontSize suits 80mm receipt paper.
	DefaultFontSize = 10.0
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

type elemKind int

const (
	elemText  elemKind = iota
	elemSplit          // one line with left and right-aligned halves
	elemRule
	elemImage
)

type imageSlot int

const (
	slotBarcode imageSlot = iota
	slotQR
)

// element is one entry of the receipt's linear display list.
type element struct {
	kind        elemKind
	lines       []string // elemText: pre-wrapped lines
	left, right string   // elemSplit
	size        float64
	align       align
	slot        imageSlot // elemImage
	w, h        float64
}

func (e element) lineCount() int {
	switch e.kind {
	case elemText:
		return len(e.lines)
	case elemSplit, elemRule:
		return 1
	}
	return 0
}

// Plan is the estimator's output: page dimensions plus the display list the
// renderers replay. Building it performs no drawing and is repeatable.
type Plan struct {
	FontName     string
	FontSize     float64
	LineHeight   float64
	PageWidth    float64
	PageHeight   float64
	ContentWidth float64
	LineCount    int
	Clamped      bool

	elements []element
}

// Layout runs the estimation pass. FontName should come through
// fonts.Registry.Resolve so both passes see the same font.
type Layout struct {
	Fonts    *fonts.Registry
	FontName string
	FontSize float64
}

// NewLayout resolves the requested font against the registry and applies
// the default size when none is given.
func NewLayout(reg *fonts.Registry, requestedFont string, size float64) Layout {
	if size <= 0 {
		size = DefaultFontSize
	}
	return Layout{Fonts: reg, FontName: reg.Resolve(requestedFont), FontSize: size}
}

// Estimate wraps every block of the receipt in its fixed sequence and
// derives the page height. lineHeight is size × 1.3 for every line
// regardless of the block's own font size, matching the renderer's cursor
// steps.
func (l Layout) Estimate(order *store.Order, items []orderformat.LineItem) Plan {
	size := l.FontSize
	headerSize := size + 1
	contentWidth := pageWidth - leftMargin - rightMargin

	wrap := func(text string, sz, maxW float64) []string {
		return slices.Collect(Wrap(l.Fonts, text, l.FontName, sz, maxW))
	}

	var elems []element

	for _, line := range []string{
		"ONLINE DO'KON / ОНЛАЙН МАГАЗИН",
		fmt.Sprintf("Chek / Чек: %d", order.ID),
		fmt.Sprintf("Sana / Дата: %s", order.CreatedAt.Format("2006-01-02 15:04")),
	} {
		elems = append(elems, element{
			kind:  elemText,
			lines: wrap(line, headerSize, contentWidth),
			size:  headerSize,
			align: alignCenter,
		})
	}

	for _, line := range []string{
		"Ism / Имя: " + order.Name,
		"Tel / Тел: " + order.Phone,
		"Manzil / Адрес: " + order.Address,
	} {
		elems = append(elems, element{
			kind:  elemText,
			lines: wrap(line, size, contentWidth),
			size:  size,
		})
	}

	elems = append(elems,
		element{kind: elemRule},
		element{kind: elemSplit, left: "Nomi / Товар", right: "Soni  Narx  Jami", size: size},
	)

	for i, it := range items {
		elems = append(elems,
			element{
				kind:  elemText,
				lines: wrap(it.Name, size, contentWidth-priceColumn),
				size:  size,
			},
			element{kind: elemSplit, right: itemFigures(it), size: size},
		)
		if i < len(items)-1 {
			elems = append(elems, element{kind: elemRule})
		}
	}

	total := fmt.Sprintf("JAMI / ИТОГО: %s so'm", formatAmount(order.TotalPrice))
	elems = append(elems,
		element{kind: elemRule},
		element{kind: elemText, lines: wrap(total, headerSize, contentWidth), size: headerSize},
		element{kind: elemImage, slot: slotBarcode, align: alignCenter, w: barcodeWidth, h: barcodeHeight},
		element{kind: elemImage, slot: slotQR, align: alignRight, w: qrSide, h: qrSide},
		element{kind: elemText, lines: wrap("Rahmat! Спасибо за покупку!", size, contentWidth), size: size},
	)

	lineCount := 0
	for _, e := range elems {
		lineCount += e.lineCount()
	}

	lineHeight := size * 1.3
	pageHeight := topMargin + float64(lineCount)*lineHeight +
		barcodeHeight + imageGap + qrSide + imageGap +
		bottomMargin + fixedPadding

	clamped := false
	if pageHeight < MinPageHeight {
		pageHeight = MinPageHeight
		clamped = true
	}

	return Plan{
		FontName:     l.FontName,
		FontSize:     size,
		LineHeight:   lineHeight,
		PageWidth:    pageWidth,
		PageHeight:   pageHeight,
		ContentWidth: contentWidth,
		LineCount:    lineCount,
		Clamped:      clamped,
		elements:     elems,
	}
}

// driver receives draw commands from a plan replay. Coordinates are points
// with the origin at the page's bottom-left corner; y for text is the
// baseline, for rules the line itself, for images the top edge.
type driver interface {
	Text(s string, x, y, size float64)
	Rule(x1, y, x2 float64)
	Image(slot imageSlot, x, y, w, h float64) error
}

// walk replays the display list onto a driver with a single downward
// cursor and returns how many lines were drawn. Every line steps the
// cursor by exactly Plan.LineHeight, so the drawn count equals
// Plan.LineCount for any driver.
func (p *Plan) walk(reg *fonts.Registry, d driver) (int, error) {
	y := p.PageHeight - topMargin
	drawn := 0

	for _, e := range p.elements {
		switch e.kind {
		case elemText:
			for _, line := range e.lines {
				d.Text(line, p.textX(reg, line, e.size, e.align), y, e.size)
				y -= p.LineHeight
				drawn++
			}
		case elemSplit:
			if e.left != "" {
				d.Text(e.left, leftMargin, y, e.size)
			}
			if e.right != "" {
				w := reg.Measure(e.right, p.FontName, e.size)
				d.Text(e.right, p.PageWidth-rightMargin-w, y, e.size)
			}
			y -= p.LineHeight
			drawn++
		case elemRule:
			d.Rule(leftMargin, y+p.FontSize*0.3, p.PageWidth-rightMargin)
			y -= p.LineHeight
			drawn++
		case elemImage:
			x := leftMargin
			switch e.align {
			case alignCenter:
				x = (p.PageWidth - e.w) / 2
			case alignRight:
				x = p.PageWidth - rightMargin - e.w
			}
			if err := d.Image(e.slot, x, y, e.w, e.h); err != nil {
				return drawn, err
			}
			y -= e.h + imageGap
		}
	}
	return drawn, nil
}

func (p *Plan) textX(reg *fonts.Registry, line string, size float64, al align) float64 {
	switch al {
	case alignCenter:
		return (p.PageWidth - reg.Measure(line, p.FontName, size)) / 2
	case alignRight:
		return p.PageWidth - rightMargin - reg.Measure(line, p.FontName, size)
	}
	return leftMargin
}

// itemFigures builds the qty/price/total column text. Unknown quantities
// and prices stay blank rather than printing zeros.
func itemFigures(it orderformat.LineItem) string {
	var parts []string
	if it.Quantity > 0 {
		parts = append(parts, strconv.Itoa(it.Quantity))
	}
	if it.PriceKnown {
		parts = append(parts, formatAmount(it.Price))
		if it.Quantity > 0 {
			parts = append(parts, formatAmount(it.Price*int64(it.Quantity)))
		}
	}
	return strings.Join(parts, "  ")
}

// formatAmount renders an amount in smallest currency units with thousands
// separators, e.g. 45000 -> "45,000".
func formatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
