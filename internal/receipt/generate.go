package receipt

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/oydokon/webshop/internal/fonts"
	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

// DataSource is the read-only slice of the store the receipt pipeline
// touches: one order fetch, then per-item price lookups.
type DataSource interface {
	Order(ctx context.Context, id int64) (*store.Order, error)
	ProductPrice(ctx context.Context, productID string) (int64, bool)
}

// Format selects the output document type.
type Format int

const (
	FormatPDF Format = iota
	FormatPNG
)

// Options configure a single generation request.
type Options struct {
	// Font is a registered font name; unknown names silently fall back to
	// the registry default.
	Font string
	// Size is the body font size in points; zero means DefaultFontSize.
	Size   float64
	Format Format
}

// Document is the finished receipt.
type Document struct {
	Bytes       []byte
	ContentType string
	Filename    string

	Plan       Plan
	DrawnLines int
	DecodeMode orderformat.Mode
}

// Generator runs the full pipeline: order fetch, decode, height estimate,
// render. One Generator serves concurrent requests; it holds no per-request
// state.
type Generator struct {
	data   DataSource
	fonts  *fonts.Registry
	logger *log.Logger
}

// NewGenerator creates a receipt generator over the given data source and
// font registry.
func NewGenerator(data DataSource, reg *fonts.Registry, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{data: data, fonts: reg, logger: logger.With("component", "receipt")}
}

// Generate produces the receipt document for an order. The only fatal
// error is an unresolvable order id (store.ErrOrderNotFound), raised before
// any layout work; decode, price and font problems all degrade to a
// best-effort receipt.
func (g *Generator) Generate(ctx context.Context, orderID int64, opt Options) (*Document, error) {
	order, err := g.data.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	res := orderformat.Decode(order.Products, func(id string) (int64, bool) {
		return g.data.ProductPrice(ctx, id)
	})
	if res.Mode == orderformat.ModeFallback {
		g.logger.Warn("order string did not match the item grammar, using fallback decode",
			"order", orderID)
	}

	layout := NewLayout(g.fonts, opt.Font, opt.Size)
	plan := layout.Estimate(order, res.Items)

	dpp := float64(dotsPerPoint)
	qrImg, err := RenderQR(g.payload(order, res.Items), int(qrSide*dpp+0.5))
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	bcImg, err := RenderBarcode(order.ID,
		int(barcodeWidth*dpp+0.5), int(barcodeHeight*dpp+0.5))
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	doc := &Document{Plan: plan, DecodeMode: res.Mode}

	switch opt.Format {
	case FormatPNG:
		data, drawn, err := RenderPNG(g.fonts, plan, qrImg, bcImg)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		doc.Bytes = data
		doc.DrawnLines = drawn
		doc.ContentType = "image/png"
		doc.Filename = fmt.Sprintf("receipt_%d.png", orderID)
	default:
		r, err := NewRenderer(g.fonts, plan)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		qrPNG, err := encodePNG(qrImg)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		bcPNG, err := encodePNG(bcImg)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		r.SetQR(qrPNG)
		r.SetBarcode(bcPNG)
		if err := r.Render(); err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		doc.Bytes, err = r.Finalize()
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", orderID, err)
		}
		doc.DrawnLines = r.DrawnLines()
		doc.ContentType = "application/pdf"
		doc.Filename = fmt.Sprintf("receipt_%d.pdf", orderID)
	}

	g.logger.Debug("receipt generated",
		"order", orderID,
		"format", doc.ContentType,
		"lines", doc.DrawnLines,
		"page_height", plan.PageHeight)
	return doc, nil
}

// payload builds the QR content, shrinking to an id-only record when an
// oversized order would not fit a QR code. QR encoding itself must never
// sink the receipt.
func (g *Generator) payload(order *store.Order, items []orderformat.LineItem) []byte {
	data := BuildPayload(order, items)
	// Medium error correction tops out near 2300 bytes of content.
	if len(data) > 2000 {
		g.logger.Warn("qr payload too large, embedding order id only", "order", order.ID)
		data = BuildPayload(order, nil)
	}
	return data
}
