package receipt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

// fakeSource serves orders and prices from maps, standing in for the
// sqlite store.
type fakeSource struct {
	orders map[int64]*store.Order
	prices map[string]int64
}

func (f *fakeSource) Order(ctx context.Context, id int64) (*store.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeSource) ProductPrice(ctx context.Context, productID string) (int64, bool) {
	p, ok := f.prices[productID]
	return p, ok
}

func scenarioSource() *fakeSource {
	return &fakeSource{
		orders: map[int64]*store.Order{42: sampleOrder()},
		prices: map[string]int64{"3": 15000, "7": 15000},
	}
}

func TestGenerate_PDF(t *testing.T) {
	gen := NewGenerator(scenarioSource(), testFonts(t), nil)

	doc, err := gen.Generate(context.Background(), 42, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !bytes.HasPrefix(doc.Bytes, []byte("%PDF")) {
		t.Error("output does not start with a PDF header")
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if doc.Filename != "receipt_42.pdf" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if doc.DecodeMode != orderformat.ModeParsed {
		t.Errorf("DecodeMode = %v, want parsed", doc.DecodeMode)
	}
	if doc.DrawnLines != doc.Plan.LineCount {
		t.Errorf("renderer drew %d lines, estimate counted %d", doc.DrawnLines, doc.Plan.LineCount)
	}
	if doc.Plan.PageHeight <= MinPageHeight {
		t.Errorf("two-item order should exceed the minimum page, got %.1f", doc.Plan.PageHeight)
	}
}

func TestGenerate_PNG(t *testing.T) {
	gen := NewGenerator(scenarioSource(), testFonts(t), nil)

	doc, err := gen.Generate(context.Background(), 42, Options{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !bytes.HasPrefix(doc.Bytes, []byte("\x89PNG")) {
		t.Error("output does not start with a PNG signature")
	}
	if doc.ContentType != "image/png" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}
	if doc.Filename != "receipt_42.png" {
		t.Errorf("Filename = %q", doc.Filename)
	}
	if doc.DrawnLines != doc.Plan.LineCount {
		t.Errorf("raster drew %d lines, estimate counted %d", doc.DrawnLines, doc.Plan.LineCount)
	}
}

func TestGenerate_OrderNotFound(t *testing.T) {
	gen := NewGenerator(scenarioSource(), testFonts(t), nil)

	_, err := gen.Generate(context.Background(), 999, Options{})
	if !errors.Is(err, store.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestGenerate_FallbackOrderString(t *testing.T) {
	src := scenarioSource()
	src.orders[7] = &store.Order{
		ID:        7,
		Name:      "B",
		Products:  "just some free text, another line",
		CreatedAt: src.orders[42].CreatedAt,
	}
	gen := NewGenerator(src, testFonts(t), nil)

	doc, err := gen.Generate(context.Background(), 7, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.DecodeMode != orderformat.ModeFallback {
		t.Errorf("DecodeMode = %v, want fallback", doc.DecodeMode)
	}
	if doc.DrawnLines != doc.Plan.LineCount {
		t.Errorf("drew %d lines, counted %d", doc.DrawnLines, doc.Plan.LineCount)
	}
}

func TestGenerate_UnknownFontFallsBack(t *testing.T) {
	gen := NewGenerator(scenarioSource(), testFonts(t), nil)

	doc, err := gen.Generate(context.Background(), 42, Options{Font: "NoSuchFont"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Plan.FontName != "GoRegular" {
		t.Errorf("FontName = %q, want the registry default", doc.Plan.FontName)
	}
}

func TestGenerate_BothFormatsShareOnePlan(t *testing.T) {
	gen := NewGenerator(scenarioSource(), testFonts(t), nil)
	ctx := context.Background()

	pdf, err := gen.Generate(ctx, 42, Options{Format: FormatPDF})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	png, err := gen.Generate(ctx, 42, Options{Format: FormatPNG})
	if err != nil {
		t.Fatalf("png: %v", err)
	}

	if pdf.Plan.LineCount != png.Plan.LineCount {
		t.Errorf("line counts diverge: pdf %d, png %d", pdf.Plan.LineCount, png.Plan.LineCount)
	}
	if pdf.Plan.PageHeight != png.Plan.PageHeight {
		t.Errorf("page heights diverge: pdf %.1f, png %.1f", pdf.Plan.PageHeight, png.Plan.PageHeight)
	}
}
