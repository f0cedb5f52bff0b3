package receipt

import (
	"bytes"
	"testing"

	"github.com/oydokon/webshop/pkg/orderformat"
)

func TestPayload_RoundTrip(t *testing.T) {
	order := sampleOrder()
	data := BuildPayload(order, sampleItems())

	p, err := DecodePayload(data)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.OrderID != 42 || p.Name != "Aziz" || p.Phone != "+998901234567" {
		t.Errorf("header fields lost: %+v", p)
	}
	if len(p.Items) != 2 {
		t.Fatalf("expected 2 payload items, got %d", len(p.Items))
	}
	if p.Items[0].ID != "3" || p.Items[0].Qty != 2 {
		t.Errorf("first item = %+v, want id 3 qty 2", p.Items[0])
	}
	if p.Items[1].ID != "7" || p.Items[1].Qty != 1 {
		t.Errorf("second item = %+v, want id 7 qty 1", p.Items[1])
	}
}

func TestPayload_Deterministic(t *testing.T) {
	order := sampleOrder()
	items := sampleItems()

	a := BuildPayload(order, items)
	b := BuildPayload(order, items)
	if !bytes.Equal(a, b) {
		t.Error("same order produced different payloads")
	}
}

func TestPayload_SkipsFallbackItems(t *testing.T) {
	order := sampleOrder()
	res := orderformat.Decode("Tea, Cup", nil)
	if res.Mode != orderformat.ModeFallback {
		t.Fatalf("expected fallback decode, got %v", res.Mode)
	}

	p, err := DecodePayload(BuildPayload(order, res.Items))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if len(p.Items) != 0 {
		t.Errorf("fallback items have no ids to embed, got %+v", p.Items)
	}
}

func TestRenderQR_Deterministic(t *testing.T) {
	payload := BuildPayload(sampleOrder(), sampleItems())

	var imgs [2][]byte
	for i := range imgs {
		img, err := RenderQR(payload, 256)
		if err != nil {
			t.Fatalf("RenderQR: %v", err)
		}
		data, err := encodePNG(img)
		if err != nil {
			t.Fatalf("encodePNG: %v", err)
		}
		imgs[i] = data
	}
	if !bytes.Equal(imgs[0], imgs[1]) {
		t.Error("identical payload rendered to different QR images")
	}
}

func TestRenderQR_Size(t *testing.T) {
	img, err := RenderQR([]byte("x"), 128)
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("QR bounds %v, want 128x128", b)
	}
}

func TestRenderBarcode(t *testing.T) {
	img, err := RenderBarcode(42, 300, 64)
	if err != nil {
		t.Fatalf("RenderBarcode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 300 || b.Dy() != 64 {
		t.Errorf("barcode bounds %v, want 300x64", b)
	}
}
