package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/oydokon/webshop/internal/store"
	"github.com/oydokon/webshop/pkg/orderformat"
)

// Payload is the machine-readable record embedded in the receipt's QR code.
type Payload struct {
	OrderID int64         `json:"order_id"`
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Items   []PayloadItem `json:"items"`
}

// PayloadItem is one scannable line entry. Only items whose product id
// survived decoding are included; fallback-decoded names carry no id to
// reference.
type PayloadItem struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

// BuildPayload serializes the order summary as base64-wrapped JSON. The
// output is deterministic for a given order, so two receipts for the same
// order scan to the same content.
func BuildPayload(order *store.Order, items []orderformat.LineItem) []byte {
	p := Payload{
		OrderID: order.ID,
		Name:    order.Name,
		Phone:   order.Phone,
		Items:   []PayloadItem{},
	}
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		p.Items = append(p.Items, PayloadItem{ID: it.ID, Qty: it.Quantity})
	}

	raw, err := json.Marshal(p)
	if err != nil {
		// Payload is plain strings and ints; Marshal cannot fail on it.
		panic(err)
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}

// DecodePayload reverses BuildPayload; a generic QR client does the same
// with any base64+JSON tooling.
func DecodePayload(data []byte) (*Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &p, nil
}

// RenderQR rasterizes the payload as a square QR image, sidePx pixels per
// side. Identical payload bytes produce an identical module pattern.
func RenderQR(payload []byte, sidePx int) (image.Image, error) {
	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr: %w", err)
	}
	return qr.Image(sidePx), nil
}

// RenderBarcode rasterizes the order id as a Code128 strip for tills that
// scan one-dimensional codes only.
func RenderBarcode(orderID int64, widthPx, heightPx int) (image.Image, error) {
	bc, err := code128.Encode(fmt.Sprintf("ORD-%d", orderID))
	if err != nil {
		return nil, fmt.Errorf("encoding barcode: %w", err)
	}
	scaled, err := barcode.Scale(bc, widthPx, heightPx)
	if err != nil {
		return nil, fmt.Errorf("scaling barcode: %w", err)
	}
	return scaled, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
