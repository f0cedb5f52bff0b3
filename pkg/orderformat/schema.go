// Package orderformat implements the textual encoding used for the
// `products` column of an order row: a comma-separated list of
// "(#id name x qty)" fragments.
package orderformat

// Mode tags how a decode was obtained.
type Mode int

const (
	// ModeParsed means the raw string matched the primary grammar.
	ModeParsed Mode = iota
	// ModeFallback means the grammar produced no matches and the string was
	// split into bare item names instead. Older orders predate the current
	// encoding and always decode this way.
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "parsed"
}

// Item is one entry of a cart at checkout time, the unit Encode consumes.
type Item struct {
	ID       int64
	Name     string
	Quantity int
}

// LineItem is one decoded product entry. It is rebuilt from the encoded
// string on every decode and never persisted.
type LineItem struct {
	// ID is the product id as it appeared in the encoding. Empty when the
	// fragment carried none (fallback decodes).
	ID   string
	Name string
	// Quantity is zero when the fragment carried no parseable quantity;
	// renderers print it blank in that case.
	Quantity int
	// Price is the current unit price from the live product lookup.
	// PriceKnown is false when the product no longer resolves, which is
	// distinct from a price of zero.
	Price      int64
	PriceKnown bool
}

// Result is a tagged decode outcome. Both modes yield usable items; the tag
// lets callers tell a canonical decode from a degraded one.
type Result struct {
	Mode  Mode
	Items []LineItem
}

// PriceLookup resolves a product id to its current unit price. A nil lookup
// leaves every price unknown.
type PriceLookup func(productID string) (int64, bool)
