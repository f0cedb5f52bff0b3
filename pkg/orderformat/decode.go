package orderformat

import (
	"regexp"
	"strconv"
	"strings"
)

// Primary grammar: "(#" digits space name(non-greedy) space "x" space digits ")".
var itemPattern = regexp.MustCompile(`\(#(\d+)\s+(.*?)\s+x\s+(\d+)\)`)

// Fallback fragment separators for strings the grammar does not match.
var fallbackSplit = regexp.MustCompile(`,\s*|\n`)

// Decode parses a persisted order string back into line items. It never
// fails: when the primary grammar finds no matches the string is split on
// commas and newlines and each fragment becomes a name-only item with
// unknown id, quantity and price. Worst case the result is an empty
// fallback list.
//
// Prices are resolved per item through the supplied lookup so the receipt
// always reflects current product data; ids that no longer resolve keep
// PriceKnown false.
func Decode(raw string, prices PriceLookup) Result {
	matches := itemPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return Result{Mode: ModeFallback, Items: decodeFallback(raw)}
	}

	items := make([]LineItem, 0, len(matches))
	for _, m := range matches {
		it := LineItem{
			ID:   m[1],
			Name: strings.TrimSpace(m[2]),
		}
		// The grammar only matches digits here, but a quantity too large
		// for int still decodes as unknown rather than failing.
		if qty, err := strconv.Atoi(m[3]); err == nil {
			it.Quantity = qty
		}
		if prices != nil {
			if p, ok := prices(it.ID); ok {
				it.Price = p
				it.PriceKnown = true
			}
		}
		items = append(items, it)
	}
	return Result{Mode: ModeParsed, Items: items}
}

func decodeFallback(raw string) []LineItem {
	var items []LineItem
	for _, part := range fallbackSplit.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, LineItem{Name: part})
	}
	return items
}
