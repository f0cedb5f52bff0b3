package orderformat

import (
	"fmt"
	"strings"
)

// Encode serializes cart items into the persisted order string:
//
//	(#3 Tea x 2), (#7 Cup x 1)
//
// No escaping is performed. A product name containing "(", ")", " x " or
// ", " corrupts the encoding; Decode's fallback mode is the compensating
// control for such rows. This fragility is part of the format, not a bug.
func Encode(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("(#%d %s x %d)", it.ID, it.Name, it.Quantity))
	}
	return strings.Join(parts, ", ")
}
