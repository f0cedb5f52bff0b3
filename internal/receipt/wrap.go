package receipt

import (
	"iter"
	"strings"

	"github.com/oydokon/webshop/internal/fonts"
)

// Wrap breaks text into lines that fit maxWidth points when rendered with
// the named font at the given size. The wrap is greedy: words accumulate
// onto a line while the measured width stays within maxWidth, and the
// overflowing word starts the next line. A single word wider than maxWidth
// becomes a line of its own; there is no character-level splitting.
//
// Empty (or whitespace-only) input yields exactly one empty line, never
// zero: the height estimator sums line counts, and an empty block still
// reserves one line of vertical space.
//
// The returned sequence is finite and restartable: ranging over it twice
// yields the same lines, which is what lets the estimator and renderer
// share one call site.
func Wrap(reg *fonts.Registry, text, fontName string, size, maxWidth float64) iter.Seq[string] {
	return func(yield func(string) bool) {
		cur := ""
		emitted := false
		for _, word := range strings.Fields(text) {
			test := word
			if cur != "" {
				test = cur + " " + word
			}
			if reg.Measure(test, fontName, size) <= maxWidth {
				cur = test
				continue
			}
			if cur != "" {
				if !yield(cur) {
					return
				}
				emitted = true
			}
			cur = word
		}
		if cur != "" {
			if !yield(cur) {
				return
			}
			emitted = true
		}
		if !emitted {
			yield("")
		}
	}
}
