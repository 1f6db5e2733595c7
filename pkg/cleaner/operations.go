// pkg/cleaner/operations.go
package cleaner

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IdentityWidth is the minimum width of a canonical identity key
const IdentityWidth = 8

// Normalization reasons recorded on operations
const (
	reasonStrippedSeparators = "stripped_separators"
	reasonUppercased         = "uppercased"
	reasonZeroPadded         = "zero_padded"
	reasonMissingValue       = "missing_value"
)

// Canonicalize maps a raw identity value to its canonical key. It never
// fails and is idempotent: dots, hyphens and whitespace are removed, the
// result is uppercased and left padded with zeros to IdentityWidth. Longer
// values are kept whole.
func Canonicalize(raw string) string {
	key, _ := canonicalizeWithReasons(raw)
	return key
}

// canonicalizeWithReasons canonicalizes raw and reports each step that
// changed the value
func canonicalizeWithReasons(raw string) (string, []string) {
	var reasons []string

	stripped := stripSeparators(raw)
	if stripped != raw {
		reasons = append(reasons, reasonStrippedSeparators)
	}

	upper := strings.ToUpper(stripped)
	if upper != stripped {
		reasons = append(reasons, reasonUppercased)
	}

	padded := zeroFill(upper, IdentityWidth)
	if padded != upper {
		reasons = append(reasons, reasonZeroPadded)
	}

	return padded, reasons
}

// stripSeparators removes '.', '-' and any whitespace
func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// zeroFill left pads s with '0' up to width runes. A leading '+' stays in
// front of the padding.
func zeroFill(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}

	pad := strings.Repeat("0", width-n)
	if strings.HasPrefix(s, "+") {
		return "+" + pad + s[1:]
	}
	return pad + s
}

// IsCanonical reports whether value is already a canonical key
func IsCanonical(value string) bool {
	return Canonicalize(value) == value
}
