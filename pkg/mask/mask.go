// Package mask provides fixed-offset masking of sensitive display strings.
package mask

import "strings"

// DefaultMaskRune is the character substituted for masked positions.
const DefaultMaskRune = 'X'

// String replaces count characters of input starting at start with the mask
// character. When the requested window extends past the end of the input, the
// mask is clamped rather than failing: masking is a display concern and must
// never panic on unexpected stored data.
func String(input string, count, start int, maskRune rune) string {
	if start < 0 {
		start = 0
	}
	if start >= len(input) || count <= 0 {
		return input
	}
	if start+count > len(input) {
		count = len(input) - start
	}

	var b strings.Builder
	b.Grow(len(input))
	b.WriteString(input[:start])
	for i := 0; i < count; i++ {
		b.WriteRune(maskRune)
	}
	b.WriteString(input[start+count:])
	return b.String()
}

// CardNumber masks the first 12 digits of a 16-digit card number, leaving
// only the last 4 visible.
func CardNumber(cardNumber string) string {
	return String(cardNumber, 12, 0, DefaultMaskRune)
}

// CVV fully masks a 3 or 4 digit CVV.
func CVV(cvv string) string {
	return String(cvv, len(cvv), 0, DefaultMaskRune)
}

// AccountNumber masks the first 6 digits of an account number.
func AccountNumber(accountNumber string) string {
	return String(accountNumber, 6, 0, DefaultMaskRune)
}

// SortCode masks the first 4 digits of a sort code.
func SortCode(sortCode string) string {
	return String(sortCode, 4, 0, DefaultMaskRune)
}
