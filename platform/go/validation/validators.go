package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// ValidTaxID reports whether value holds a CPF (11 digits) or CNPJ (14 digits).
// Punctuation and spacing around the digits are ignored.
func ValidTaxID(value string) bool {
	n := len(Digits(value))
	return n == 11 || n == 14
}

// ValidPostalCode reports whether value holds a CEP, i.e. exactly 8 digits once formatting is removed.
func ValidPostalCode(value string) bool {
	return len(Digits(value)) == 8
}

// ValidHandle reports whether value is a public username: ASCII letters, digits and underscore, 3 to 30 long.
func ValidHandle(value string) bool {
	if value == "" {
		return false
	}
	return handlePattern.MatchString(value)
}

// Digits returns the ASCII digits of value in order.
func Digits(value string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)
}
