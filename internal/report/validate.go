package report

import (
	"strings"
	"unicode/utf8"
)

// Canonical minimum lengths for text fields. These are the single rule set
// for the whole flow, including edit re-entry.
const (
	MinClientNameLen = 3
	MinProductLen    = 2
	MinLocationLen   = 10
	MinContractIDLen = 3
	MinPhoneDigits   = 9
)

// ValidText reports whether the trimmed text is at least minLen characters.
// Lengths are counted in runes: submitters type Cyrillic names and
// addresses, which are two bytes per character.
func ValidText(text string, minLen int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minLen
}

// ValidPhone reports whether the digit-only projection of the input has at
// least MinPhoneDigits digits. Separators, spaces and a leading "+" are
// ignored.
func ValidPhone(phone string) bool {
	return len(digitsOnly(phone)) >= MinPhoneDigits
}

// ValidAmount reports whether the input contains at least one digit.
func ValidAmount(amount string) bool {
	return digitsOnly(amount) != ""
}
