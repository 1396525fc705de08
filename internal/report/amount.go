// Package report implements the sales-report workflow: field validation,
// the guided conversation flow, submission to a review channel, and the
// approval handler that fans out to the relational and spreadsheet sinks.
package report

import "strings"

// FormatAmount normalizes a contract amount for display: the digit-only
// projection of the input, grouped from the right into triples separated
// by ".". Inputs with no digits are returned unchanged. The function is
// idempotent: formatting an already-formatted amount regroups the same
// digits identically.
//
//	FormatAmount("500000")    == "500.000"
//	FormatAmount("5,000,000") == "5.000.000"
//	FormatAmount("5.000.000") == "5.000.000"
func FormatAmount(raw string) string {
	digits := digitsOnly(raw)
	if digits == "" {
		return raw
	}

	var b strings.Builder
	n := len(digits)
	for i, r := range digits {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// digitsOnly returns s with every non-digit removed.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
