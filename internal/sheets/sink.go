// Package sheets appends confirmed reports to a spreadsheet, numbering rows
// with a derived ordinal.
package sheets

import (
	"context"
	"strconv"
	"time"
)

// Headers is the fixed first row of every report worksheet. Row values in
// Append are emitted in this column order.
var Headers = []string{
	"No",
	"Client name",
	"Phone number",
	"Product",
	"Shipment type",
	"Client address",
	"Contract date",
	"Report submitted",
	"Shipped date",
	"Contract number",
	"Contract amount",
	"Seller",
}

// Record holds the display fields of a confirmed report, as re-parsed from
// the delivered caption.
type Record struct {
	ClientName     string
	PhoneNumber    string
	ProductType    string
	ClientLocation string
	ContractID     string
	ContractAmount string
	SellerName     string
}

// Ref identifies one worksheet inside a spreadsheet.
type Ref struct {
	SpreadsheetID string
	Worksheet     string
}

// IsZero reports whether the ref points at no worksheet.
func (r Ref) IsZero() bool {
	return r.SpreadsheetID == ""
}

// Sink is the spreadsheet sink consumed by the approval handler. Append
// assigns the next ordinal and returns it. Ordinal derivation is best
// effort under concurrent appenders: the backing API has no transactional
// append-with-read, so duplicates or gaps can occur under races.
type Sink interface {
	Append(ctx context.Context, ref Ref, rec Record) (int, error)
}

// NextOrdinal derives the ordinal for the next appended row from the
// existing rows (header included). Rules, in order: an empty or header-only
// sheet starts at 1; when the last row's first cell parses as a number the
// next ordinal is that number plus one; otherwise it is the current row
// count (header included), which restarts a sane sequence after manual
// edits broke the numbering.
func NextOrdinal(rows [][]string) int {
	if len(rows) <= 1 {
		return 1
	}
	last := rows[len(rows)-1]
	if len(last) > 0 {
		if n, err := strconv.Atoi(last[0]); err == nil {
			return n + 1
		}
	}
	return len(rows)
}

// RowValues renders a record into the Headers column order with the given
// ordinal and submission time.
func RowValues(ordinal int, rec Record, now time.Time) []string {
	date := now.Format("02.01.2006")
	return []string{
		strconv.Itoa(ordinal),
		rec.ClientName,
		rec.PhoneNumber,
		rec.ProductType,
		"", // shipment type: filled manually later
		rec.ClientLocation,
		date,
		now.Format("02.01.2006 15:04"),
		"", // shipped date: filled manually later
		rec.ContractID,
		rec.ContractAmount,
		rec.SellerName,
	}
}
