package report

import (
	"fmt"
	"strings"
)

// Display statuses rendered on the report caption's status line.
const (
	StatusLinePrefix = "Status:"

	statusPendingLine   = "Status: pending"
	statusConfirmedLine = "Status: confirmed"
)

// NoAdditionalPhone is the explicit placeholder rendered when the submitter
// declined a second phone number. An empty interpolation would be
// indistinguishable from a broken template.
const NoAdditionalPhone = "none"

// Caption field labels. The renderer and the parser below are two halves of
// one contract: the approval handler re-parses the displayed caption to
// build the spreadsheet row, so any label change must update both.
const (
	labelClient     = "Client:"
	labelPhone      = "Phone:"
	labelAdditional = "Additional phone:"
	labelProduct    = "Product:"
	labelAddress    = "Address:"
	labelContractID = "Contract ID:"
	labelAmount     = "Contract amount:"
	labelSeller     = "Seller:"
)

// RenderCaption builds the canonical report caption delivered to the review
// channel, ending in a status line.
func RenderCaption(d Draft, sellerName, status string) string {
	additional := d.AdditionalPhone
	if additional == "" {
		additional = NoAdditionalPhone
	}
	return fmt.Sprintf(`New sales report

%s %s
%s %s
%s %s
%s %s
%s %s
%s %s
%s %s
%s %s

%s %s`,
		labelClient, d.ClientName,
		labelPhone, d.PhoneNumber,
		labelAdditional, additional,
		labelProduct, d.ProductType,
		labelAddress, d.ClientLocation,
		labelContractID, d.ContractID,
		labelAmount, d.ContractAmount,
		labelSeller, sellerName,
		StatusLinePrefix, status)
}

// RenderConfirmation builds the caption shown to the submitter on the
// confirmation step, listing every collected field.
func RenderConfirmation(d Draft, sellerName string) string {
	additional := d.AdditionalPhone
	if additional == "" {
		additional = NoAdditionalPhone
	}
	return fmt.Sprintf(`Review your report

%s %s
%s %s
%s %s
%s %s
%s %s
%s %s
%s %s
%s %s

Is everything correct?`,
		labelClient, d.ClientName,
		labelPhone, d.PhoneNumber,
		labelAdditional, additional,
		labelProduct, d.ProductType,
		labelAddress, d.ClientLocation,
		labelContractID, d.ContractID,
		labelAmount, d.ContractAmount,
		labelSeller, sellerName)
}

// IsConfirmed reports whether the caption's status already reads confirmed.
func IsConfirmed(caption string) bool {
	return strings.Contains(caption, statusConfirmedLine)
}

// SetStatusLine rewrites the caption's status line to the given status. The
// status line is the last non-empty line when it starts with the status
// prefix; otherwise a new one is appended. Blank lines are dropped, which
// also bounds captions that accumulated stray whitespace from manual edits.
func SetStatusLine(caption, status string) string {
	var lines []string
	for _, line := range strings.Split(caption, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	statusLine := StatusLinePrefix + " " + status
	if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], StatusLinePrefix) {
		lines[len(lines)-1] = statusLine
	} else {
		lines = append(lines, statusLine)
	}
	return strings.Join(lines, "\n")
}

// ParsedReport is a report reconstructed from a displayed caption. The
// displayed text — not the stored record — feeds the spreadsheet append, so
// edits made to the visible message are what reach the sheet.
type ParsedReport struct {
	ClientName     string
	PhoneNumber    string
	ProductType    string
	ClientLocation string
	ContractID     string
	ContractAmount string
	SellerName     string
}

// ParseCaption extracts report fields from a rendered caption. It returns
// an error when the caption carries none of the expected field lines.
func ParseCaption(caption string) (ParsedReport, error) {
	var p ParsedReport
	found := false
	for _, line := range strings.Split(caption, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, labelAdditional):
			// Skipped: the secondary phone is not exported to the sheet.
		case strings.HasPrefix(line, labelClient):
			p.ClientName = valueOf(line, labelClient)
			found = true
		case strings.HasPrefix(line, labelPhone):
			p.PhoneNumber = valueOf(line, labelPhone)
			found = true
		case strings.HasPrefix(line, labelProduct):
			p.ProductType = valueOf(line, labelProduct)
			found = true
		case strings.HasPrefix(line, labelAddress):
			p.ClientLocation = valueOf(line, labelAddress)
			found = true
		case strings.HasPrefix(line, labelContractID):
			p.ContractID = valueOf(line, labelContractID)
			found = true
		case strings.HasPrefix(line, labelAmount):
			p.ContractAmount = valueOf(line, labelAmount)
			found = true
		case strings.HasPrefix(line, labelSeller):
			p.SellerName = valueOf(line, labelSeller)
			found = true
		}
	}
	if !found {
		return ParsedReport{}, fmt.Errorf("report: caption has no recognizable field lines")
	}
	return p, nil
}

func valueOf(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}
