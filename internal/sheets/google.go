package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// scopeSpreadsheets is the OAuth scope required for reads and appends.
const scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"

// GoogleSink implements Sink against the Google Sheets API using a service
// account.
type GoogleSink struct {
	svc *sheetsapi.Service
	now func() time.Time
}

// NewGoogleSink creates a GoogleSink from a service-account credentials
// file.
func NewGoogleSink(ctx context.Context, credentialsFile string) (*GoogleSink, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: read credentials %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopeSpreadsheets)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &GoogleSink{svc: svc, now: time.Now}, nil
}

// Append ensures the worksheet exists with headers, derives the next
// ordinal from the current rows, and appends the record. Reading the last
// row and appending are two separate API calls; the ordinal is therefore
// best effort under concurrent appenders.
func (g *GoogleSink) Append(ctx context.Context, ref Ref, rec Record) (int, error) {
	if ref.IsZero() {
		return 0, fmt.Errorf("sheets: append: empty sheet ref")
	}
	if err := g.ensureWorksheet(ctx, ref); err != nil {
		return 0, err
	}

	rows, err := g.readRows(ctx, ref)
	if err != nil {
		return 0, err
	}
	ordinal := NextOrdinal(rows)

	values := RowValues(ordinal, rec, g.now())
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	_, err = g.svc.Spreadsheets.Values.Append(ref.SpreadsheetID, ref.Worksheet, &sheetsapi.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: append to %s/%s: %w", ref.SpreadsheetID, ref.Worksheet, err)
	}
	return ordinal, nil
}

// Resequence renumbers the ordinal column 1..n after manual row deletions.
func (g *GoogleSink) Resequence(ctx context.Context, ref Ref) (int, error) {
	rows, err := g.readRows(ctx, ref)
	if err != nil {
		return 0, err
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	values := make([][]interface{}, len(rows)-1)
	for i := range values {
		values[i] = []interface{}{fmt.Sprintf("%d", i+1)}
	}
	rangeA := fmt.Sprintf("%s!A2:A%d", ref.Worksheet, len(rows))
	_, err = g.svc.Spreadsheets.Values.Update(ref.SpreadsheetID, rangeA, &sheetsapi.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: resequence %s/%s: %w", ref.SpreadsheetID, ref.Worksheet, err)
	}
	return len(rows) - 1, nil
}

// readRows fetches all rows of the worksheet as strings.
func (g *GoogleSink) readRows(ctx context.Context, ref Ref) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(ref.SpreadsheetID, ref.Worksheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s/%s: %w", ref.SpreadsheetID, ref.Worksheet, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprintf("%v", cell)
		}
		rows[i] = cells
	}
	return rows, nil
}

// ensureWorksheet creates the worksheet and writes the header row when
// either is missing.
func (g *GoogleSink) ensureWorksheet(ctx context.Context, ref Ref) error {
	doc, err := g.svc.Spreadsheets.Get(ref.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: open spreadsheet %s: %w", ref.SpreadsheetID, err)
	}
	exists := false
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == ref.Worksheet {
			exists = true
			break
		}
	}
	if !exists {
		_, err = g.svc.Spreadsheets.BatchUpdate(ref.SpreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: ref.Worksheet},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: add worksheet %s: %w", ref.Worksheet, err)
		}
	}

	rows, err := g.readRows(ctx, ref)
	if err != nil {
		return err
	}
	if len(rows) > 0 && len(rows[0]) >= len(Headers) {
		return nil
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	rangeHeader := fmt.Sprintf("%s!A1", ref.Worksheet)
	_, err = g.svc.Spreadsheets.Values.Update(ref.SpreadsheetID, rangeHeader, &sheetsapi.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: write headers to %s/%s: %w", ref.SpreadsheetID, ref.Worksheet, err)
	}
	return nil
}
