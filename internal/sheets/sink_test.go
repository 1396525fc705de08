package sheets

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNextOrdinalEmptySheet(t *testing.T) {
	if got := NextOrdinal(nil); got != 1 {
		t.Errorf("NextOrdinal(nil) = %d, want 1", got)
	}
	headerOnly := [][]string{Headers}
	if got := NextOrdinal(headerOnly); got != 1 {
		t.Errorf("NextOrdinal(header only) = %d, want 1", got)
	}
}

func TestNextOrdinalNumericLastRow(t *testing.T) {
	rows := [][]string{
		Headers,
		{"1", "Client A"},
		{"2", "Client B"},
	}
	if got := NextOrdinal(rows); got != 3 {
		t.Errorf("NextOrdinal = %d, want 3", got)
	}
}

func TestNextOrdinalNonNumericLastRow(t *testing.T) {
	rows := [][]string{
		Headers,
		{"1", "Client A"},
		{"total", "n/a"},
	}
	// Falls back to the row count, header included.
	if got := NextOrdinal(rows); got != 3 {
		t.Errorf("NextOrdinal = %d, want 3", got)
	}
}

func TestNextOrdinalEmptyLastRow(t *testing.T) {
	rows := [][]string{
		Headers,
		{"1", "Client A"},
		{},
	}
	if got := NextOrdinal(rows); got != 3 {
		t.Errorf("NextOrdinal = %d, want 3", got)
	}
}

func TestRowValues(t *testing.T) {
	rec := Record{
		ClientName:     "Aliyev Vali",
		PhoneNumber:    "+998901234567",
		ProductType:    "Cement M400",
		ClientLocation: "Tashkent, Chilonzor district 5",
		ContractID:     "CT-1042",
		ContractAmount: "5.000.000",
		SellerName:     "Karimov Olim",
	}
	now := time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)
	row := RowValues(7, rec, now)
	if len(row) != len(Headers) {
		t.Fatalf("RowValues returned %d cells, want %d", len(row), len(Headers))
	}
	if row[0] != "7" {
		t.Errorf("ordinal cell = %q, want %q", row[0], "7")
	}
	if row[1] != rec.ClientName {
		t.Errorf("client cell = %q, want %q", row[1], rec.ClientName)
	}
	if row[4] != "" {
		t.Errorf("shipment type cell = %q, want empty", row[4])
	}
	if row[6] != "14.03.2026" {
		t.Errorf("contract date cell = %q, want %q", row[6], "14.03.2026")
	}
	if row[7] != "14.03.2026 15:04" {
		t.Errorf("submitted cell = %q, want %q", row[7], "14.03.2026 15:04")
	}
	if row[8] != "" {
		t.Errorf("shipped date cell = %q, want empty", row[8])
	}
	if row[11] != rec.SellerName {
		t.Errorf("seller cell = %q, want %q", row[11], rec.SellerName)
	}
}

func TestMockSinkAppendSequence(t *testing.T) {
	sink := NewMockSink()
	ref := Ref{SpreadsheetID: "sheet-1", Worksheet: "Reports"}
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := sink.Append(ctx, ref, Record{ClientName: "Client"})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if got != want {
			t.Errorf("Append ordinal = %d, want %d", got, want)
		}
	}
	rows := sink.Rows(ref)
	if len(rows) != 4 {
		t.Fatalf("stored rows = %d, want 4 (header + 3)", len(rows))
	}
	if rows[0][0] != Headers[0] {
		t.Errorf("first row is not the header: %v", rows[0])
	}
}

func TestMockSinkSeededOrdinal(t *testing.T) {
	sink := NewMockSink()
	ref := Ref{SpreadsheetID: "sheet-1", Worksheet: "Reports"}
	sink.Seed(ref, [][]string{
		Headers,
		{"41", "existing"},
	})
	got, err := sink.Append(context.Background(), ref, Record{ClientName: "Client"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got != 42 {
		t.Errorf("Append ordinal = %d, want 42", got)
	}
}

func TestMockSinkFailure(t *testing.T) {
	sink := NewMockSink()
	ref := Ref{SpreadsheetID: "sheet-1", Worksheet: "Reports"}
	wantErr := errors.New("quota exceeded")
	sink.Fail(wantErr)

	if _, err := sink.Append(context.Background(), ref, Record{}); !errors.Is(err, wantErr) {
		t.Errorf("Append error = %v, want %v", err, wantErr)
	}
	if rows := sink.Rows(ref); len(rows) != 0 {
		t.Errorf("failed append stored %d rows, want 0", len(rows))
	}

	sink.Fail(nil)
	if _, err := sink.Append(context.Background(), ref, Record{}); err != nil {
		t.Errorf("Append after reset: %v", err)
	}
}
