package main

import (
	"testing"

	"github.com/akramov/reportflow/internal/models"
)

func TestSheetRefByName(t *testing.T) {
	gdb := exportTestDB(t)
	sheet := models.Sheet{Name: "north-sheet", SpreadsheetID: "ss-1", Worksheet: "Reports"}
	if err := gdb.Create(&sheet).Error; err != nil {
		t.Fatalf("seed sheet: %v", err)
	}

	ref, err := sheetRefByName(gdb, "north-sheet")
	if err != nil {
		t.Fatalf("sheetRefByName: %v", err)
	}
	if ref.SpreadsheetID != "ss-1" || ref.Worksheet != "Reports" {
		t.Errorf("ref = %+v", ref)
	}

	if _, err := sheetRefByName(gdb, "missing"); err == nil {
		t.Error("sheetRefByName found a missing sheet")
	}
}
