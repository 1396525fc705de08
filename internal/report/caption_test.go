package report

import (
	"strings"
	"testing"

	"github.com/akramov/reportflow/internal/models"
)

func testDraft() Draft {
	return Draft{
		ClientName:      "Aliyev Vali",
		PhoneNumber:     "+998901234567",
		AdditionalPhone: "+998907654321",
		ProductType:     "Cement M400",
		ClientLocation:  "Tashkent, Chilonzor district 5",
		ContractID:      "CT-1042",
		ContractAmount:  "5.000.000",
		PhotoRef:        "file-1|",
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	d := testDraft()
	caption := RenderCaption(d, "Karimov Olim", models.StatusPending)

	if !strings.HasSuffix(caption, statusPendingLine) {
		t.Errorf("caption does not end with the pending status line:\n%s", caption)
	}

	p, err := ParseCaption(caption)
	if err != nil {
		t.Fatalf("ParseCaption: %v", err)
	}
	if p.ClientName != d.ClientName {
		t.Errorf("ClientName = %q, want %q", p.ClientName, d.ClientName)
	}
	if p.PhoneNumber != d.PhoneNumber {
		t.Errorf("PhoneNumber = %q, want %q", p.PhoneNumber, d.PhoneNumber)
	}
	if p.ProductType != d.ProductType {
		t.Errorf("ProductType = %q, want %q", p.ProductType, d.ProductType)
	}
	if p.ClientLocation != d.ClientLocation {
		t.Errorf("ClientLocation = %q, want %q", p.ClientLocation, d.ClientLocation)
	}
	if p.ContractID != d.ContractID {
		t.Errorf("ContractID = %q, want %q", p.ContractID, d.ContractID)
	}
	if p.ContractAmount != d.ContractAmount {
		t.Errorf("ContractAmount = %q, want %q", p.ContractAmount, d.ContractAmount)
	}
	if p.SellerName != "Karimov Olim" {
		t.Errorf("SellerName = %q, want %q", p.SellerName, "Karimov Olim")
	}
}

func TestRenderCaptionDeclinedAdditionalPhone(t *testing.T) {
	d := testDraft()
	d.AdditionalPhone = ""
	caption := RenderCaption(d, "Karimov Olim", models.StatusPending)
	if !strings.Contains(caption, labelAdditional+" "+NoAdditionalPhone) {
		t.Errorf("caption missing explicit %q placeholder:\n%s", NoAdditionalPhone, caption)
	}
}

func TestSetStatusLineReplaces(t *testing.T) {
	caption := RenderCaption(testDraft(), "Karimov Olim", models.StatusPending)
	updated := SetStatusLine(caption, models.StatusConfirmed)

	if strings.Contains(updated, statusPendingLine) {
		t.Errorf("pending status line survived the update:\n%s", updated)
	}
	if !strings.HasSuffix(updated, statusConfirmedLine) {
		t.Errorf("updated caption does not end with the confirmed line:\n%s", updated)
	}
	if strings.Count(updated, StatusLinePrefix) != 1 {
		t.Errorf("updated caption has %d status lines, want 1:\n%s",
			strings.Count(updated, StatusLinePrefix), updated)
	}
}

func TestSetStatusLineAppendsWhenMissing(t *testing.T) {
	caption := "A manually written report\nwith no status line"
	updated := SetStatusLine(caption, models.StatusConfirmed)
	if !strings.HasSuffix(updated, statusConfirmedLine) {
		t.Errorf("status line not appended:\n%s", updated)
	}
}

func TestIsConfirmed(t *testing.T) {
	caption := RenderCaption(testDraft(), "Karimov Olim", models.StatusPending)
	if IsConfirmed(caption) {
		t.Error("pending caption reported as confirmed")
	}
	if !IsConfirmed(SetStatusLine(caption, models.StatusConfirmed)) {
		t.Error("confirmed caption not detected")
	}
}

func TestParseCaptionRejectsForeignText(t *testing.T) {
	if _, err := ParseCaption("hello there"); err == nil {
		t.Error("ParseCaption accepted text with no field lines")
	}
}
