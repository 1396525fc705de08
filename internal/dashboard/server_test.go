package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testRouter(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb, NewRouter(gdb)
}

func seedReport(t *testing.T, gdb *gorm.DB, messageID, status string) models.Report {
	t.Helper()
	r := models.Report{
		SubmitterID:    "sub1",
		SellerName:     "Karimov Olim",
		ClientName:     "Aliyev Vali",
		PhoneNumber:    "+998901234567",
		ProductType:    "Cement M400",
		ClientLocation: "Tashkent, Chilonzor district 5",
		ContractID:     "CT-1042",
		ContractAmount: "5.000.000",
		PhotoRef:       "file-1|",
		ChannelID:      "review-ch",
		MessageID:      messageID,
		Status:         status,
	}
	if err := gdb.Create(&r).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return r
}

func getJSON(t *testing.T, h http.Handler, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v\n%s", path, err, w.Body.String())
		}
	}
	return w
}

func TestHealthz(t *testing.T) {
	_, router := testRouter(t)
	w := getJSON(t, router, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}
}

func TestStatusSummary(t *testing.T) {
	gdb, router := testRouter(t)
	seedReport(t, gdb, "m1", models.StatusPending)
	seedReport(t, gdb, "m2", models.StatusConfirmed)
	seedReport(t, gdb, "m3", models.StatusConfirmed)

	var s Summary
	w := getJSON(t, router, "/api/status", &s)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if s.Pending != 1 || s.Confirmed != 2 || s.Total != 3 {
		t.Errorf("summary = %+v", s)
	}
}

func TestReportListFiltersByStatus(t *testing.T) {
	gdb, router := testRouter(t)
	seedReport(t, gdb, "m1", models.StatusPending)
	seedReport(t, gdb, "m2", models.StatusConfirmed)

	var resp struct {
		Reports []ReportRow `json:"reports"`
		Count   int         `json:"count"`
	}
	w := getJSON(t, router, "/api/reports?status=pending", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("reports = %d, want 200", w.Code)
	}
	if resp.Count != 1 || len(resp.Reports) != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Reports[0].Status != models.StatusPending {
		t.Errorf("row status = %q", resp.Reports[0].Status)
	}
}

func TestReportListNewestFirst(t *testing.T) {
	gdb, router := testRouter(t)
	first := seedReport(t, gdb, "m1", models.StatusPending)
	second := seedReport(t, gdb, "m2", models.StatusPending)

	var resp struct {
		Reports []ReportRow `json:"reports"`
	}
	getJSON(t, router, "/api/reports", &resp)
	if len(resp.Reports) != 2 {
		t.Fatalf("rows = %d, want 2", len(resp.Reports))
	}
	if resp.Reports[0].ID != second.ID || resp.Reports[1].ID != first.ID {
		t.Errorf("order = %d, %d; want newest first", resp.Reports[0].ID, resp.Reports[1].ID)
	}
}

func TestReportDetail(t *testing.T) {
	gdb, router := testRouter(t)
	r := seedReport(t, gdb, "m1", models.StatusPending)

	var row ReportRow
	w := getJSON(t, router, "/api/reports/1", &row)
	if w.Code != http.StatusOK {
		t.Fatalf("detail = %d, want 200", w.Code)
	}
	if row.ID != r.ID || row.ClientName != r.ClientName {
		t.Errorf("row = %+v", row)
	}

	w = getJSON(t, router, "/api/reports/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing report = %d, want 404", w.Code)
	}
}
