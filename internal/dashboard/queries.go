package dashboard

import (
	"strconv"
	"time"

	"github.com/akramov/reportflow/internal/models"
	"gorm.io/gorm"
)

// defaultListLimit bounds the report list when no limit is given.
const defaultListLimit = 50

// Summary holds report counts by status.
type Summary struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Rejected  int64 `json:"rejected"`
	Total     int64 `json:"total"`
}

// StatusSummary returns report counts grouped by status.
func StatusSummary(db *gorm.DB) (Summary, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := db.Model(&models.Report{}).
		Select("status, COUNT(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, r := range rows {
		s.Total += r.N
		switch r.Status {
		case models.StatusPending:
			s.Pending = r.N
		case models.StatusConfirmed:
			s.Confirmed = r.N
		case models.StatusRejected:
			s.Rejected = r.N
		}
	}
	return s, nil
}

// ReportRow holds report data for the list and detail views.
type ReportRow struct {
	ID             uint       `json:"id"`
	SellerName     string     `json:"seller_name"`
	ClientName     string     `json:"client_name"`
	ProductType    string     `json:"product_type"`
	ContractID     string     `json:"contract_id"`
	ContractAmount string     `json:"contract_amount"`
	Status         string     `json:"status"`
	SheetOrdinal   *int       `json:"sheet_ordinal,omitempty"`
	ConfirmedBy    *string    `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RecentReports returns the newest reports, optionally filtered by status.
func RecentReports(db *gorm.DB, status, limit string) ([]ReportRow, error) {
	n := defaultListLimit
	if limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			n = parsed
		}
	}

	q := db.Model(&models.Report{}).Order("id DESC").Limit(n)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}

	rows := make([]ReportRow, len(reports))
	for i, r := range reports {
		rows[i] = reportRow(r)
	}
	return rows, nil
}

// ReportByID returns one report by its primary key.
func ReportByID(db *gorm.DB, id string) (ReportRow, error) {
	var report models.Report
	if err := db.First(&report, "id = ?", id).Error; err != nil {
		return ReportRow{}, err
	}
	return reportRow(report), nil
}

func reportRow(r models.Report) ReportRow {
	return ReportRow{
		ID:             r.ID,
		SellerName:     r.SellerName,
		ClientName:     r.ClientName,
		ProductType:    r.ProductType,
		ContractID:     r.ContractID,
		ContractAmount: r.ContractAmount,
		Status:         r.Status,
		SheetOrdinal:   r.SheetOrdinal,
		ConfirmedBy:    r.ConfirmedBy,
		ConfirmedAt:    r.ConfirmedAt,
		CreatedAt:      r.CreatedAt,
	}
}
