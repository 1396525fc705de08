package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/sheets"
)

const exportSheetName = "Reports"

func newExportCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export reports to a local Excel workbook",
		Long:  "Writes reports to an .xlsx file with the same columns as the spreadsheet sink.",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := adminDB(configPath)
			if err != nil {
				return err
			}
			n, err := exportReports(gormDB, outPath, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d reports to %s\n", n, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "reports.xlsx", "output file")
	cmd.Flags().StringVarP(&status, "status", "s", models.StatusConfirmed, "report status to export (confirmed, pending, rejected, all)")
	return cmd
}

// exportReports writes the selected reports to an xlsx workbook and returns
// how many rows were written.
func exportReports(gormDB *gorm.DB, outPath, status string) (int, error) {
	q := gormDB.Order("id")
	if status != "all" {
		q = q.Where("status = ?", status)
	}
	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return 0, fmt.Errorf("export: load reports: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), exportSheetName)

	header := make([]interface{}, len(sheets.Headers))
	for i, h := range sheets.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("export: write header: %w", err)
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, fmt.Errorf("export: row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(exportSheetName, cell, exportRow(i+1, r)); err != nil {
			return 0, fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return 0, fmt.Errorf("export: save %s: %w", outPath, err)
	}
	return len(reports), nil
}

// exportRow maps a stored report onto the sink's column order. The ordinal
// column prefers the spreadsheet ordinal when one was assigned.
func exportRow(fallbackOrdinal int, r models.Report) *[]interface{} {
	ordinal := fallbackOrdinal
	if r.SheetOrdinal != nil {
		ordinal = *r.SheetOrdinal
	}
	row := []interface{}{
		strconv.Itoa(ordinal),
		r.ClientName,
		r.PhoneNumber,
		r.ProductType,
		"",
		r.ClientLocation,
		r.CreatedAt.Format("02.01.2006"),
		r.CreatedAt.Format("02.01.2006 15:04"),
		"",
		r.ContractID,
		r.ContractAmount,
		r.SellerName,
	}
	return &row
}
