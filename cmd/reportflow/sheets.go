package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/sheets"
)

func newSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Spreadsheet maintenance commands",
	}

	cmd.AddCommand(newSheetsTestCmd())
	cmd.AddCommand(newSheetsResequenceCmd())
	return cmd
}

func newSheetsTestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "test <sheet-name>",
		Short: "Append a marked test row to verify spreadsheet access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, ref, err := sinkForSheet(configPath, args[0])
			if err != nil {
				return err
			}
			ordinal, err := sink.Append(context.Background(), ref, sheets.Record{
				ClientName:     "Connectivity test",
				PhoneNumber:    "-",
				ProductType:    "-",
				ClientLocation: "-",
				ContractID:     "TEST " + time.Now().Format("02.01.2006 15:04"),
				ContractAmount: "0",
				SellerName:     "reportflow",
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test row appended to %s!%s as No %d — delete it when done\n",
				ref.SpreadsheetID, ref.Worksheet, ordinal)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

func newSheetsResequenceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resequence <sheet-name>",
		Short: "Renumber the ordinal column after manual row deletions",
		Long:  "Rewrites the No column to 1..n in row order. Run after deleting rows by hand.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, ref, err := sinkForSheet(configPath, args[0])
			if err != nil {
				return err
			}
			n, err := sink.Resequence(context.Background(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renumbered %d rows in %s!%s\n", n, ref.SpreadsheetID, ref.Worksheet)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

// sinkForSheet resolves a registered sheet by name and builds a Google sink
// from the configured credentials.
func sinkForSheet(configPath, sheetName string) (*sheets.GoogleSink, sheets.Ref, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, sheets.Ref{}, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, sheets.Ref{}, fmt.Errorf("connect to database: %w", err)
	}
	ref, err := sheetRefByName(gormDB, sheetName)
	if err != nil {
		return nil, sheets.Ref{}, err
	}
	sink, err := sheets.NewGoogleSink(context.Background(), cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, sheets.Ref{}, err
	}
	return sink, ref, nil
}

func sheetRefByName(gormDB *gorm.DB, name string) (sheets.Ref, error) {
	var sheet models.Sheet
	if err := gormDB.Where("name = ?", name).First(&sheet).Error; err != nil {
		return sheets.Ref{}, fmt.Errorf("sheet %q not found: %w", name, err)
	}
	return sheets.Ref{SpreadsheetID: sheet.SpreadsheetID, Worksheet: sheet.Worksheet}, nil
}
