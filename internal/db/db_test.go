package db

import (
	"strings"
	"testing"

	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db.example.com",
		Port: 3307,
		Name: "reports",
		User: "bot",
	})
	if !strings.Contains(dsn, "tcp(db.example.com:3307)") {
		t.Errorf("DSN = %q, want address tcp(db.example.com:3307)", dsn)
	}
	if !strings.Contains(dsn, "/reports") {
		t.Errorf("DSN = %q, want database /reports", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN = %q, want parseTime=true", dsn)
	}
}

func TestAutoMigrate(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// All tables should exist and accept rows.
	user := models.User{PlatformID: "100", FullName: "Aliyev Vali"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	report := models.Report{
		SubmitterID: "100", SellerName: "Aliyev Vali",
		ClientName: "Client", PhoneNumber: "+998901234567",
		ProductType: "Phone", ClientLocation: "Somewhere long enough",
		ContractID: "C-1", ContractAmount: "1.000.000",
		PhotoRef: "file-1", ChannelID: "C1", MessageID: "M1",
	}
	if err := gdb.Create(&report).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}
	var loaded models.Report
	if err := gdb.First(&loaded, report.ID).Error; err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", loaded.Status, models.StatusPending)
	}

	// MessageID is unique.
	dup := report
	dup.ID = 0
	if err := gdb.Create(&dup).Error; err == nil {
		t.Error("expected unique constraint error for duplicate MessageID")
	}
}
