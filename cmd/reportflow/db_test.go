package main

import (
	"strings"
	"testing"

	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/models"
)

func TestDBInitSqlite(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := execCmd(t, "", "db", "init", "--config", cfgPath)
	if !strings.Contains(out, "Migrated") {
		t.Errorf("expected migration output, got: %s", out)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	for _, model := range db.AllModels() {
		if !gormDB.Migrator().HasTable(model) {
			t.Errorf("table for %T missing after init", model)
		}
	}
}

func TestDBMigrateIsRerunnable(t *testing.T) {
	cfgPath := writeTestConfig(t)

	execCmd(t, "", "db", "migrate", "--config", cfgPath)
	out := execCmd(t, "", "db", "migrate", "--config", cfgPath)
	if !strings.Contains(out, "Migrated") {
		t.Errorf("expected migration output, got: %s", out)
	}

	cfg, _ := config.Load(cfgPath)
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !gormDB.Migrator().HasTable(&models.Report{}) {
		t.Error("reports table missing after migrate")
	}
}

func TestDBCmdMissingConfig(t *testing.T) {
	execCmdErr(t, "", "db", "migrate", "--config", "does-not-exist.yaml")
}
