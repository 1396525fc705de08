package bot

import (
	"context"
	"io"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/report"
	"github.com/akramov/reportflow/internal/session"
)

func testDB(t *testing.T) *gorm.DB {
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
	return gdb
}

func testConfig() *config.Config {
	return &config.Config{
		Platform:   "discord",
		Strategy:   config.StrategyAssigned,
		ApproverID: "approver-1",
		Trigger:    "/report",
	}
}

func TestNewDaemonValidates(t *testing.T) {
	gdb := testDB(t)
	adapter := chat.NewMockAdapter()
	cfg := testConfig()

	if _, err := NewDaemon(DaemonOpts{Config: cfg, Adapter: adapter}); err == nil {
		t.Error("NewDaemon accepted nil db")
	}
	if _, err := NewDaemon(DaemonOpts{DB: gdb, Adapter: adapter}); err == nil {
		t.Error("NewDaemon accepted nil config")
	}
	if _, err := NewDaemon(DaemonOpts{DB: gdb, Config: cfg}); err == nil {
		t.Error("NewDaemon accepted nil adapter")
	}
	if _, err := NewDaemon(DaemonOpts{DB: gdb, Config: cfg, Adapter: adapter, Out: io.Discard}); err != nil {
		t.Errorf("NewDaemon: %v", err)
	}
}

func TestDaemonRunPumpsEvents(t *testing.T) {
	gdb := testDB(t)
	adapter := chat.NewMockAdapter()

	d, err := NewDaemon(DaemonOpts{
		DB:       gdb,
		Config:   testConfig(),
		Adapter:  adapter,
		Sessions: session.NewMemoryStore(time.Hour),
		Out:      io.Discard,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Wait for the daemon to connect and listen.
	deadline := time.After(2 * time.Second)
	for adapter.SentCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("daemon never replied to the trigger")
		case err := <-done:
			t.Fatalf("Run exited early: %v", err)
		default:
		}
		adapter.SimulateText("sub1", "Seller One", "sub1", "/report")
		time.Sleep(10 * time.Millisecond)
	}

	// Unseeded submitter under the assigned strategy has no group, so the
	// daemon answers with the no-destination notice.
	last, _ := adapter.LastSent()
	if last.Text == "" {
		t.Errorf("reply = %+v, want a notice", last)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func TestDaemonRejectsBadDigestCron(t *testing.T) {
	gdb := testDB(t)
	cfg := testConfig()
	cfg.Digest.Enabled = true
	cfg.Digest.Cron = "not a cron expr"

	d, err := NewDaemon(DaemonOpts{
		DB:       gdb,
		Config:   cfg,
		Adapter:  chat.NewMockAdapter(),
		Sessions: session.NewMemoryStore(time.Hour),
		Out:      io.Discard,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	if err := d.Run(context.Background()); err == nil {
		t.Error("Run accepted an invalid cron expression")
	}
}

func TestSendDigest(t *testing.T) {
	gdb := testDB(t)
	adapter := chat.NewMockAdapter()

	d, err := NewDaemon(DaemonOpts{
		DB:      gdb,
		Config:  testConfig(),
		Adapter: adapter,
		Out:     io.Discard,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	store, err := report.NewStore(gdb)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	d.sendDigest(context.Background(), store)

	last, ok := adapter.LastSent()
	if !ok {
		t.Fatal("digest was not sent")
	}
	if last.Ref.ChannelID != "approver-1" {
		t.Errorf("digest went to %q, want the approver", last.Ref.ChannelID)
	}
	if last.Text != "Daily report digest\n\nNo reports recorded yet." {
		t.Errorf("digest text = %q", last.Text)
	}
}

func TestResolveSessionsDefaultsToMemory(t *testing.T) {
	gdb := testDB(t)
	cfg := testConfig()
	cfg.Session.TTLMinutes = 30

	d, err := NewDaemon(DaemonOpts{
		DB:      gdb,
		Config:  cfg,
		Adapter: chat.NewMockAdapter(),
		Out:     io.Discard,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	store, err := d.resolveSessions(context.Background())
	if err != nil {
		t.Fatalf("resolveSessions: %v", err)
	}
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Errorf("store = %T, want in-memory", store)
	}
}
