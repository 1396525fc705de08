package report

import (
	"strings"
	"testing"

	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/models"
)

func TestSettingVersioning(t *testing.T) {
	e := newEnv(t, config.StrategyAssigned)

	if v, err := e.store.Setting("approver_password"); err != nil || v != "" {
		t.Fatalf("unset setting = %q, %v; want empty", v, err)
	}
	if err := e.store.PutSetting("approver_password", "hash-1", "admin"); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	if err := e.store.PutSetting("approver_password", "hash-2", "admin"); err != nil {
		t.Fatalf("put setting: %v", err)
	}

	v, err := e.store.Setting("approver_password")
	if err != nil {
		t.Fatalf("read setting: %v", err)
	}
	if v != "hash-2" {
		t.Errorf("setting = %q, want the latest version", v)
	}

	var count int64
	e.gdb.Model(&models.Setting{}).Count(&count)
	if count != 2 {
		t.Errorf("setting rows = %d, want history retained", count)
	}
}

func TestStatusCountsAndDigest(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)
	e.press(testApproverID, actionConfirmReport, review.Ref)

	counts, err := e.store.StatusCounts()
	if err != nil {
		t.Fatalf("status counts: %v", err)
	}
	if counts[models.StatusConfirmed] != 1 {
		t.Errorf("confirmed count = %d, want 1", counts[models.StatusConfirmed])
	}

	digest := RenderDigest(counts)
	if !strings.Contains(digest, "Confirmed: 1") {
		t.Errorf("digest missing confirmed count:\n%s", digest)
	}
	if !strings.Contains(digest, "Total: 1") {
		t.Errorf("digest missing total:\n%s", digest)
	}
}

func TestRenderDigestEmpty(t *testing.T) {
	digest := RenderDigest(nil)
	if !strings.Contains(digest, "No reports recorded yet") {
		t.Errorf("empty digest = %q", digest)
	}
}

func TestDestinationsOrdered(t *testing.T) {
	e := newEnv(t, config.StrategyInteractive)
	e.seedGroup("west", "review-west")
	e.seedGroup("east", "review-east")

	dests, err := e.store.Destinations()
	if err != nil {
		t.Fatalf("destinations: %v", err)
	}
	if len(dests) != 2 {
		t.Fatalf("destinations = %d, want 2", len(dests))
	}
	if dests[0].Name != "east" || dests[1].Name != "west" {
		t.Errorf("destinations not name-ordered: %v, %v", dests[0].Name, dests[1].Name)
	}
	if dests[0].SpreadsheetID != "ss-east" {
		t.Errorf("sheet not resolved: %q", dests[0].SpreadsheetID)
	}
}
