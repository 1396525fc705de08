package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/sheets"
)

// deliverReport walks a full conversation and submits it, returning the
// review-channel message.
func deliverReport(t *testing.T, e *env) chat.SentMessage {
	t.Helper()
	confirmation := e.walkToConfirmation("sub1", testChannel)
	return e.submitDraft("sub1", confirmation.Ref)
}

func newApprovalEnv(t *testing.T) *env {
	t.Helper()
	e := newEnv(t, config.StrategyAssigned)
	group := e.seedGroup("east", "review-ch")
	e.seedUser("sub1", "Karimov Olim", &group.ID, false)
	return e
}

func TestConfirmReport(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press(testApproverID, actionConfirmReport, review.Ref)

	caption := e.adapter.CaptionOf(review.Ref)
	if !IsConfirmed(caption) {
		t.Errorf("caption not confirmed:\n%s", caption)
	}
	if strings.Contains(caption, statusPendingLine) {
		t.Errorf("pending line survived confirmation:\n%s", caption)
	}

	rec, err := e.store.ByMessageID(review.Ref.MessageID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != models.StatusConfirmed {
		t.Errorf("record status = %q, want confirmed", rec.Status)
	}
	if rec.ConfirmedBy == nil || *rec.ConfirmedBy != testApproverID {
		t.Errorf("ConfirmedBy = %v, want approver", rec.ConfirmedBy)
	}
	if rec.SheetOrdinal == nil || *rec.SheetOrdinal != 1 {
		t.Errorf("SheetOrdinal = %v, want 1", rec.SheetOrdinal)
	}

	ref := sheets.Ref{SpreadsheetID: rec.SpreadsheetID, Worksheet: rec.Worksheet}
	rows := e.sink.Rows(ref)
	if len(rows) != 2 {
		t.Fatalf("sheet has %d rows, want header + 1", len(rows))
	}
	if rows[1][0] != "1" || rows[1][1] != "Aliyev Vali" {
		t.Errorf("appended row = %v", rows[1])
	}
	if rows[1][10] != "5.000.000" {
		t.Errorf("amount cell = %q, want formatted amount", rows[1][10])
	}

	if ans, _ := e.adapter.LastAnswer(); ans.Text != msgConfirmed {
		t.Errorf("answer = %q, want %q", ans.Text, msgConfirmed)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press(testApproverID, actionConfirmReport, review.Ref)
	e.press(testApproverID, actionConfirmReport, review.Ref)

	ref := sheets.Ref{SpreadsheetID: "ss-east", Worksheet: "Reports"}
	if rows := e.sink.Rows(ref); len(rows) != 2 {
		t.Errorf("double confirm appended %d rows, want 1", len(rows)-1)
	}
	if ans, _ := e.adapter.LastAnswer(); ans.Text != msgAlreadyConfirmed {
		t.Errorf("answer = %q, want %q", ans.Text, msgAlreadyConfirmed)
	}
}

func TestConfirmRequiresApprover(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press("intruder", actionConfirmReport, review.Ref)

	if caption := e.adapter.CaptionOf(review.Ref); IsConfirmed(caption) {
		t.Error("unauthorized press confirmed the report")
	}
	ans, _ := e.adapter.LastAnswer()
	if ans.Text != msgNotAllowed || !ans.Alert {
		t.Errorf("answer = %+v, want alerted refusal", ans)
	}
	ref := sheets.Ref{SpreadsheetID: "ss-east", Worksheet: "Reports"}
	if rows := e.sink.Rows(ref); len(rows) != 0 {
		t.Errorf("unauthorized press reached the sheet: %d rows", len(rows))
	}
}

func TestRejectReport(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press(testApproverID, actionRejectReport, review.Ref)

	if !e.adapter.Deleted(review.Ref) {
		t.Error("rejected report still in the review channel")
	}
	rec, err := e.store.ByMessageID(review.Ref.MessageID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != models.StatusRejected {
		t.Errorf("record status = %q, want rejected", rec.Status)
	}

	ref := sheets.Ref{SpreadsheetID: "ss-east", Worksheet: "Reports"}
	if rows := e.sink.Rows(ref); len(rows) != 0 {
		t.Errorf("rejection reached the sheet: %d rows", len(rows))
	}

	// The submitter gets a direct notice with a way to reach the approver.
	notice := e.lastSent()
	if notice.Text != msgRejectedNotice {
		t.Fatalf("notice = %q, want rejection notice", notice.Text)
	}
	if notice.Ref.ChannelID != "sub1" {
		t.Errorf("notice delivered to %q, want the submitter", notice.Ref.ChannelID)
	}
	if len(notice.Controls) != 1 || notice.Controls[0].URL != "mock://user/"+testApproverID {
		t.Errorf("notice controls = %v, want approver link", notice.Controls)
	}

	if ans, _ := e.adapter.LastAnswer(); ans.Text != msgRejectedAck {
		t.Errorf("answer = %q, want %q", ans.Text, msgRejectedAck)
	}
}

func TestRejectRequiresApprover(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press("intruder", actionRejectReport, review.Ref)

	if e.adapter.Deleted(review.Ref) {
		t.Error("unauthorized press deleted the report")
	}
	if ans, _ := e.adapter.LastAnswer(); ans.Text != msgNotAllowed {
		t.Errorf("answer = %q, want refusal", ans.Text)
	}
}

func TestRejectedReportCannotBeConfirmed(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press(testApproverID, actionRejectReport, review.Ref)
	// The message is gone, so the follow-up press arrives without a
	// caption and confirmation is refused.
	e.press(testApproverID, actionConfirmReport, review.Ref)

	rec, err := e.store.ByMessageID(review.Ref.MessageID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != models.StatusRejected {
		t.Errorf("record status = %q, want rejected to stick", rec.Status)
	}
	ref := sheets.Ref{SpreadsheetID: "ss-east", Worksheet: "Reports"}
	if rows := e.sink.Rows(ref); len(rows) != 0 {
		t.Errorf("confirm after reject reached the sheet: %d rows", len(rows))
	}
}

func TestConfirmSurvivesSheetFailure(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.sink.Fail(errors.New("quota exceeded"))
	e.press(testApproverID, actionConfirmReport, review.Ref)

	if caption := e.adapter.CaptionOf(review.Ref); !IsConfirmed(caption) {
		t.Error("sheet failure rolled back the visible confirmation")
	}
	rec, err := e.store.ByMessageID(review.Ref.MessageID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != models.StatusConfirmed {
		t.Errorf("record status = %q, want confirmed", rec.Status)
	}
	if rec.SheetOrdinal != nil {
		t.Errorf("SheetOrdinal = %v, want unset after failed append", rec.SheetOrdinal)
	}
	ans, _ := e.adapter.LastAnswer()
	if ans.Text != msgConfirmedNoExport || !ans.Alert {
		t.Errorf("answer = %+v, want alerted export failure", ans)
	}
}

func TestStatusButtonRestatesConfirmation(t *testing.T) {
	e := newApprovalEnv(t)
	review := deliverReport(t, e)

	e.press(testApproverID, actionConfirmReport, review.Ref)
	e.press(testApproverID, actionStatusConfirmed, review.Ref)

	if ans, _ := e.adapter.LastAnswer(); ans.Text != msgAlreadyConfirmed {
		t.Errorf("answer = %q, want %q", ans.Text, msgAlreadyConfirmed)
	}
}
