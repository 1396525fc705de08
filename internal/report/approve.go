package report

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/sheets"
)

// Approver handles the confirm and reject buttons on delivered reports.
// Only the configured approver may use them.
type Approver struct {
	adapter    chat.Adapter
	store      *Store
	sink       sheets.Sink
	approverID string
	logf       func(format string, args ...interface{})
}

// ApproverOpts configures an Approver. Sink may be nil when no spreadsheet
// export is configured; Logf defaults to the standard logger.
type ApproverOpts struct {
	Adapter    chat.Adapter
	Store      *Store
	Sink       sheets.Sink
	ApproverID string
	Logf       func(format string, args ...interface{})
}

// NewApprover creates an Approver.
func NewApprover(opts ApproverOpts) (*Approver, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("report: approver: adapter is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("report: approver: store is required")
	}
	if opts.ApproverID == "" {
		return nil, fmt.Errorf("report: approver: approver id is required")
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Approver{
		adapter:    opts.Adapter,
		store:      opts.Store,
		sink:       opts.Sink,
		approverID: opts.ApproverID,
		logf:       opts.Logf,
	}, nil
}

// Confirm marks a pending report confirmed. The order matters: the visible
// caption is updated first, because it is what makes a repeat press a
// no-op. Only after the caption shows confirmed are the database row and
// the spreadsheet written; either sink failing leaves the report confirmed
// on the platform and is reported to the approver.
func (a *Approver) Confirm(ctx context.Context, ev chat.Event) error {
	if ev.UserID != a.approverID {
		return a.answer(ctx, ev, msgNotAllowed, true)
	}
	if ev.Caption == "" {
		return a.answer(ctx, ev, msgConfirmEditFail, true)
	}
	if IsConfirmed(ev.Caption) {
		return a.answer(ctx, ev, msgAlreadyConfirmed, false)
	}

	confirmed := SetStatusLine(ev.Caption, models.StatusConfirmed)
	if err := a.adapter.EditCaption(ctx, ev.Ref, confirmed, confirmedControls()); err != nil {
		a.logf("report: confirm: edit caption %s: %v", ev.Ref.MessageID, err)
		return a.answer(ctx, ev, msgConfirmEditFail, true)
	}

	if err := a.store.SetStatus(ev.Ref.MessageID, models.StatusConfirmed, ev.UserID); err != nil {
		a.logf("report: confirm: record status for %s: %v", ev.Ref.MessageID, err)
		return a.answer(ctx, ev, msgConfirmedNoExport, true)
	}
	return a.export(ctx, ev)
}

// export appends the confirmed report to its spreadsheet. The displayed
// caption, not the stored row, supplies the field values: manual edits to
// the visible message are what reach the sheet.
func (a *Approver) export(ctx context.Context, ev chat.Event) error {
	rec, err := a.store.ByMessageID(ev.Ref.MessageID)
	if err != nil {
		a.logf("report: confirm: load report %s: %v", ev.Ref.MessageID, err)
		return a.answer(ctx, ev, msgConfirmedNoExport, true)
	}
	ref := sheets.Ref{SpreadsheetID: rec.SpreadsheetID, Worksheet: rec.Worksheet}
	if a.sink == nil || ref.IsZero() {
		return a.answer(ctx, ev, msgConfirmedNoSheet, false)
	}

	parsed, err := ParseCaption(ev.Caption)
	if err != nil {
		a.logf("report: confirm: parse caption %s: %v", ev.Ref.MessageID, err)
		return a.answer(ctx, ev, msgConfirmedNoExport, true)
	}
	ordinal, err := a.sink.Append(ctx, ref, sheets.Record{
		ClientName:     parsed.ClientName,
		PhoneNumber:    parsed.PhoneNumber,
		ProductType:    parsed.ProductType,
		ClientLocation: parsed.ClientLocation,
		ContractID:     parsed.ContractID,
		ContractAmount: parsed.ContractAmount,
		SellerName:     parsed.SellerName,
	})
	if err != nil {
		a.logf("report: confirm: append to sheet %s/%s: %v", ref.SpreadsheetID, ref.Worksheet, err)
		return a.answer(ctx, ev, msgConfirmedNoExport, true)
	}
	if err := a.store.SetSheetOrdinal(ev.Ref.MessageID, ordinal); err != nil {
		a.logf("report: confirm: record ordinal for %s: %v", ev.Ref.MessageID, err)
	}
	return a.answer(ctx, ev, msgConfirmed, false)
}

// Reject removes a pending report from the review channel, records the
// rejection, and notifies the submitter with a way to reach the approver.
func (a *Approver) Reject(ctx context.Context, ev chat.Event) error {
	if ev.UserID != a.approverID {
		return a.answer(ctx, ev, msgNotAllowed, true)
	}
	if ev.Caption != "" && IsConfirmed(ev.Caption) {
		return a.answer(ctx, ev, msgAlreadyConfirmed, false)
	}

	// Resolve the submitter before the message disappears.
	submitterID := a.submitterFor(ev)

	if err := a.adapter.DeleteMessage(ctx, ev.Ref); err != nil {
		a.logf("report: reject: delete message %s: %v", ev.Ref.MessageID, err)
		return a.answer(ctx, ev, msgRejectDeleteFail, true)
	}
	if err := a.store.SetStatus(ev.Ref.MessageID, models.StatusRejected, ev.UserID); err != nil {
		a.logf("report: reject: record status for %s: %v", ev.Ref.MessageID, err)
	}

	if submitterID != "" {
		a.notifySubmitter(ctx, submitterID)
	}
	return a.answer(ctx, ev, msgRejectedAck, false)
}

// submitterFor resolves the submitter's platform id, preferring the stored
// report and falling back to the seller named on the caption.
func (a *Approver) submitterFor(ev chat.Event) string {
	rec, err := a.store.ByMessageID(ev.Ref.MessageID)
	if err == nil {
		return rec.SubmitterID
	}
	if !errors.Is(err, ErrReportNotFound) {
		a.logf("report: reject: load report %s: %v", ev.Ref.MessageID, err)
		return ""
	}
	if ev.Caption == "" {
		return ""
	}
	parsed, err := ParseCaption(ev.Caption)
	if err != nil || parsed.SellerName == "" {
		return ""
	}
	user, err := a.store.UserByName(parsed.SellerName)
	if err != nil {
		a.logf("report: reject: lookup seller %q: %v", parsed.SellerName, err)
		return ""
	}
	if user == nil {
		return ""
	}
	return user.PlatformID
}

// notifySubmitter sends the rejection notice as a direct message. Failure
// is logged only: the rejection itself already happened.
func (a *Approver) notifySubmitter(ctx context.Context, submitterID string) {
	var link string
	if linker, ok := a.adapter.(chat.UserLinker); ok {
		link = linker.UserLink(a.approverID)
	}
	if _, err := a.adapter.SendText(ctx, submitterID, "", msgRejectedNotice, contactControls(link)); err != nil {
		a.logf("report: reject: notify submitter %s: %v", submitterID, err)
	}
}

func (a *Approver) answer(ctx context.Context, ev chat.Event, text string, alert bool) error {
	if err := a.adapter.AnswerAction(ctx, ev, text, alert); err != nil {
		return fmt.Errorf("report: answer action: %w", err)
	}
	return nil
}
