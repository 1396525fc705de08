package report

import (
	"context"
	"fmt"
	"log"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/models"
	"github.com/akramov/reportflow/internal/session"
)

// Submitter delivers a confirmed draft to its review channel and records
// the pending report.
type Submitter struct {
	adapter  chat.Adapter
	sessions session.Store
	store    *Store
	logf     func(format string, args ...interface{})
}

// SubmitterOpts configures a Submitter. All fields except Logf are
// required.
type SubmitterOpts struct {
	Adapter  chat.Adapter
	Sessions session.Store
	Store    *Store
	Logf     func(format string, args ...interface{})
}

// NewSubmitter creates a Submitter.
func NewSubmitter(opts SubmitterOpts) (*Submitter, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("report: submitter: adapter is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("report: submitter: session store is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("report: submitter: store is required")
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Submitter{
		adapter:  opts.Adapter,
		sessions: opts.Sessions,
		store:    opts.Store,
		logf:     opts.Logf,
	}, nil
}

// Submit sends the draft to the review channel as a pending report. On
// delivery failure the draft and state are left untouched so the user can
// press Confirm again; the database row is only written after the channel
// message exists, keyed by its message id.
func (s *Submitter) Submit(ctx context.Context, ev chat.Event) error {
	bag, err := s.sessions.Data(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: submit: read session: %w", err)
	}
	d := draftFromBag(bag)
	if !d.Complete(bag[keyHasAdditional] != "") {
		s.logf("report: submit: incomplete draft for %s", ev.UserID)
		return nil
	}
	dest := destinationFromBag(bag)
	if dest.ChannelID == "" {
		if _, err := s.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, msgNoDestination, nil); err != nil {
			return fmt.Errorf("report: submit: send notice: %w", err)
		}
		return nil
	}

	caption := RenderCaption(d, bag[keySellerName], models.StatusPending)
	ref, err := s.adapter.SendPhoto(ctx, dest.ChannelID, dest.TopicID,
		decodePhotoRef(d.PhotoRef), caption, reviewControls())
	if err != nil {
		s.logf("report: submit: deliver to %s: %v", dest.ChannelID, err)
		if _, err := s.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, msgDeliveryFailed, nil); err != nil {
			return fmt.Errorf("report: submit: send failure notice: %w", err)
		}
		return nil
	}

	if _, err := s.store.CreatePending(d, ev.UserID, bag[keySellerName], ref, dest); err != nil {
		// The channel message exists but the record does not. Approval
		// still works off the displayed caption; log so the gap is
		// visible.
		s.logf("report: submit: record pending report for message %s: %v", ref.MessageID, err)
	}

	s.deleteQuiet(ctx, ev, bag[keyLastPromptID])
	if err := s.sessions.Clear(ctx, ev.UserID); err != nil {
		s.logf("report: submit: clear session for %s: %v", ev.UserID, err)
	}
	if _, err := s.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, msgSubmitted, nil); err != nil {
		return fmt.Errorf("report: submit: send receipt: %w", err)
	}
	return nil
}

func (s *Submitter) deleteQuiet(ctx context.Context, ev chat.Event, messageID string) {
	if messageID == "" {
		return
	}
	ref := chat.MessageRef{ChannelID: ev.ChannelID, TopicID: ev.TopicID, MessageID: messageID}
	if err := s.adapter.DeleteMessage(ctx, ref); err != nil {
		s.logf("report: submit: delete message %s: %v", messageID, err)
	}
}
