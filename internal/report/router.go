package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/session"
)

// Router classifies inbound events and dispatches them to the flow or the
// approval handler. It is the single entry point the daemon feeds events
// into.
type Router struct {
	flow     *Flow
	approver *Approver
	sessions session.Store
	trigger  string
	botID    string
	logf     func(format string, args ...interface{})
}

// RouterOpts configures a Router. BotUserID and Logf are optional.
type RouterOpts struct {
	Flow      *Flow
	Approver  *Approver
	Sessions  session.Store
	Trigger   string
	BotUserID string
	Logf      func(format string, args ...interface{})
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Flow == nil {
		return nil, fmt.Errorf("report: router: flow is required")
	}
	if opts.Approver == nil {
		return nil, fmt.Errorf("report: router: approver is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("report: router: session store is required")
	}
	if opts.Trigger == "" {
		return nil, fmt.Errorf("report: router: trigger is required")
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Router{
		flow:     opts.Flow,
		approver: opts.Approver,
		sessions: opts.Sessions,
		trigger:  opts.Trigger,
		botID:    opts.BotUserID,
		logf:     opts.Logf,
	}, nil
}

// Handle dispatches one event. Handler errors are logged, not returned:
// one bad event must not take down the listen loop.
func (r *Router) Handle(ctx context.Context, ev chat.Event) {
	if r.botID != "" && ev.UserID == r.botID {
		return
	}

	var err error
	switch ev.Kind {
	case chat.KindAction:
		err = r.handleAction(ctx, ev)
	case chat.KindText:
		err = r.handleText(ctx, ev)
	case chat.KindPhoto:
		err = r.handleInput(ctx, ev)
	}
	if err != nil {
		r.logf("report: handle %s event from %s: %v", kindName(ev.Kind), ev.UserID, err)
	}
}

func (r *Router) handleText(ctx context.Context, ev chat.Event) error {
	if strings.EqualFold(strings.TrimSpace(ev.Text), r.trigger) {
		return r.flow.Begin(ctx, ev)
	}
	return r.handleInput(ctx, ev)
}

// handleInput forwards text and photos to the flow only while a report is
// in progress. Idle chatter is ignored.
func (r *Router) handleInput(ctx context.Context, ev chat.Event) error {
	state, err := r.sessions.State(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if state == StateIdle {
		return nil
	}
	return r.flow.Input(ctx, ev)
}

func (r *Router) handleAction(ctx context.Context, ev chat.Event) error {
	switch ev.Action {
	case actionConfirmReport:
		return r.approver.Confirm(ctx, ev)
	case actionRejectReport:
		return r.approver.Reject(ctx, ev)
	case actionStatusConfirmed:
		return r.approver.answer(ctx, ev, msgAlreadyConfirmed, false)
	default:
		return r.flow.Action(ctx, ev)
	}
}

func kindName(k chat.EventKind) string {
	switch k {
	case chat.KindText:
		return "text"
	case chat.KindPhoto:
		return "photo"
	case chat.KindAction:
		return "action"
	default:
		return "unknown"
	}
}
