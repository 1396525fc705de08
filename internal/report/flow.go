package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/session"
)

// Conversation states. A user with the idle state has no report in
// progress.
const (
	StateIdle             session.State = ""
	StateClientName       session.State = "report:client_name"
	StatePhoneNumber      session.State = "report:phone_number"
	StateAddPhoneDecision session.State = "report:add_phone_decision"
	StateAdditionalPhone  session.State = "report:additional_phone"
	StateProductType      session.State = "report:product_type"
	StateClientLocation   session.State = "report:client_location"
	StateContractID       session.State = "report:contract_id"
	StateContractAmount   session.State = "report:contract_amount"
	StatePhoto            session.State = "report:photo"
	StateSelectDest       session.State = "report:select_destination"
	StateConfirmation     session.State = "report:confirmation"
)

// keySellerName holds the display name reports are submitted under.
const keySellerName = "seller_name"

// Flow drives the field-by-field report conversation. It owns the session
// state machine on the submitter's side; delivery and approval live in
// Submitter and Approver.
type Flow struct {
	adapter  chat.Adapter
	sessions session.Store
	store    *Store
	submit   *Submitter
	strategy string
	logf     func(format string, args ...interface{})
}

// FlowOpts configures a Flow. All fields except Logf are required.
type FlowOpts struct {
	Adapter   chat.Adapter
	Sessions  session.Store
	Store     *Store
	Submitter *Submitter
	Strategy  string
	Logf      func(format string, args ...interface{})
}

// NewFlow creates a Flow.
func NewFlow(opts FlowOpts) (*Flow, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("report: flow: adapter is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("report: flow: session store is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("report: flow: store is required")
	}
	if opts.Submitter == nil {
		return nil, fmt.Errorf("report: flow: submitter is required")
	}
	if opts.Strategy != config.StrategyAssigned && opts.Strategy != config.StrategyInteractive {
		return nil, fmt.Errorf("report: flow: unknown strategy %q", opts.Strategy)
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Flow{
		adapter:  opts.Adapter,
		sessions: opts.Sessions,
		store:    opts.Store,
		submit:   opts.Submitter,
		strategy: opts.Strategy,
		logf:     opts.Logf,
	}, nil
}

// Begin starts a fresh report conversation, discarding any draft in
// progress. Blocked users and, under the assigned strategy, users without a
// group are turned away before any state is created.
func (f *Flow) Begin(ctx context.Context, ev chat.Event) error {
	user, err := f.store.CheckSubmitter(ev.UserID)
	if errors.Is(err, ErrBlocked) {
		return f.notice(ctx, ev, msgBlocked)
	}
	if err != nil {
		return err
	}

	seller := ev.UserName
	if user != nil && user.FullName != "" {
		seller = user.FullName
	}
	data := session.Bag{keySellerName: seller}

	if f.strategy == config.StrategyAssigned {
		dest, err := f.store.AssignedDestination(ev.UserID)
		if errors.Is(err, ErrNoDestination) {
			return f.notice(ctx, ev, msgNoDestination)
		}
		if err != nil {
			return err
		}
		putDestination(data, dest)
	}

	if err := f.sessions.Clear(ctx, ev.UserID); err != nil {
		return fmt.Errorf("report: begin: clear session: %w", err)
	}
	if err := f.sessions.Update(ctx, ev.UserID, data); err != nil {
		return fmt.Errorf("report: begin: seed session: %w", err)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, StateClientName); err != nil {
		return fmt.Errorf("report: begin: set state: %w", err)
	}
	return f.prompt(ctx, ev, msgAskClientName, cancelControls())
}

// Input handles a text or photo message from a user with a report in
// progress. Invalid input retires the exchange and re-prompts without
// changing state.
func (f *Flow) Input(ctx context.Context, ev chat.Event) error {
	state, err := f.sessions.State(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: input: read state: %w", err)
	}

	switch state {
	case StateClientName:
		if !ValidText(ev.Text, MinClientNameLen) {
			return f.reprompt(ctx, ev, msgBadClientName, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyClientName: strings.TrimSpace(ev.Text)},
			StatePhoneNumber, msgAskPhone, cancelControls())
	case StatePhoneNumber:
		if !ValidPhone(ev.Text) {
			return f.reprompt(ctx, ev, msgBadPhone, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyPhoneNumber: strings.TrimSpace(ev.Text)},
			StateAddPhoneDecision, msgAskAddPhoneDecision, decisionControls())
	case StateAdditionalPhone:
		if !ValidPhone(ev.Text) {
			return f.reprompt(ctx, ev, msgBadPhone, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{
			keyAdditionalPhone: strings.TrimSpace(ev.Text),
			keyHasAdditional:   "yes",
		}, StateProductType, msgAskProduct, cancelControls())
	case StateProductType:
		if !ValidText(ev.Text, MinProductLen) {
			return f.reprompt(ctx, ev, msgBadProduct, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyProductType: strings.TrimSpace(ev.Text)},
			StateClientLocation, msgAskLocation, cancelControls())
	case StateClientLocation:
		if !ValidText(ev.Text, MinLocationLen) {
			return f.reprompt(ctx, ev, msgBadLocation, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyClientLocation: strings.TrimSpace(ev.Text)},
			StateContractID, msgAskContractID, cancelControls())
	case StateContractID:
		if !ValidText(ev.Text, MinContractIDLen) {
			return f.reprompt(ctx, ev, msgBadContractID, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyContractID: strings.TrimSpace(ev.Text)},
			StateContractAmount, msgAskAmount, cancelControls())
	case StateContractAmount:
		if !ValidAmount(ev.Text) {
			return f.reprompt(ctx, ev, msgBadAmount, cancelControls())
		}
		return f.advance(ctx, ev, session.Bag{keyContractAmount: FormatAmount(ev.Text)},
			StatePhoto, msgAskPhoto, cancelControls())
	case StatePhoto:
		return f.photoStep(ctx, ev)
	case StateAddPhoneDecision, StateSelectDest, StateConfirmation:
		// These states advance through buttons; stray text is retired so
		// the live prompt stays the latest message.
		f.deleteQuiet(ctx, ev.ChannelID, ev.TopicID, ev.MessageID)
		return nil
	default:
		return nil
	}
}

func (f *Flow) photoStep(ctx context.Context, ev chat.Event) error {
	if ev.Kind != chat.KindPhoto || ev.Photo == nil {
		return f.reprompt(ctx, ev, msgBadPhoto, cancelControls())
	}
	updates := session.Bag{keyPhotoRef: encodePhotoRef(*ev.Photo)}
	if err := f.sessions.Update(ctx, ev.UserID, updates); err != nil {
		return fmt.Errorf("report: store photo: %w", err)
	}
	f.retire(ctx, ev, ev.MessageID)

	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: read session: %w", err)
	}
	if bag[keyEditReturn] == "yes" {
		return f.showConfirmation(ctx, ev)
	}
	if f.strategy == config.StrategyInteractive && bag[keyDestChannel] == "" {
		return f.askDestination(ctx, ev)
	}
	return f.showConfirmation(ctx, ev)
}

// Action handles submitter-side button presses: the additional-phone
// decision, confirmation-step choices, edit selections, destination
// selection, and cancellation.
func (f *Flow) Action(ctx context.Context, ev chat.Event) error {
	if err := f.adapter.AnswerAction(ctx, ev, "", false); err != nil {
		f.logf("report: answer action %s: %v", ev.Action, err)
	}

	switch {
	case ev.Action == actionCancelReport || ev.Action == actionCancelDraft:
		return f.Cancel(ctx, ev)
	case ev.Action == actionAddPhoneYes:
		return f.decideAdditionalPhone(ctx, ev, true)
	case ev.Action == actionAddPhoneNo:
		return f.decideAdditionalPhone(ctx, ev, false)
	case ev.Action == actionConfirmDraft:
		return f.submit.Submit(ctx, ev)
	case ev.Action == actionEditDraft:
		return f.showEditMenu(ctx, ev)
	case ev.Action == actionBackToConfirm:
		f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
		return f.showConfirmation(ctx, ev)
	case strings.HasPrefix(ev.Action, actionSelectDestPrefix):
		return f.selectDestination(ctx, ev)
	case strings.HasPrefix(ev.Action, "edit_"):
		return f.enterEdit(ctx, ev)
	default:
		f.logf("report: unhandled action %q from %s", ev.Action, ev.UserID)
		return nil
	}
}

// Cancel discards the draft and every live prompt. Cancelling twice is a
// safe no-op: with no report in progress only the stale button message is
// removed and a nothing-to-cancel notice is sent.
func (f *Flow) Cancel(ctx context.Context, ev chat.Event) error {
	state, err := f.sessions.State(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: cancel: read state: %w", err)
	}
	if state == StateIdle {
		if !ev.Ref.IsZero() {
			f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
		}
		if _, err := f.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, msgNothingToCancel, nil); err != nil {
			return fmt.Errorf("report: cancel: send notice: %w", err)
		}
		return nil
	}

	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err == nil {
		f.deleteQuiet(ctx, ev.ChannelID, ev.TopicID, bag[keyLastPromptID])
	}
	if !ev.Ref.IsZero() && (err != nil || ev.Ref.MessageID != bag[keyLastPromptID]) {
		f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
	}
	if err := f.sessions.Clear(ctx, ev.UserID); err != nil {
		return fmt.Errorf("report: cancel: clear session: %w", err)
	}
	if _, err := f.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, msgCancelled, nil); err != nil {
		return fmt.Errorf("report: cancel: send notice: %w", err)
	}
	return nil
}

func (f *Flow) decideAdditionalPhone(ctx context.Context, ev chat.Event, yes bool) error {
	f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
	if yes {
		// Editing passes through here too: the decision always leads to
		// the phone prompt, and the edit flag survives until the field is
		// entered.
		if err := f.sessions.SetState(ctx, ev.UserID, StateAdditionalPhone); err != nil {
			return fmt.Errorf("report: set state: %w", err)
		}
		return f.prompt(ctx, ev, msgAskAddPhone, cancelControls())
	}

	updates := session.Bag{keyHasAdditional: "no", keyAdditionalPhone: ""}
	if err := f.sessions.Update(ctx, ev.UserID, updates); err != nil {
		return fmt.Errorf("report: update session: %w", err)
	}
	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: read session: %w", err)
	}
	if bag[keyEditReturn] == "yes" {
		return f.showConfirmation(ctx, ev)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, StateProductType); err != nil {
		return fmt.Errorf("report: set state: %w", err)
	}
	return f.prompt(ctx, ev, msgAskProduct, cancelControls())
}

func (f *Flow) showEditMenu(ctx context.Context, ev chat.Event) error {
	f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
	return f.prompt(ctx, ev, msgAskEditField, editMenuControls())
}

// enterEdit re-enters a single field's state. After the field is collected
// the flow returns straight to confirmation instead of walking the
// remaining steps.
func (f *Flow) enterEdit(ctx context.Context, ev chat.Event) error {
	var (
		state session.State
		ask   string
	)
	controls := cancelControls()
	switch ev.Action {
	case actionEditClientName:
		state, ask = StateClientName, msgAskClientName
	case actionEditPhone:
		state, ask = StatePhoneNumber, msgAskPhone
	case actionEditAddPhone:
		state, ask = StateAddPhoneDecision, msgAskAddPhoneDecision
		controls = decisionControls()
	case actionEditProduct:
		state, ask = StateProductType, msgAskProduct
	case actionEditLocation:
		state, ask = StateClientLocation, msgAskLocation
	case actionEditContractID:
		state, ask = StateContractID, msgAskContractID
	case actionEditAmount:
		state, ask = StateContractAmount, msgAskAmount
	case actionEditPhoto:
		state, ask = StatePhoto, msgAskPhoto
	default:
		f.logf("report: unknown edit action %q", ev.Action)
		return nil
	}

	f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
	if err := f.sessions.Update(ctx, ev.UserID, session.Bag{keyEditReturn: "yes"}); err != nil {
		return fmt.Errorf("report: mark edit return: %w", err)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, state); err != nil {
		return fmt.Errorf("report: set state: %w", err)
	}
	return f.prompt(ctx, ev, ask, controls)
}

func (f *Flow) askDestination(ctx context.Context, ev chat.Event) error {
	dests, err := f.store.Destinations()
	if err != nil {
		return err
	}
	if len(dests) == 0 {
		if err := f.notice(ctx, ev, msgNoGroups); err != nil {
			return err
		}
		return f.Cancel(ctx, ev)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, StateSelectDest); err != nil {
		return fmt.Errorf("report: set state: %w", err)
	}
	return f.prompt(ctx, ev, msgAskDestination, destinationControls(dests))
}

func (f *Flow) selectDestination(ctx context.Context, ev chat.Event) error {
	id := strings.TrimPrefix(ev.Action, actionSelectDestPrefix)
	dest, err := f.store.DestinationByGroupID(id)
	if errors.Is(err, ErrNoDestination) {
		f.logf("report: selected group %s no longer exists", id)
		return f.askDestination(ctx, ev)
	}
	if err != nil {
		return err
	}
	updates := session.Bag{}
	putDestination(updates, dest)
	if err := f.sessions.Update(ctx, ev.UserID, updates); err != nil {
		return fmt.Errorf("report: store destination: %w", err)
	}
	f.deleteQuiet(ctx, ev.Ref.ChannelID, ev.Ref.TopicID, ev.Ref.MessageID)
	return f.showConfirmation(ctx, ev)
}

// showConfirmation re-sends the draft as a photo message with the full
// field summary and the confirm/edit/cancel buttons.
func (f *Flow) showConfirmation(ctx context.Context, ev chat.Event) error {
	if err := f.sessions.Update(ctx, ev.UserID, session.Bag{keyEditReturn: ""}); err != nil {
		return fmt.Errorf("report: clear edit flag: %w", err)
	}
	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: read session: %w", err)
	}
	d := draftFromBag(bag)
	caption := RenderConfirmation(d, bag[keySellerName])
	ref, err := f.adapter.SendPhoto(ctx, ev.ChannelID, ev.TopicID,
		decodePhotoRef(bag[keyPhotoRef]), caption, confirmationControls())
	if err != nil {
		return fmt.Errorf("report: send confirmation: %w", err)
	}
	if err := f.sessions.Update(ctx, ev.UserID, session.Bag{keyLastPromptID: ref.MessageID}); err != nil {
		return fmt.Errorf("report: track prompt: %w", err)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, StateConfirmation); err != nil {
		return fmt.Errorf("report: set state: %w", err)
	}
	return nil
}

// advance stores the collected field, retires the finished exchange, and
// moves to the next step. An edit re-entry returns to confirmation instead.
func (f *Flow) advance(ctx context.Context, ev chat.Event, updates session.Bag, next session.State, ask string, controls []chat.Control) error {
	if err := f.sessions.Update(ctx, ev.UserID, updates); err != nil {
		return fmt.Errorf("report: update session: %w", err)
	}
	f.retire(ctx, ev, ev.MessageID)

	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("report: read session: %w", err)
	}
	if bag[keyEditReturn] == "yes" {
		return f.showConfirmation(ctx, ev)
	}
	if err := f.sessions.SetState(ctx, ev.UserID, next); err != nil {
		return fmt.Errorf("report: set state: %w", err)
	}
	return f.prompt(ctx, ev, ask, controls)
}

// reprompt retires the failed exchange and asks again. State is unchanged.
func (f *Flow) reprompt(ctx context.Context, ev chat.Event, text string, controls []chat.Control) error {
	f.retire(ctx, ev, ev.MessageID)
	return f.prompt(ctx, ev, text, controls)
}

// prompt sends the next question and records it as the live prompt.
func (f *Flow) prompt(ctx context.Context, ev chat.Event, text string, controls []chat.Control) error {
	ref, err := f.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, text, controls)
	if err != nil {
		return fmt.Errorf("report: send prompt: %w", err)
	}
	if err := f.sessions.Update(ctx, ev.UserID, session.Bag{keyLastPromptID: ref.MessageID}); err != nil {
		return fmt.Errorf("report: track prompt: %w", err)
	}
	return nil
}

// notice sends a one-off message outside the prompt chain.
func (f *Flow) notice(ctx context.Context, ev chat.Event, text string) error {
	if _, err := f.adapter.SendText(ctx, ev.ChannelID, ev.TopicID, text, nil); err != nil {
		return fmt.Errorf("report: send notice: %w", err)
	}
	return nil
}

// retire deletes the previous prompt and the user's reply so exactly one
// live prompt remains. Deletion is best effort: a missing message or a
// permissions gap must not stall the conversation.
func (f *Flow) retire(ctx context.Context, ev chat.Event, replyID string) {
	bag, err := f.sessions.Data(ctx, ev.UserID)
	if err != nil {
		f.logf("report: retire: read session: %v", err)
	} else {
		f.deleteQuiet(ctx, ev.ChannelID, ev.TopicID, bag[keyLastPromptID])
	}
	f.deleteQuiet(ctx, ev.ChannelID, ev.TopicID, replyID)
}

func (f *Flow) deleteQuiet(ctx context.Context, channelID, topicID, messageID string) {
	if messageID == "" {
		return
	}
	ref := chat.MessageRef{ChannelID: channelID, TopicID: topicID, MessageID: messageID}
	if err := f.adapter.DeleteMessage(ctx, ref); err != nil {
		f.logf("report: delete message %s: %v", messageID, err)
	}
}

// putDestination writes a resolved destination into the session bag.
func putDestination(bag session.Bag, dest *Destination) {
	bag[keyDestChannel] = dest.ChannelID
	bag[keyDestTopic] = dest.TopicID
	bag[keyDestSheet] = dest.SpreadsheetID + "|" + dest.Worksheet
	bag[keyDestName] = dest.Name
}

// destinationFromBag reconstructs the destination stored at begin or
// selection time.
func destinationFromBag(bag session.Bag) *Destination {
	spreadsheetID, worksheet, _ := strings.Cut(bag[keyDestSheet], "|")
	return &Destination{
		Name:          bag[keyDestName],
		ChannelID:     bag[keyDestChannel],
		TopicID:       bag[keyDestTopic],
		SpreadsheetID: spreadsheetID,
		Worksheet:     worksheet,
	}
}

func encodePhotoRef(p chat.PhotoRef) string {
	return p.FileID + "|" + p.URL
}

func decodePhotoRef(s string) chat.PhotoRef {
	fileID, url, _ := strings.Cut(s, "|")
	return chat.PhotoRef{FileID: fileID, URL: url}
}
