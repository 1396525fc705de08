// Package slack implements the chat Adapter for Slack using Socket Mode.
// Buttons map to Block Kit actions; the report caption doubles as the
// message's fallback text so interaction callbacks carry it back.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/akramov/reportflow/internal/chat"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	DeleteMessage(channelID, timestamp string) (string, string, error)
	PostEphemeral(channelID, userID string, options ...slackapi.MsgOption) (string, error)
	OpenConversation(params *slackapi.OpenConversationParameters) (*slackapi.Channel, bool, bool, error)
	GetUserInfo(userID string) (*slackapi.User, error)
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// ephemeralTarget remembers where an action acknowledgment notice goes.
type ephemeralTarget struct {
	channelID string
	userID    string
}

// Adapter implements chat.Adapter for Slack Socket Mode.
type Adapter struct {
	client       slackClient
	socket       socketClient
	botUserID    string
	appToken     string
	botToken     string
	channelID    string // default review channel
	mu           sync.Mutex
	connected    bool
	closed       bool
	inbound      chan chat.Event
	cancelFunc   context.CancelFunc
	dmChannels   map[string]string          // user ID -> IM channel ID
	pending      map[string]ephemeralTarget // callback ID -> notice target
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxReconnect int
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	AppToken  string // xapp-... Slack app-level token for Socket Mode
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // default review channel to post to
	// For testing: inject mock clients instead of the real Slack API.
	Client slackClient
	Socket socketClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Socket == nil && opts.AppToken == "" {
		return nil, fmt.Errorf("slack: app token is required for socket mode")
	}

	a := &Adapter{
		appToken:     opts.AppToken,
		botToken:     opts.BotToken,
		channelID:    opts.ChannelID,
		inbound:      make(chan chat.Event, 100),
		dmChannels:   make(map[string]string),
		pending:      make(map[string]ephemeralTarget),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}
	if opts.Client != nil {
		a.client = opts.Client
	}
	if opts.Socket != nil {
		a.socket = opts.Socket
	}
	return a, nil
}

// Connect establishes the Socket Mode WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real clients if not injected (production path).
	if a.client == nil {
		api := slackapi.New(a.botToken, slackapi.OptionAppLevelToken(a.appToken))
		a.client = api
		a.socket = &realSocketClient{client: socketmode.New(api)}
	}

	auth, err := a.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botUserID = auth.UserID

	a.connected = true
	return nil
}

// Listen returns a channel of inbound events. Starts the Socket Mode event
// pump in a background goroutine. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Event, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	listenCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelFunc = cancel
	a.mu.Unlock()

	go a.runWithReconnect(listenCtx)
	go a.pumpEvents(listenCtx)

	return a.inbound, nil
}

// SendText delivers a text message with optional buttons. User IDs are
// resolved to their IM channel.
func (a *Adapter) SendText(ctx context.Context, channelID, topicID, text string, controls []chat.Control) (chat.MessageRef, error) {
	options := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if len(controls) > 0 {
		options = append(options, slackapi.MsgOptionBlocks(buildBlocks(text, controls)...))
	}
	return a.post(ctx, channelID, topicID, options)
}

// SendPhoto delivers a photo with a caption and optional buttons. The photo
// rides as an attachment image; the caption is the message text so
// interaction callbacks return it.
func (a *Adapter) SendPhoto(ctx context.Context, channelID, topicID string, photo chat.PhotoRef, caption string, controls []chat.Control) (chat.MessageRef, error) {
	options := []slackapi.MsgOption{slackapi.MsgOptionText(caption, false)}
	if photo.URL != "" {
		options = append(options, slackapi.MsgOptionAttachments(slackapi.Attachment{
			ImageURL: photo.URL,
			Fallback: "report photo",
		}))
	}
	if len(controls) > 0 {
		options = append(options, slackapi.MsgOptionBlocks(buildBlocks(caption, controls)...))
	}
	return a.post(ctx, channelID, topicID, options)
}

func (a *Adapter) post(ctx context.Context, channelID, topicID string, options []slackapi.MsgOption) (chat.MessageRef, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return chat.MessageRef{}, fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	resolved, err := a.resolveChannel(channelID)
	if err != nil {
		return chat.MessageRef{}, err
	}
	if topicID != "" {
		options = append(options, slackapi.MsgOptionTS(topicID))
	}

	var ts string
	err = retryOnRateLimit(ctx, func() error {
		var postErr error
		_, ts, postErr = a.client.PostMessage(resolved, options...)
		return postErr
	})
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("slack: post message: %w", err)
	}
	return chat.MessageRef{ChannelID: resolved, TopicID: topicID, MessageID: ts}, nil
}

// EditCaption replaces the text and buttons of a delivered message.
func (a *Adapter) EditCaption(ctx context.Context, ref chat.MessageRef, caption string, controls []chat.Control) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	options := []slackapi.MsgOption{slackapi.MsgOptionText(caption, false)}
	if len(controls) > 0 {
		options = append(options, slackapi.MsgOptionBlocks(buildBlocks(caption, controls)...))
	}
	err := retryOnRateLimit(ctx, func() error {
		_, _, _, updateErr := a.client.UpdateMessage(ref.ChannelID, ref.MessageID, options...)
		return updateErr
	})
	if err != nil {
		return fmt.Errorf("slack: update message %s: %w", ref.MessageID, err)
	}
	return nil
}

// DeleteMessage removes a delivered message.
func (a *Adapter) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	err := retryOnRateLimit(ctx, func() error {
		_, _, delErr := a.client.DeleteMessage(ref.ChannelID, ref.MessageID)
		return delErr
	})
	if err != nil {
		return fmt.Errorf("slack: delete message %s: %w", ref.MessageID, err)
	}
	return nil
}

// AnswerAction delivers the acknowledgment notice as an ephemeral message.
// The Socket Mode envelope was already acked by the event pump; an empty
// text needs nothing more.
func (a *Adapter) AnswerAction(ctx context.Context, ev chat.Event, text string, alert bool) error {
	if text == "" {
		return nil
	}
	a.mu.Lock()
	target, ok := a.pending[ev.CallbackID]
	delete(a.pending, ev.CallbackID)
	a.mu.Unlock()
	if !ok {
		target = ephemeralTarget{channelID: ev.ChannelID, userID: ev.UserID}
	}

	err := retryOnRateLimit(ctx, func() error {
		_, postErr := a.client.PostEphemeral(target.channelID, target.userID,
			slackapi.MsgOptionText(text, false))
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post ephemeral: %w", err)
	}
	return nil
}

// Close shuts down the adapter and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	close(a.inbound)
	return nil
}

// BotUserID returns the bot's Slack user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// UserLink returns a deep link opening a conversation with the user.
func (a *Adapter) UserLink(userID string) string {
	return "slack://user?id=" + userID
}

// resolveChannel translates a user ID recipient into its IM channel.
// Channel IDs pass through unchanged.
func (a *Adapter) resolveChannel(channelID string) (string, error) {
	if channelID == "" {
		if a.channelID == "" {
			return "", fmt.Errorf("slack: no channel specified")
		}
		return a.channelID, nil
	}
	if !strings.HasPrefix(channelID, "U") && !strings.HasPrefix(channelID, "W") {
		return channelID, nil
	}

	a.mu.Lock()
	dm, ok := a.dmChannels[channelID]
	a.mu.Unlock()
	if ok {
		return dm, nil
	}

	channel, _, _, err := a.client.OpenConversation(&slackapi.OpenConversationParameters{
		Users: []string{channelID},
	})
	if err != nil {
		return "", fmt.Errorf("slack: open conversation with %s: %w", channelID, err)
	}
	a.mu.Lock()
	a.dmChannels[channelID] = channel.ID
	a.mu.Unlock()
	return channel.ID, nil
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run() returns an error.
func (a *Adapter) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < a.maxReconnect; attempt++ {
		err := a.socket.Run()
		if err == nil {
			return // clean shutdown
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		log.Printf("slack: socket mode disconnected (attempt %d/%d): %v, reconnecting in %v",
			attempt+1, a.maxReconnect, err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	log.Printf("slack: socket mode exhausted %d reconnection attempts, giving up", a.maxReconnect)
}

// pumpEvents reads Socket Mode events and converts them to chat events.
func (a *Adapter) pumpEvents(ctx context.Context) {
	events := a.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.handleSocketEvent(evt)
		}
	}
}

// handleSocketEvent processes a single Socket Mode event.
func (a *Adapter) handleSocketEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleEventsAPI(eventsAPIEvent)

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slackapi.InteractionCallback)
		if !ok {
			return
		}
		if evt.Request != nil {
			a.socket.Ack(*evt.Request)
		}
		a.handleInteraction(callback)

	case socketmode.EventTypeConnecting:
		log.Printf("slack: connecting to Socket Mode...")

	case socketmode.EventTypeConnected:
		log.Printf("slack: connected to Socket Mode")

	case socketmode.EventTypeConnectionError:
		log.Printf("slack: connection error: %v", evt.Data)

	case socketmode.EventTypeDisconnect:
		log.Printf("slack: server requested disconnect, will reconnect")
	}
}

// handleEventsAPI processes Events API callbacks.
func (a *Adapter) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
		a.handleMessage(ev)
	}
}

// handleMessage converts a Slack message event to a chat.Event.
func (a *Adapter) handleMessage(ev *slackevents.MessageEvent) {
	// Filter bot self-messages, bot messages and message subtypes
	// (edits, deletes, etc.).
	if ev.User == a.botUserID || ev.BotID != "" || ev.SubType != "" {
		return
	}

	out := chat.Event{
		Kind:      chat.KindText,
		Platform:  "slack",
		ChannelID: ev.Channel,
		TopicID:   ev.ThreadTimeStamp,
		UserID:    ev.User,
		UserName:  a.resolveUserName(ev.User),
		MessageID: ev.TimeStamp,
		Text:      ev.Text,
		Timestamp: parseSlackTimestamp(ev.TimeStamp),
	}
	for _, f := range ev.Files {
		if strings.HasPrefix(f.Mimetype, "image/") {
			out.Kind = chat.KindPhoto
			out.Photo = &chat.PhotoRef{FileID: f.ID, URL: f.URLPrivate}
			break
		}
	}
	a.inbound <- out
}

// handleInteraction converts a block-action press to a chat.Event.
func (a *Adapter) handleInteraction(callback slackapi.InteractionCallback) {
	if callback.Type != slackapi.InteractionTypeBlockActions {
		return
	}
	if len(callback.ActionCallback.BlockActions) == 0 {
		return
	}
	action := callback.ActionCallback.BlockActions[0]

	callbackID := callback.TriggerID
	a.mu.Lock()
	a.pending[callbackID] = ephemeralTarget{
		channelID: callback.Channel.ID,
		userID:    callback.User.ID,
	}
	a.mu.Unlock()

	a.inbound <- chat.Event{
		Kind:       chat.KindAction,
		Platform:   "slack",
		ChannelID:  callback.Channel.ID,
		UserID:     callback.User.ID,
		UserName:   callback.User.Name,
		Action:     action.ActionID,
		CallbackID: callbackID,
		Ref: chat.MessageRef{
			ChannelID: callback.Channel.ID,
			MessageID: callback.Message.Timestamp,
		},
		Caption:   callback.Message.Text,
		Timestamp: time.Now(),
	}
}

// resolveUserName looks up a user's display name. Falls back to user ID.
func (a *Adapter) resolveUserName(userID string) string {
	if userID == "" {
		return ""
	}
	user, err := a.client.GetUserInfo(userID)
	if err != nil {
		return userID
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	return user.RealName
}

// buildBlocks renders the message text and its buttons as Block Kit.
func buildBlocks(text string, controls []chat.Control) []slackapi.Block {
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.PlainTextType, text, false, false),
			nil, nil,
		),
	}
	var buttons []slackapi.BlockElement
	for _, c := range controls {
		label := slackapi.NewTextBlockObject(slackapi.PlainTextType, c.Label, false, false)
		if c.URL != "" {
			btn := slackapi.NewButtonBlockElement("", "", label)
			btn.URL = c.URL
			buttons = append(buttons, btn)
			continue
		}
		buttons = append(buttons, slackapi.NewButtonBlockElement(c.Action, c.Action, label))
	}
	return append(blocks, slackapi.NewActionBlock("report_controls", buttons...))
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit
// errors. It respects context cancellation and the RetryAfter duration.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}

// parseSlackTimestamp converts a Slack timestamp (e.g. "1234567890.123456")
// to a time.Time.
func parseSlackTimestamp(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	if len(parts) == 0 {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
