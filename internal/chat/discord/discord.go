// Package discord implements the chat Adapter for Discord using the
// Gateway WebSocket. Report prompts and buttons map to message components;
// photos travel as embed images so captions stay editable.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/akramov/reportflow/internal/chat"
	"github.com/bwmarrin/discordgo"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
	// maxButtonsPerRow is Discord's component row limit.
	maxButtonsPerRow = 5
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageEditComplex(m, options...)
}
func (r *realSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	return r.s.ChannelMessageDelete(channelID, messageID, options...)
}
func (r *realSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return r.s.InteractionRespond(interaction, resp, options...)
}
func (r *realSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return r.s.UserChannelCreate(recipientID, options...)
}

// Adapter implements chat.Adapter for Discord via the Gateway WebSocket.
type Adapter struct {
	sess          session
	botToken      string
	channelID     string // default review channel
	botUserID     string
	mu            sync.Mutex
	connected     bool
	closed        bool
	inbound       chan chat.Event
	removeHandler []func()

	// dmChannels maps user IDs to their direct-message channels, learned
	// from inbound DMs. SendText translates a user ID recipient through it.
	dmChannels map[string]string

	// interactions holds unanswered component interactions by ID so
	// AnswerAction can respond to them later.
	interactions map[string]*discordgo.Interaction

	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // Discord bot token
	ChannelID string // default review channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}

	a := &Adapter{
		botToken:     opts.BotToken,
		channelID:    opts.ChannelID,
		inbound:      make(chan chat.Event, 100),
		dmChannels:   make(map[string]string),
		interactions: make(map[string]*discordgo.Interaction),
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
	}
	if opts.Session != nil {
		a.sess = opts.Session
	}
	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real session if not injected (production path).
	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	remove := a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})
	a.removeHandler = append(a.removeHandler, remove)

	remove = a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})
	a.removeHandler = append(a.removeHandler, remove)

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// Listen returns a channel of inbound events. Registers the message and
// interaction handlers on the Gateway session. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Event, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	remove := a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(m)
	})
	a.mu.Lock()
	a.removeHandler = append(a.removeHandler, remove)
	a.mu.Unlock()

	remove = a.sess.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		a.handleInteraction(i)
	})
	a.mu.Lock()
	a.removeHandler = append(a.removeHandler, remove)
	a.mu.Unlock()

	return a.inbound, nil
}

// SendText delivers a text message with optional buttons. The recipient may
// be a channel or a user known from an earlier direct message; user IDs are
// translated to their DM channel.
func (a *Adapter) SendText(ctx context.Context, channelID, topicID, text string, controls []chat.Control) (chat.MessageRef, error) {
	data := &discordgo.MessageSend{
		Content:    text,
		Components: buildComponents(controls),
	}
	return a.send(ctx, channelID, data)
}

// SendPhoto delivers a photo with a caption and optional buttons. The photo
// travels as an embed image referencing its CDN URL, which keeps the
// caption editable as plain message content.
func (a *Adapter) SendPhoto(ctx context.Context, channelID, topicID string, photo chat.PhotoRef, caption string, controls []chat.Control) (chat.MessageRef, error) {
	data := &discordgo.MessageSend{
		Content:    caption,
		Components: buildComponents(controls),
	}
	if photo.URL != "" {
		data.Embeds = []*discordgo.MessageEmbed{
			{Image: &discordgo.MessageEmbedImage{URL: photo.URL}},
		}
	}
	return a.send(ctx, channelID, data)
}

func (a *Adapter) send(ctx context.Context, channelID string, data *discordgo.MessageSend) (chat.MessageRef, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return chat.MessageRef{}, fmt.Errorf("discord: not connected")
	}
	if dm, ok := a.dmChannels[channelID]; ok {
		channelID = dm
	}
	a.mu.Unlock()

	if channelID == "" {
		channelID = a.channelID
	}
	if channelID == "" {
		return chat.MessageRef{}, fmt.Errorf("discord: no channel specified")
	}

	var msg *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var sendErr error
		msg, sendErr = a.sess.ChannelMessageSendComplex(channelID, data)
		return sendErr
	})
	if isUnknownChannel(err) {
		// The recipient may be a user ID we have never seen a DM from.
		dm, dmErr := a.sess.UserChannelCreate(channelID)
		if dmErr == nil {
			a.mu.Lock()
			a.dmChannels[channelID] = dm.ID
			a.mu.Unlock()
			err = a.retryOnRateLimit(ctx, func() error {
				var sendErr error
				msg, sendErr = a.sess.ChannelMessageSendComplex(dm.ID, data)
				return sendErr
			})
			channelID = dm.ID
		}
	}
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("discord: send message: %w", err)
	}
	return chat.MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

// EditCaption replaces the content and buttons of a delivered message.
func (a *Adapter) EditCaption(ctx context.Context, ref chat.MessageRef, caption string, controls []chat.Control) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	components := buildComponents(controls)
	edit := &discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Content:    &caption,
		Components: &components,
	}
	err := a.retryOnRateLimit(ctx, func() error {
		_, editErr := a.sess.ChannelMessageEditComplex(edit)
		return editErr
	})
	if err != nil {
		return fmt.Errorf("discord: edit message %s: %w", ref.MessageID, err)
	}
	return nil
}

// DeleteMessage removes a delivered message.
func (a *Adapter) DeleteMessage(ctx context.Context, ref chat.MessageRef) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	err := a.retryOnRateLimit(ctx, func() error {
		return a.sess.ChannelMessageDelete(ref.ChannelID, ref.MessageID)
	})
	if err != nil {
		return fmt.Errorf("discord: delete message %s: %w", ref.MessageID, err)
	}
	return nil
}

// AnswerAction acknowledges a button press. An empty text defers the
// interaction silently; otherwise the notice is delivered as an ephemeral
// reply visible only to the presser.
func (a *Adapter) AnswerAction(ctx context.Context, ev chat.Event, text string, alert bool) error {
	a.mu.Lock()
	interaction, ok := a.interactions[ev.CallbackID]
	delete(a.interactions, ev.CallbackID)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("discord: unknown interaction %s", ev.CallbackID)
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}
	if text != "" {
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
	if err := a.sess.InteractionRespond(interaction, resp); err != nil {
		return fmt.Errorf("discord: answer interaction: %w", err)
	}
	return nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	for _, remove := range a.removeHandler {
		remove()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// UserLink returns a deep link opening the user's profile.
func (a *Adapter) UserLink(userID string) string {
	return "https://discord.com/users/" + userID
}

// handleMessage converts a Discord message event to a chat.Event.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	a.mu.Lock()
	botID := a.botUserID
	if m.GuildID == "" {
		// A guildless message is a DM; remember the channel for replies.
		a.dmChannels[m.Author.ID] = m.ChannelID
	}
	a.mu.Unlock()
	if m.Author.ID == botID {
		return
	}

	ts, _ := discordgo.SnowflakeTimestamp(m.ID)
	ev := chat.Event{
		Kind:      chat.KindText,
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		MessageID: m.ID,
		Text:      m.Content,
		Timestamp: ts,
	}
	if len(m.Attachments) > 0 {
		att := m.Attachments[0]
		ev.Kind = chat.KindPhoto
		ev.Photo = &chat.PhotoRef{FileID: att.ID, URL: att.URL}
	}
	a.inbound <- ev
}

// handleInteraction converts a component press to a chat.Event and parks
// the interaction for AnswerAction.
func (a *Adapter) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	a.mu.Lock()
	a.interactions[i.ID] = i.Interaction
	a.mu.Unlock()

	ev := chat.Event{
		Kind:       chat.KindAction,
		Platform:   "discord",
		ChannelID:  i.ChannelID,
		UserID:     user.ID,
		UserName:   user.Username,
		Action:     i.MessageComponentData().CustomID,
		CallbackID: i.ID,
		Timestamp:  time.Now(),
	}
	if i.Message != nil {
		ev.Ref = chat.MessageRef{ChannelID: i.ChannelID, MessageID: i.Message.ID}
		ev.Caption = i.Message.Content
	}
	a.inbound <- ev
}

// buildComponents translates controls into button rows, chunked to
// Discord's per-row limit.
func buildComponents(controls []chat.Control) []discordgo.MessageComponent {
	if len(controls) == 0 {
		return nil
	}
	var rows []discordgo.MessageComponent
	for start := 0; start < len(controls); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(controls) {
			end = len(controls)
		}
		row := discordgo.ActionsRow{}
		for _, c := range controls[start:end] {
			if c.URL != "" {
				row.Components = append(row.Components, discordgo.Button{
					Label: c.Label, Style: discordgo.LinkButton, URL: c.URL,
				})
				continue
			}
			row.Components = append(row.Components, discordgo.Button{
				Label: c.Label, Style: discordgo.PrimaryButton, CustomID: c.Action,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// isUnknownChannel reports whether the error is Discord's unknown-channel
// REST error, which signals the recipient was a user ID, not a channel.
func isUnknownChannel(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	if !ok || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err // not a rate limit error
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
