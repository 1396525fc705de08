package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter implements Adapter for testing. It records sent messages,
// caption edits, deletions and action acknowledgments, and allows
// simulating inbound events.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan Event
	nextID    int

	sent     []SentMessage
	captions map[string]string // messageID -> current caption/text
	deleted  map[string]bool
	answers  []Answer

	failSend   error // when set, Send* returns this error
	failEdit   error
	failDelete error
}

// SentMessage records one outbound message.
type SentMessage struct {
	Ref      MessageRef
	Text     string // text for SendText, caption for SendPhoto
	Photo    *PhotoRef
	Controls []Control
}

// Answer records one AnswerAction call.
type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound:  make(chan Event, 100),
		captions: make(map[string]string),
		deleted:  make(map[string]bool),
	}
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound event channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// SendText records a text message and returns its ref.
func (m *MockAdapter) SendText(ctx context.Context, channelID, topicID, text string, controls []Control) (MessageRef, error) {
	return m.record(channelID, topicID, text, nil, controls)
}

// SendPhoto records a photo message and returns its ref.
func (m *MockAdapter) SendPhoto(ctx context.Context, channelID, topicID string, photo PhotoRef, caption string, controls []Control) (MessageRef, error) {
	p := photo
	return m.record(channelID, topicID, caption, &p, controls)
}

func (m *MockAdapter) record(channelID, topicID, text string, photo *PhotoRef, controls []Control) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend != nil {
		return MessageRef{}, m.failSend
	}
	m.nextID++
	ref := MessageRef{
		ChannelID: channelID,
		TopicID:   topicID,
		MessageID: fmt.Sprintf("m%d", m.nextID),
	}
	m.sent = append(m.sent, SentMessage{Ref: ref, Text: text, Photo: photo, Controls: controls})
	m.captions[ref.MessageID] = text
	return ref, nil
}

// EditCaption replaces the recorded caption. Editing a deleted or unknown
// message fails.
func (m *MockAdapter) EditCaption(ctx context.Context, ref MessageRef, caption string, controls []Control) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdit != nil {
		return m.failEdit
	}
	if m.deleted[ref.MessageID] {
		return fmt.Errorf("mock adapter: message %s deleted", ref.MessageID)
	}
	if _, ok := m.captions[ref.MessageID]; !ok {
		return fmt.Errorf("mock adapter: message %s not found", ref.MessageID)
	}
	m.captions[ref.MessageID] = caption
	return nil
}

// DeleteMessage marks the message deleted. Deleting twice or deleting an
// unknown message fails, mirroring platform behavior.
func (m *MockAdapter) DeleteMessage(ctx context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if m.deleted[ref.MessageID] {
		return fmt.Errorf("mock adapter: message %s already deleted", ref.MessageID)
	}
	if _, ok := m.captions[ref.MessageID]; !ok {
		return fmt.Errorf("mock adapter: message %s not found", ref.MessageID)
	}
	m.deleted[ref.MessageID] = true
	return nil
}

// AnswerAction records the acknowledgment.
func (m *MockAdapter) AnswerAction(ctx context.Context, ev Event, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, Answer{CallbackID: ev.CallbackID, Text: text, Alert: alert})
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// UserLink implements UserLinker with a recognizable test scheme.
func (m *MockAdapter) UserLink(userID string) string {
	return "mock://user/" + userID
}

// --- Test helpers ---

// SimulateText delivers a text message event.
func (m *MockAdapter) SimulateText(userID, userName, channelID, text string) {
	m.mu.Lock()
	m.nextID++
	msgID := fmt.Sprintf("u%d", m.nextID)
	m.captions[msgID] = text
	m.mu.Unlock()
	m.inbound <- Event{
		Kind: KindText, Platform: "mock",
		ChannelID: channelID, UserID: userID, UserName: userName,
		MessageID: msgID, Text: text, Timestamp: time.Now(),
	}
}

// SimulatePhoto delivers a photo message event.
func (m *MockAdapter) SimulatePhoto(userID, userName, channelID, fileID string) {
	m.mu.Lock()
	m.nextID++
	msgID := fmt.Sprintf("u%d", m.nextID)
	m.captions[msgID] = ""
	m.mu.Unlock()
	m.inbound <- Event{
		Kind: KindPhoto, Platform: "mock",
		ChannelID: channelID, UserID: userID, UserName: userName,
		MessageID: msgID, Photo: &PhotoRef{FileID: fileID}, Timestamp: time.Now(),
	}
}

// SimulateAction delivers a button press on a previously sent message. The
// event's Caption reflects the message's current recorded caption, as a real
// platform callback would.
func (m *MockAdapter) SimulateAction(userID, userName, action string, ref MessageRef) {
	m.mu.Lock()
	caption := m.captions[ref.MessageID]
	if m.deleted[ref.MessageID] {
		caption = ""
	}
	m.nextID++
	callbackID := fmt.Sprintf("cb%d", m.nextID)
	m.mu.Unlock()
	m.inbound <- Event{
		Kind: KindAction, Platform: "mock",
		ChannelID: ref.ChannelID, TopicID: ref.TopicID,
		UserID: userID, UserName: userName,
		Action: action, CallbackID: callbackID,
		Ref: ref, Caption: caption, Timestamp: time.Now(),
	}
}

// FailNextSend makes subsequent Send* calls fail with err (nil to reset).
func (m *MockAdapter) FailNextSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSend = err
}

// FailDeletes makes subsequent DeleteMessage calls fail with err (nil to reset).
func (m *MockAdapter) FailDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = err
}

// LastSent returns the most recently sent message.
// Returns zero value and false if nothing has been sent.
func (m *MockAdapter) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// AllSent returns a copy of all sent messages.
func (m *MockAdapter) AllSent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns the number of messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// CaptionOf returns the current caption of a sent message.
func (m *MockAdapter) CaptionOf(ref MessageRef) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captions[ref.MessageID]
}

// Deleted reports whether the message has been deleted.
func (m *MockAdapter) Deleted(ref MessageRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[ref.MessageID]
}

// Answers returns a copy of all recorded action acknowledgments.
func (m *MockAdapter) Answers() []Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Answer, len(m.answers))
	copy(out, m.answers)
	return out
}

// LastAnswer returns the most recent action acknowledgment.
func (m *MockAdapter) LastAnswer() (Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.answers) == 0 {
		return Answer{}, false
	}
	return m.answers[len(m.answers)-1], true
}
