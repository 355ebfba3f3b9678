package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wislaw/lexchat/pkg/chat"
	"github.com/wislaw/lexchat/pkg/logger"
	"github.com/wislaw/lexchat/pkg/store"
	"github.com/wislaw/lexchat/pkg/transport"
)

// State reflects where the manager is in its turn lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateSaving    State = "saving"
)

// ErrEmptyQuestion is returned by Submit before any state is mutated.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// StreamCallback receives each incremental content chunk as it is applied.
type StreamCallback func(content string)

// Notifier surfaces non-blocking user notices (persistence failures and the
// like) without interrupting the conversation.
type Notifier func(message string)

// Manager owns a single authoritative Session and advances it in response
// to transport events. All mutation funnels through methods that hold the
// lock and check the request generation, so late callbacks from a stopped
// or superseded stream can never corrupt the transcript.
type Manager struct {
	mu sync.Mutex

	transport transport.Streamer
	store     store.Store

	session        *chat.Session
	state          State
	generation     uint64
	active         *streamRequest
	currentSources []chat.SourceRef
	greeting       string

	streamCallback StreamCallback
	notify         Notifier

	// Autosave bookkeeping; saveMu serializes delete-then-write pairs.
	saveMu    sync.Mutex
	saveWg    sync.WaitGroup
	saving    int
	lastSaved string
}

// streamRequest is one in-flight generation attempt. answerIdx is the index
// of the assistant message being built, -1 until the first chunk arrives.
type streamRequest struct {
	gen       uint64
	cancel    context.CancelFunc
	buffer    strings.Builder
	answerIdx int
}

func NewManager(tp transport.Streamer, st store.Store, greeting string, autoSave bool) *Manager {
	return &Manager{
		transport: tp,
		store:     st,
		session:   chat.NewSession(greeting, autoSave),
		state:     StateIdle,
		greeting:  greeting,
	}
}

// SetStreamCallback registers a callback invoked with each content chunk.
func (m *Manager) SetStreamCallback(cb StreamCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamCallback = cb
}

// SetNotifier registers the user-notice callback.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = n
}

// Submit appends a user turn and starts streaming its answer. A stream that
// is still active is stopped first; its partial answer stays in the
// transcript as-is.
func (m *Manager) Submit(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyQuestion
	}

	m.mu.Lock()
	if m.active != nil {
		logger.Warn("Submit while a stream is active; stopping the prior request")
		m.stopLocked()
	}

	m.session.Append(chat.NewUserMessage(trimmed))

	// Name the session from its first question before any chunk arrives,
	// so a save fired right after completion already has a name.
	if m.session.AutoSave && m.session.DisplayName == "" && m.session.UserMessageCount() == 1 {
		m.session.DisplayName = chat.DeriveName(trimmed)
	}

	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.active = &streamRequest{
		gen:       gen,
		cancel:    cancel,
		answerIdx: -1,
	}
	m.state = StateStreaming
	m.mu.Unlock()

	events, err := m.transport.Stream(ctx, trimmed)
	if err != nil {
		cancel()
		m.applyError(gen, fmt.Sprintf("Connection error: %v", err))
		return err
	}

	go m.pump(gen, events)
	return nil
}

// pump routes transport events into the generation-guarded appliers.
func (m *Manager) pump(gen uint64, events <-chan transport.Event) {
	for event := range events {
		switch event.Type {
		case transport.EventContent:
			m.applyChunk(gen, event.Content)
		case transport.EventComplete:
			m.applyComplete(gen, event.Response)
		case transport.EventError:
			m.applyError(gen, fmt.Sprintf("Error: %v", event.Err))
		}
	}
}

// applyChunk writes the whole accumulated buffer into the active assistant
// message. Replacing the full content instead of appending in place means a
// repeated application can never duplicate text; buffers are chat answers,
// so the rewrite cost is bounded.
func (m *Manager) applyChunk(gen uint64, content string) {
	m.mu.Lock()

	if !m.isCurrent(gen) {
		m.mu.Unlock()
		logger.Debug("Discarding stale chunk for generation %d", gen)
		return
	}

	req := m.active
	req.buffer.WriteString(content)
	if req.answerIdx < 0 {
		req.answerIdx = m.session.Append(chat.NewAssistantMessage(""))
	}
	m.session.Messages[req.answerIdx].Content = req.buffer.String()

	cb := m.streamCallback
	m.mu.Unlock()

	// Invoked off the lock so a callback may call back into the manager.
	// Chunks for one request arrive from a single pump goroutine, so the
	// callback still sees them in order.
	if cb != nil {
		cb(content)
	}
}

// applyComplete finalizes the assistant turn: metadata and normalized
// sources are attached only now, after the content is final, and then the
// autosave coordinator fires.
func (m *Manager) applyComplete(gen uint64, payload *transport.CompletePayload) {
	m.mu.Lock()

	if !m.isCurrent(gen) {
		m.mu.Unlock()
		logger.Debug("Discarding stale completion for generation %d", gen)
		return
	}

	req := m.active
	if req.answerIdx < 0 {
		// No chunks arrived; fall back to the answer in the final payload
		// so the turn is not lost.
		answer := ""
		if payload != nil {
			answer = payload.Answer
		}
		req.answerIdx = m.session.Append(chat.NewAssistantMessage(answer))
	}

	msg := &m.session.Messages[req.answerIdx]
	if payload != nil {
		msg.Metadata = &chat.AnswerMetadata{
			ConfidenceScore: payload.ConfidenceScore,
			SafetyWarnings:  payload.SafetyWarnings,
		}
		// A panic while normalizing a malformed descriptor degrades to an
		// answer with no sources; the streamed text is already in place.
		msg.Sources = safeNormalizeSources(payload.Metadata.SourceDocuments)
	}
	m.currentSources = msg.Sources

	m.active = nil
	m.state = StateIdle

	m.maybeAutoSaveLocked()
	m.mu.Unlock()
}

// applyError appends an error turn. Error turns never carry sources or
// metadata and are never auto-saved.
func (m *Manager) applyError(gen uint64, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isCurrent(gen) {
		logger.Debug("Discarding stale error for generation %d", gen)
		return
	}

	m.session.Append(chat.NewErrorMessage(message))
	m.active = nil
	m.state = StateIdle
	logger.Error("Stream failed: %s", message)
}

// Stop cancels the active stream, if any. The generation bump guarantees
// that chunks already in flight from the cancelled request are discarded.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.active == nil {
		return
	}
	m.active.cancel()
	m.active = nil
	m.generation++
	m.state = StateIdle
}

// NewSession cancels any active stream and replaces the session with a
// fresh seeded one. Nothing is persisted; abandoned chats are the user's
// responsibility to save explicitly.
func (m *Manager) NewSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	autoSave := m.session.AutoSave
	m.session = chat.NewSession(m.greeting, autoSave)
	m.currentSources = nil
	m.lastSaved = ""
}

// LoadSession replaces the session with a saved snapshot. The loaded
// snapshot becomes the supersession target for subsequent autosaves.
func (m *Manager) LoadSession(ctx context.Context, filename string) error {
	saved, err := m.store.Load(ctx, filename)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	autoSave := m.session.AutoSave
	restored := chat.NewSession(m.greeting, autoSave)
	restored.ID = saved.Filename
	restored.DisplayName = saved.ChatName
	restored.Messages = append(restored.Messages, chat.ExchangeMessages(saved.Exchanges)...)
	m.session = restored
	m.currentSources = nil
	m.lastSaved = saved.Filename
	return nil
}

// SetAutoSave toggles autosave for the current session.
func (m *Manager) SetAutoSave(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.AutoSave = enabled
}

// State reports idle, streaming, or saving.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle && m.saving > 0 {
		return StateSaving
	}
	return m.state
}

// Messages returns a copy of the transcript.
func (m *Manager) Messages() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]chat.Message, len(m.session.Messages))
	copy(msgs, m.session.Messages)
	return msgs
}

// CurrentSources returns the most recent completed answer's citations.
func (m *Manager) CurrentSources() []chat.SourceRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	sources := make([]chat.SourceRef, len(m.currentSources))
	copy(sources, m.currentSources)
	return sources
}

// DisplayName returns the session's human label.
func (m *Manager) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.DisplayName
}

// SessionID returns the filename of the last persisted snapshot, empty
// before the first successful save.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSaved
}

func (m *Manager) isCurrent(gen uint64) bool {
	return m.active != nil && m.active.gen == gen
}

func (m *Manager) notifyUser(message string) {
	m.mu.Lock()
	n := m.notify
	m.mu.Unlock()
	if n != nil {
		n(message)
	}
}
