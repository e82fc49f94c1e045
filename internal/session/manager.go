package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/convo/internal/history"
	"github.com/google/uuid"
)

// Manager is the authoritative cache of live sessions, at most one per chat.
// Every mutation that changes a durable field is checkpointed into the
// history store. Lock order is Manager then HistoryStore.
type Manager struct {
	mu       sync.RWMutex
	sessions map[ChatID]*Session

	resolver PathResolver
	history  HistoryStore
	metrics  Metrics
	logger   *slog.Logger

	// now and newID are injectable for testing.
	now   func() time.Time
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the lifecycle metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the conversation id generator.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewManager creates a Manager with an empty live cache.
func NewManager(resolver PathResolver, store HistoryStore, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[ChatID]*Session),
		resolver: resolver,
		history:  store,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    newConversationID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// newConversationID returns a UUIDv7: a millisecond timestamp followed by
// random bits. Only uniqueness matters to callers.
func newConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (m *Manager) nowUTC() time.Time {
	return m.now().UTC()
}

// Session returns the live session for a chat. It performs no I/O.
func (m *Manager) Session(chatID ChatID) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// CreateSession starts a new conversation for the chat in the resolved
// working directory, replacing any live session. An empty conversationID
// is generated.
func (m *Manager) CreateSession(chatID ChatID, workingDirectory, conversationID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(chatID, workingDirectory, conversationID)
}

func (m *Manager) createLocked(chatID ChatID, workingDirectory, conversationID string) Session {
	if conversationID == "" {
		conversationID = m.newID()
	}
	resolved := m.resolver.Resolve(workingDirectory)
	now := m.nowUTC()

	sess := &Session{
		ConversationID:   conversationID,
		WorkingDirectory: resolved,
		CreatedAt:        now,
		LastActivity:     now,
	}
	m.install(chatID, sess)
	m.history.SaveSession(chatID, conversationID, resolved, "", "")

	m.metrics.SessionCreated()
	m.logger.Info("session: created",
		"chat_id", chatID,
		"conversation_id", conversationID,
		"working_directory", resolved,
	)
	return *sess
}

// install replaces the chat's live session. The caller must hold m.mu.
func (m *Manager) install(chatID ChatID, sess *Session) {
	if prev, ok := m.sessions[chatID]; ok && prev.ConversationID != sess.ConversationID {
		m.logger.Debug("session: replacing live session",
			"chat_id", chatID,
			"previous_conversation_id", prev.ConversationID,
		)
	}
	m.sessions[chatID] = sess
	m.metrics.LiveSessions(len(m.sessions))
}

// UpdateActivity bumps LastActivity of the live session and, when preview is
// non-empty, records it as the conversation's last message. It is a no-op
// when the chat has no live session.
func (m *Manager) UpdateActivity(chatID ChatID, preview string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return
	}
	sess.LastActivity = m.nowUTC()
	if preview != "" {
		m.history.UpdateLastMessage(chatID, sess.ConversationID, preview)
	}
}

// SetWorkingDirectory points the live session at dir. Explicit directories
// are trusted as given and not resolved. Without a live session this creates
// one, which does resolve dir.
func (m *Manager) SetWorkingDirectory(chatID ChatID, dir string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return m.createLocked(chatID, dir, "")
	}
	sess.WorkingDirectory = dir
	sess.LastActivity = m.nowUTC()
	m.checkpointLocked(chatID, sess)
	return *sess
}

// SetAssistantSessionID records the identifier reported by the assistant
// process. It is a no-op when the chat has no live session.
func (m *Manager) SetAssistantSessionID(chatID ChatID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[chatID]
	if !ok {
		return
	}
	sess.AssistantSessionID = id
	m.checkpointLocked(chatID, sess)
}

// checkpointLocked writes the live session into the history, keeping the
// stored message preview. The caller must hold m.mu.
func (m *Manager) checkpointLocked(chatID ChatID, sess *Session) {
	var preview string
	if entry, ok := m.history.SessionByConversationID(chatID, sess.ConversationID); ok {
		preview = entry.LastMessagePreview
	}
	m.history.SaveSession(chatID, sess.ConversationID, sess.WorkingDirectory, preview, sess.AssistantSessionID)
}

// ClearSession drops the chat's live session and reports whether there was
// one. Its history is kept so the conversation can be resumed later.
func (m *Manager) ClearSession(chatID ChatID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[chatID]; !ok {
		return false
	}
	delete(m.sessions, chatID)
	m.metrics.LiveSessions(len(m.sessions))
	m.logger.Info("session: cleared", "chat_id", chatID)
	return true
}

// ResumeSession makes the named conversation from the chat's history the
// live session. The stored path is resolved for this machine and written
// back so a successful remap sticks. It reports false, without mutating
// anything, when the conversation is not in the chat's history.
func (m *Manager) ResumeSession(chatID ChatID, conversationID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.history.SessionByConversationID(chatID, conversationID)
	if !ok {
		m.metrics.ResumeMissed()
		return Session{}, false
	}
	return m.resumeLocked(chatID, entry), true
}

// ResumeLastSession resumes the chat's most recent conversation. It reports
// false when the chat has no history.
func (m *Manager) ResumeLastSession(chatID ChatID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.history.LastSession(chatID)
	if !ok {
		m.metrics.ResumeMissed()
		return Session{}, false
	}
	return m.resumeLocked(chatID, entry), true
}

func (m *Manager) resumeLocked(chatID ChatID, entry history.Entry) Session {
	resolved := m.resolver.Resolve(entry.ProjectPath)

	sess := &Session{
		ConversationID:     entry.ConversationID,
		AssistantSessionID: entry.AssistantSessionID,
		WorkingDirectory:   resolved,
		CreatedAt:          entry.CreatedAt,
		LastActivity:       m.nowUTC(),
	}
	m.install(chatID, sess)
	m.history.SaveSession(chatID, entry.ConversationID, resolved, entry.LastMessagePreview, entry.AssistantSessionID)

	m.metrics.SessionResumed()
	attrs := []any{
		"chat_id", chatID,
		"conversation_id", entry.ConversationID,
		"working_directory", resolved,
	}
	if resolved != entry.ProjectPath {
		attrs = append(attrs, "stored_path", entry.ProjectPath)
	}
	m.logger.Info("session: resumed", attrs...)
	return *sess
}

// SessionHistory returns up to limit of the chat's most recent history
// entries. A limit <= 0 uses the history default.
func (m *Manager) SessionHistory(chatID ChatID, limit int) []history.Entry {
	return m.history.History(chatID, limit)
}

// PruneIdle drops live sessions idle longer than maxIdle and returns how
// many were dropped. History is untouched, so pruned conversations remain
// resumable.
func (m *Manager) PruneIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowUTC()
	pruned := 0
	for chatID, sess := range m.sessions {
		if now.Sub(sess.LastActivity) > maxIdle {
			delete(m.sessions, chatID)
			pruned++
		}
	}
	if pruned > 0 {
		m.metrics.SessionsPruned(pruned)
		m.metrics.LiveSessions(len(m.sessions))
	}
	return pruned
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Range calls fn for a snapshot of the live sessions. If fn returns false,
// iteration stops. fn may call back into the Manager.
func (m *Manager) Range(fn func(ChatID, Session) bool) {
	m.mu.RLock()
	snapshot := make(map[ChatID]Session, len(m.sessions))
	for chatID, sess := range m.sessions {
		snapshot[chatID] = *sess
	}
	m.mu.RUnlock()

	for chatID, sess := range snapshot {
		if !fn(chatID, sess) {
			return
		}
	}
}
