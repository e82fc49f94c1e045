package history

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Store is the in-memory arena of conversation records, indexed by chat and
// ordered most-recent-first. Every mutation is flushed through the Persister.
// Persistence failures are logged and reported to the failure hook; they never
// reach the caller and never roll back the in-memory state.
type Store struct {
	mu           sync.RWMutex
	sessions     map[ChatID][]Entry
	persister    Persister
	maxEntries   int
	defaultLimit int
	logger       *slog.Logger

	// onPersistFailure is called after a failed load or save.
	onPersistFailure func(error)

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxEntries lowers the per-chat cap. Values outside
// 1..DefaultMaxEntries keep DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 && n <= DefaultMaxEntries {
			s.maxEntries = n
		}
	}
}

// WithDefaultLimit sets the History limit used when the caller passes
// none. Values <= 0 keep DefaultLimit.
func WithDefaultLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPersistFailureHook registers fn to be called whenever loading or saving
// the history fails.
func WithPersistFailureHook(fn func(error)) Option {
	return func(s *Store) { s.onPersistFailure = fn }
}

// Open creates a Store and loads its state once from the persister.
// A missing, unreadable or malformed backing leaves the store empty.
func Open(p Persister, opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[ChatID][]Entry),
		persister:    p,
		maxEntries:   DefaultMaxEntries,
		defaultLimit: DefaultLimit,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	if s.persister == nil {
		return
	}

	snap, err := s.persister.Load()
	switch {
	case errors.Is(err, ErrMalformed):
		s.logger.Warn("history: discarding malformed history", "error", err)
		s.reportFailure(err)
		return
	case err != nil:
		s.logger.Error("history: load failed, starting empty", "error", err)
		s.reportFailure(err)
		return
	}

	for chatID, entries := range snap {
		if len(entries) > s.maxEntries {
			entries = entries[:s.maxEntries]
		}
		s.sessions[chatID] = append([]Entry(nil), entries...)
	}
	s.logger.Debug("history: loaded", "chats", len(s.sessions))
}

// persistLocked flushes the whole arena. The caller must hold s.mu.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(Snapshot(s.sessions)); err != nil {
		s.logger.Error("history: save failed", "error", err)
		s.reportFailure(err)
	}
}

func (s *Store) reportFailure(err error) {
	if s.onPersistFailure != nil {
		s.onPersistFailure(err)
	}
}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC()
}

// SaveSession upserts the record for conversationID. An existing record is
// replaced in place, keeping its CreatedAt and, when assistantSessionID is
// empty, its AssistantSessionID. A new record goes to the head of the list
// and the oldest records beyond the cap are evicted.
func (s *Store) SaveSession(chatID ChatID, conversationID, projectPath, preview, assistantSessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowUTC()
	entry := Entry{
		ConversationID:     conversationID,
		AssistantSessionID: assistantSessionID,
		ProjectPath:        projectPath,
		ProjectName:        projectName(projectPath),
		LastMessagePreview: truncatePreview(preview),
		CreatedAt:          now,
		LastActivity:       now,
	}

	entries := s.sessions[chatID]
	if i := indexOf(entries, conversationID); i >= 0 {
		entry.CreatedAt = entries[i].CreatedAt
		if entry.AssistantSessionID == "" {
			entry.AssistantSessionID = entries[i].AssistantSessionID
		}
		entries[i] = entry
	} else {
		entries = append([]Entry{entry}, entries...)
		if len(entries) > s.maxEntries {
			entries = entries[:s.maxEntries]
		}
		s.sessions[chatID] = entries
	}

	s.persistLocked()
}

// UpdateLastMessage sets the preview and bumps LastActivity. It is a no-op
// when the chat or the conversation is unknown.
func (s *Store) UpdateLastMessage(chatID ChatID, conversationID, preview string) {
	s.update(chatID, conversationID, func(e *Entry) {
		e.LastMessagePreview = truncatePreview(preview)
		e.LastActivity = s.nowUTC()
	})
}

// UpdateAssistantSessionID records the identifier assigned by the assistant
// process. It is a no-op when the chat or the conversation is unknown.
func (s *Store) UpdateAssistantSessionID(chatID ChatID, conversationID, id string) {
	s.update(chatID, conversationID, func(e *Entry) {
		e.AssistantSessionID = id
		e.LastActivity = s.nowUTC()
	})
}

func (s *Store) update(chatID ChatID, conversationID string, fn func(*Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.sessions[chatID]
	i := indexOf(entries, conversationID)
	if i < 0 {
		return
	}
	fn(&entries[i])
	s.persistLocked()
}

// History returns up to limit of the most recent entries for a chat.
// A limit <= 0 means the store's default limit. Unknown chats yield an
// empty slice.
func (s *Store) History(chatID ChatID, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = s.defaultLimit
	}

	entries := s.sessions[chatID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// LastSession returns the most recent entry for a chat.
func (s *Store) LastSession(chatID ChatID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[chatID]
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// SessionByConversationID looks up a chat's entry by conversation id.
func (s *Store) SessionByConversationID(chatID ChatID, conversationID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[chatID]
	if i := indexOf(entries, conversationID); i >= 0 {
		return entries[i], true
	}
	return Entry{}, false
}

// AllActiveSessions returns the most recent entry of every chat that has
// any history.
func (s *Store) AllActiveSessions() map[ChatID]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[ChatID]Entry, len(s.sessions))
	for chatID, entries := range s.sessions {
		if len(entries) > 0 {
			out[chatID] = entries[0]
		}
	}
	return out
}

// ClearHistory deletes a chat's whole history.
func (s *Store) ClearHistory(chatID ChatID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
	s.persistLocked()
}

// Snapshot returns a deep copy of the whole arena.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot(s.sessions).Clone()
}

func indexOf(entries []Entry, conversationID string) int {
	for i := range entries {
		if entries[i].ConversationID == conversationID {
			return i
		}
	}
	return -1
}
