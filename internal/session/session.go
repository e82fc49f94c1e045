// Package session owns the live binding of each chat to its active
// conversation and keeps that binding checkpointed into the durable history.
package session

import (
	"time"

	"github.com/flemzord/convo/internal/history"
)

// ChatID identifies a chat thread in the transport layer.
type ChatID = history.ChatID

// Session is the live, resolved projection of a history entry. The
// ConversationID is the join key with history.Entry.
type Session struct {
	ConversationID     string
	AssistantSessionID string // empty until the assistant reports one
	WorkingDirectory   string
	CreatedAt          time.Time
	LastActivity       time.Time
}

// PathResolver maps a stored working directory to a usable path on the
// current machine.
type PathResolver interface {
	Resolve(stored string) string
}

// HistoryStore is the subset of history.Store used by the Manager.
type HistoryStore interface {
	SaveSession(chatID ChatID, conversationID, projectPath, preview, assistantSessionID string)
	UpdateLastMessage(chatID ChatID, conversationID, preview string)
	History(chatID ChatID, limit int) []history.Entry
	LastSession(chatID ChatID) (history.Entry, bool)
	SessionByConversationID(chatID ChatID, conversationID string) (history.Entry, bool)
}

// Compile-time interface check.
var _ HistoryStore = (*history.Store)(nil)

// Metrics receives lifecycle events from the Manager.
type Metrics interface {
	SessionCreated()
	SessionResumed()
	ResumeMissed()
	SessionsPruned(n int)
	LiveSessions(n int)
}

type nopMetrics struct{}

func (nopMetrics) SessionCreated()    {}
func (nopMetrics) SessionResumed()    {}
func (nopMetrics) ResumeMissed()      {}
func (nopMetrics) SessionsPruned(int) {}
func (nopMetrics) LiveSessions(int)   {}
