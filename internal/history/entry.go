// Package history keeps the durable, per-chat, size-bounded trail of
// conversations that can be resumed, and persists it through a Persister.
package history

import (
	"strings"
	"time"
)

const (
	// DefaultMaxEntries is the per-chat history cap.
	DefaultMaxEntries = 20

	// DefaultLimit is the number of entries returned by History when the
	// caller does not ask for a specific amount.
	DefaultLimit = 5

	// MaxPreviewLength is the maximum length, in characters, of a stored
	// message preview.
	MaxPreviewLength = 100
)

// ChatID identifies a chat thread in the transport layer.
type ChatID int64

// Entry is the durable record of one conversation.
type Entry struct {
	ConversationID     string
	AssistantSessionID string // empty when the assistant has not reported one
	ProjectPath        string
	ProjectName        string
	LastMessagePreview string
	CreatedAt          time.Time
	LastActivity       time.Time
}

// Snapshot is a point-in-time copy of every chat's history,
// most-recent-first within each chat.
type Snapshot map[ChatID][]Entry

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for chatID, entries := range s {
		out[chatID] = append([]Entry(nil), entries...)
	}
	return out
}

// truncatePreview cuts s to MaxPreviewLength runes.
func truncatePreview(s string) string {
	if len(s) <= MaxPreviewLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxPreviewLength {
		return s
	}
	return string(runes[:MaxPreviewLength])
}

// projectName returns the final segment of a project path.
func projectName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
