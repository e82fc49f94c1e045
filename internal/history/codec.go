package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMalformed indicates the persisted document failed validation. The whole
// document is discarded; entries are never salvaged individually.
var ErrMalformed = errors.New("history: malformed document")

// document is the on-disk shape: {"sessions": {"<chatId>": [entry, ...]}}.
type document struct {
	Sessions map[string][]fileEntry `json:"sessions"`
}

type fileEntry struct {
	ConversationID     string `json:"conversationId"`
	AssistantSessionID string `json:"assistantSessionId,omitempty"`
	ProjectPath        string `json:"projectPath"`
	ProjectName        string `json:"projectName"`
	LastMessagePreview string `json:"lastMessagePreview"`
	CreatedAt          string `json:"createdAt"`
	LastActivity       string `json:"lastActivity"`
}

// rawDocument mirrors document with pointer fields so that missing and
// wrongly-typed fields can be told apart from empty strings.
type rawDocument struct {
	Sessions *map[string]*[]*rawEntry `json:"sessions"`
}

type rawEntry struct {
	ConversationID     *string `json:"conversationId"`
	AssistantSessionID *string `json:"assistantSessionId"`
	ProjectPath        *string `json:"projectPath"`
	ProjectName        *string `json:"projectName"`
	LastMessagePreview *string `json:"lastMessagePreview"`
	CreatedAt          *string `json:"createdAt"`
	LastActivity       *string `json:"lastActivity"`
}

// Encode renders a snapshot as the persisted JSON document.
func Encode(s Snapshot) ([]byte, error) {
	doc := document{Sessions: make(map[string][]fileEntry, len(s))}
	for chatID, entries := range s {
		out := make([]fileEntry, len(entries))
		for i, e := range entries {
			out[i] = fileEntry{
				ConversationID:     e.ConversationID,
				AssistantSessionID: e.AssistantSessionID,
				ProjectPath:        e.ProjectPath,
				ProjectName:        e.ProjectName,
				LastMessagePreview: e.LastMessagePreview,
				CreatedAt:          FormatTime(e.CreatedAt),
				LastActivity:       FormatTime(e.LastActivity),
			}
		}
		doc.Sessions[strconv.FormatInt(int64(chatID), 10)] = out
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("history: encode: %w", err)
	}
	return data, nil
}

// Decode parses and validates a persisted document. Keys that are not
// positive integers are skipped; any other defect returns ErrMalformed.
func Decode(data []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Sessions == nil {
		return nil, fmt.Errorf("%w: missing sessions", ErrMalformed)
	}

	snap := make(Snapshot, len(*raw.Sessions))
	for key, list := range *raw.Sessions {
		if list == nil {
			return nil, fmt.Errorf("%w: chat %q: history is not a list", ErrMalformed, key)
		}

		entries := make([]Entry, 0, len(*list))
		for i, re := range *list {
			e, err := re.validate()
			if err != nil {
				return nil, fmt.Errorf("%w: chat %q entry %d: %v", ErrMalformed, key, i, err)
			}
			entries = append(entries, e)
		}

		chatID, ok := parseChatID(key)
		if !ok {
			continue
		}
		if len(entries) > 0 {
			snap[chatID] = entries
		}
	}
	return snap, nil
}

func (re *rawEntry) validate() (Entry, error) {
	if re == nil {
		return Entry{}, errors.New("entry is null")
	}

	required := []struct {
		name  string
		value *string
	}{
		{"conversationId", re.ConversationID},
		{"projectPath", re.ProjectPath},
		{"projectName", re.ProjectName},
		{"lastMessagePreview", re.LastMessagePreview},
		{"createdAt", re.CreatedAt},
		{"lastActivity", re.LastActivity},
	}
	for _, f := range required {
		if f.value == nil {
			return Entry{}, fmt.Errorf("missing %s", f.name)
		}
	}

	createdAt, err := ParseTime(*re.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("createdAt: %w", err)
	}
	lastActivity, err := ParseTime(*re.LastActivity)
	if err != nil {
		return Entry{}, fmt.Errorf("lastActivity: %w", err)
	}

	e := Entry{
		ConversationID:     *re.ConversationID,
		ProjectPath:        *re.ProjectPath,
		ProjectName:        *re.ProjectName,
		LastMessagePreview: *re.LastMessagePreview,
		CreatedAt:          createdAt,
		LastActivity:       lastActivity,
	}
	if re.AssistantSessionID != nil {
		e.AssistantSessionID = *re.AssistantSessionID
	}
	return e, nil
}

// FormatTime renders a timestamp the way it is persisted.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a persisted ISO-8601 timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseChatID(key string) (ChatID, bool) {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	return ChatID(n), true
}
