package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"

	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/internal/session"
	"github.com/go-chi/chi/v5"
)

// sessionJSON is a serializable live session.
type sessionJSON struct {
	ChatID             int64  `json:"chat_id"`
	ConversationID     string `json:"conversation_id"`
	AssistantSessionID string `json:"assistant_session_id,omitempty"`
	WorkingDirectory   string `json:"working_directory"`
	CreatedAt          string `json:"created_at"`
	LastActivity       string `json:"last_activity"`
}

func toSessionJSON(chatID session.ChatID, sess session.Session) sessionJSON {
	return sessionJSON{
		ChatID:             int64(chatID),
		ConversationID:     sess.ConversationID,
		AssistantSessionID: sess.AssistantSessionID,
		WorkingDirectory:   sess.WorkingDirectory,
		CreatedAt:          history.FormatTime(sess.CreatedAt),
		LastActivity:       history.FormatTime(sess.LastActivity),
	}
}

// entryJSON is a serializable history entry.
type entryJSON struct {
	ChatID             int64  `json:"chat_id"`
	ConversationID     string `json:"conversation_id"`
	AssistantSessionID string `json:"assistant_session_id,omitempty"`
	ProjectPath        string `json:"project_path"`
	ProjectName        string `json:"project_name"`
	LastMessagePreview string `json:"last_message_preview"`
	CreatedAt          string `json:"created_at"`
	LastActivity       string `json:"last_activity"`
}

func toEntryJSON(chatID history.ChatID, e history.Entry) entryJSON {
	return entryJSON{
		ChatID:             int64(chatID),
		ConversationID:     e.ConversationID,
		AssistantSessionID: e.AssistantSessionID,
		ProjectPath:        e.ProjectPath,
		ProjectName:        e.ProjectName,
		LastMessagePreview: e.LastMessagePreview,
		CreatedAt:          history.FormatTime(e.CreatedAt),
		LastActivity:       history.FormatTime(e.LastActivity),
	}
}

// chatIDParam parses the {chatID} URL parameter. It writes a 400 and
// reports false when the parameter is not an integer.
func chatIDParam(w http.ResponseWriter, r *http.Request) (session.ChatID, bool) {
	raw := chi.URLParam(r, "chatID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return 0, false
	}
	return session.ChatID(id), true
}

// handleListSessions returns all live sessions ordered by chat id.
func (s *Server) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []sessionJSON{}
		s.sessions.Range(func(chatID session.ChatID, sess session.Session) bool {
			out = append(out, toSessionJSON(chatID, sess))
			return true
		})
		sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
		writeJSON(w, http.StatusOK, out)
	}
}

// handleClearSession drops a chat's live session. History is kept.
func (s *Server) handleClearSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(w, r)
		if !ok {
			return
		}
		if !s.sessions.ClearSession(chatID) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type resumeRequest struct {
	ConversationID string `json:"conversation_id"`
}

// handleResume resumes a conversation from the chat's history. An empty
// or absent body resumes the most recent one.
func (s *Server) handleResume() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(w, r)
		if !ok {
			return
		}

		var req resumeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		var (
			sess    session.Session
			resumed bool
		)
		if req.ConversationID == "" {
			sess, resumed = s.sessions.ResumeLastSession(chatID)
		} else {
			sess, resumed = s.sessions.ResumeSession(chatID, req.ConversationID)
		}
		if !resumed {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toSessionJSON(chatID, sess))
	}
}

// handleActiveHistory returns the most recent history entry of every chat.
func (s *Server) handleActiveHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		active := s.history.AllActiveSessions()
		out := make([]entryJSON, 0, len(active))
		for chatID, entry := range active {
			out = append(out, toEntryJSON(chatID, entry))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
		writeJSON(w, http.StatusOK, out)
	}
}

// handleChatHistory returns a chat's history, most recent first.
func (s *Server) handleChatHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(w, r)
		if !ok {
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		entries := s.sessions.SessionHistory(chatID, limit)
		out := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, toEntryJSON(chatID, e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleClearHistory forgets every conversation of a chat.
func (s *Server) handleClearHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(w, r)
		if !ok {
			return
		}
		s.history.ClearHistory(chatID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// secretPattern matches field names that likely hold secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|pass|key)`)

// handleGetConfig returns the running config with secrets redacted.
func (s *Server) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.snapshot == nil {
			http.Error(w, "config not available", http.StatusServiceUnavailable)
			return
		}

		raw, err := json.Marshal(s.snapshot)
		if err != nil {
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err != nil {
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		redactSecrets(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// redactSecrets walks a map and replaces values whose keys match the secret pattern.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = "***REDACTED***"
			}
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
