package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/flemzord/convo/internal/config"
)

func TestAdmin_ListSessions(t *testing.T) {
	t.Parallel()

	srv, env := newTestServer(t)
	h := srv.Handler()

	rr := do(t, h, http.MethodGet, "/api/sessions", "")
	var sessions []sessionJSON
	if err := json.NewDecoder(rr.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}

	env.Manager.CreateSession(7, "/home/bob/other", "conv-7")
	env.Manager.CreateSession(3, "/home/bob/proj", "conv-3")

	rr = do(t, h, http.MethodGet, "/api/sessions", "")
	sessions = nil
	if err := json.NewDecoder(rr.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ChatID != 3 || sessions[0].ConversationID != "conv-3" || sessions[0].WorkingDirectory != "/home/bob/proj" {
		t.Errorf("sessions[0] = %+v", sessions[0])
	}
	if sessions[1].ChatID != 7 {
		t.Errorf("sessions[1].ChatID = %d, want 7", sessions[1].ChatID)
	}
}

func TestAdmin_ClearSession(t *testing.T) {
	t.Parallel()

	srv, env := newTestServer(t)
	h := srv.Handler()
	env.Manager.CreateSession(1, "/home/bob/proj", "conv-1")

	if rr := do(t, h, http.MethodDelete, "/api/sessions/1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if _, ok := env.Manager.Session(1); ok {
		t.Error("session should be cleared")
	}
	if _, ok := env.Store.LastSession(1); !ok {
		t.Error("history should survive ClearSession")
	}
	if rr := do(t, h, http.MethodDelete, "/api/sessions/1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	env.Manager.CreateSession(-1001234, "/home/bob/proj", "group")
	if rr := do(t, h, http.MethodDelete, "/api/sessions/-1001234", ""); rr.Code != http.StatusNoContent {
		t.Errorf("negative id status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if rr := do(t, h, http.MethodDelete, "/api/sessions/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAdmin_Resume(t *testing.T) {
	t.Parallel()

	srv, env := newTestServer(t)
	h := srv.Handler()
	env.Store.SaveSession(42, "old", "/Users/alice/proj", "hi", "asst-1")
	env.Store.SaveSession(42, "new", "/home/bob/other", "", "")

	rr := do(t, h, http.MethodPost, "/api/sessions/42/resume", `{"conversation_id":"old"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var got sessionJSON
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ConversationID != "old" || got.WorkingDirectory != "/home/bob/proj" || got.AssistantSessionID != "asst-1" {
		t.Errorf("resumed = %+v", got)
	}

	// Resuming updates in place, so "new" is still the most recent entry.
	rr = do(t, h, http.MethodPost, "/api/sessions/42/resume", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	got = sessionJSON{}
	_ = json.NewDecoder(rr.Body).Decode(&got)
	if got.ConversationID != "new" {
		t.Errorf("resume last = %q, want new", got.ConversationID)
	}

	if rr := do(t, h, http.MethodPost, "/api/sessions/42/resume", `{"conversation_id":"missing"}`); rr.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if rr := do(t, h, http.MethodPost, "/api/sessions/99/resume", ""); rr.Code != http.StatusNotFound {
		t.Errorf("no history status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if rr := do(t, h, http.MethodPost, "/api/sessions/42/resume", "{"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAdmin_History(t *testing.T) {
	t.Parallel()

	srv, env := newTestServer(t)
	h := srv.Handler()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		env.Store.SaveSession(5, id, "/home/bob/proj", "msg "+id, "")
	}
	env.Store.SaveSession(6, "z", "/home/bob/other", "", "")

	rr := do(t, h, http.MethodGet, "/api/history/5", "")
	var entries []entryJSON
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 5 || entries[0].ConversationID != "f" || entries[0].ProjectName != "proj" {
		t.Errorf("default history = %+v", entries)
	}

	rr = do(t, h, http.MethodGet, "/api/history/5?limit=2", "")
	entries = nil
	_ = json.NewDecoder(rr.Body).Decode(&entries)
	if len(entries) != 2 {
		t.Errorf("limited history len = %d, want 2", len(entries))
	}

	if rr := do(t, h, http.MethodGet, "/api/history/5?limit=x", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = do(t, h, http.MethodGet, "/api/history", "")
	entries = nil
	_ = json.NewDecoder(rr.Body).Decode(&entries)
	if len(entries) != 2 || entries[0].ChatID != 5 || entries[0].ConversationID != "f" || entries[1].ChatID != 6 {
		t.Errorf("active history = %+v", entries)
	}

	if rr := do(t, h, http.MethodDelete, "/api/history/5", ""); rr.Code != http.StatusNoContent {
		t.Errorf("clear status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := env.Store.History(5, 0); len(got) != 0 {
		t.Errorf("history after clear = %d entries, want 0", len(got))
	}
}

func TestAdmin_GetConfig_Redacted(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Gateway.Auth.BearerToken = "super-secret"
	cfg.Gateway.Auth.BasicPass = "hunter2"
	srv, _ := newTestServer(t, WithConfig(cfg))

	rr := do(t, srv.Handler(), http.MethodGet, "/api/config", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if strings.Contains(body, "super-secret") || strings.Contains(body, "hunter2") {
		t.Errorf("config leaked secrets: %s", body)
	}
	if !strings.Contains(body, "***REDACTED***") {
		t.Errorf("config not redacted: %s", body)
	}
}

func TestAdmin_GetConfig_Unavailable(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	if rr := do(t, srv.Handler(), http.MethodGet, "/api/config", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestRedactSecrets(t *testing.T) {
	t.Parallel()

	m := map[string]any{
		"api_key": "sk-123",
		"nested":  map[string]any{"password": "p", "name": "visible"},
		"list":    []any{map[string]any{"token": "t"}},
		"empty":   map[string]any{"secret": ""},
	}
	redactSecrets(m)

	if m["api_key"] != "***REDACTED***" {
		t.Errorf("api_key = %v", m["api_key"])
	}
	nested := m["nested"].(map[string]any)
	if nested["password"] != "***REDACTED***" || nested["name"] != "visible" {
		t.Errorf("nested = %v", nested)
	}
	if m["list"].([]any)[0].(map[string]any)["token"] != "***REDACTED***" {
		t.Errorf("list = %v", m["list"])
	}
	if m["empty"].(map[string]any)["secret"] != "" {
		t.Error("empty secrets stay empty")
	}
}
