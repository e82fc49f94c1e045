package history

import (
	"errors"
	"testing"
)

const validEntry = `{
	"conversationId": "conv-1",
	"projectPath": "/home/bob/proj",
	"projectName": "proj",
	"lastMessagePreview": "hi",
	"createdAt": "2025-01-01T00:00:00.000Z",
	"lastActivity": "2025-01-01T00:05:00.000Z"
}`

func TestDecode_Valid(t *testing.T) {
	t.Parallel()

	snap, err := Decode([]byte(`{"sessions": {"42": [` + validEntry + `]}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	entries := snap[42]
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ConversationID != "conv-1" || e.ProjectName != "proj" || e.AssistantSessionID != "" {
		t.Errorf("unexpected entry %+v", e)
	}
	if got := e.LastActivity.Sub(e.CreatedAt); got.Minutes() != 5 {
		t.Errorf("activity delta = %v, want 5m", got)
	}
}

func TestDecode_SkipsInvalidKeys(t *testing.T) {
	t.Parallel()

	doc := `{"sessions": {
		"abc": [` + validEntry + `],
		"-4": [` + validEntry + `],
		"1.5": [` + validEntry + `],
		"0": [` + validEntry + `],
		"9": [` + validEntry + `]
	}}`

	snap, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(snap) != 3 {
		t.Fatalf("chats = %d, want 3", len(snap))
	}
	for _, id := range []ChatID{-4, 0, 9} {
		if _, ok := snap[id]; !ok {
			t.Errorf("chat %d should be kept", id)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"not json", `{sessions:`},
		{"top-level array", `[]`},
		{"missing sessions", `{}`},
		{"null sessions", `{"sessions": null}`},
		{"sessions not object", `{"sessions": []}`},
		{"history not list", `{"sessions": {"1": {}}}`},
		{"null history", `{"sessions": {"1": null}}`},
		{"null entry", `{"sessions": {"1": [null]}}`},
		{"wrong field type", `{"sessions": {"1": [{"conversationId": 1}]}}`},
		{"missing field", `{"sessions": {"1": [{"conversationId": "c"}]}}`},
		{"bad timestamp", `{"sessions": {"1": [{
			"conversationId": "c", "projectPath": "/p", "projectName": "p",
			"lastMessagePreview": "", "createdAt": "yesterday", "lastActivity": "2025-01-01T00:00:00Z"}]}}`},
		{"assistant id wrong type", `{"sessions": {"1": [{
			"conversationId": "c", "assistantSessionId": 3, "projectPath": "/p", "projectName": "p",
			"lastMessagePreview": "", "createdAt": "2025-01-01T00:00:00Z", "lastActivity": "2025-01-01T00:00:00Z"}]}}`},
		{"bad entry under skipped key", `{"sessions": {"x": [{"conversationId": 1}], "2": [` + validEntry + `]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	t.Parallel()

	snap, err := Decode([]byte(`{"sessions": {"42": [` + validEntry + `]}}`))
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(Encode): %v\n%s", err, data)
	}
	if len(again[42]) != 1 || again[42][0].ConversationID != "conv-1" {
		t.Errorf("unexpected re-decoded snapshot %+v", again)
	}
}

func TestProjectName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/home/bob/proj":   "proj",
		"/home/bob/proj/":  "proj",
		`C:\Users\bob\app`: "app",
		"proj":             "proj",
		"/":                "",
		"":                 "",
	}
	for in, want := range tests {
		if got := projectName(in); got != want {
			t.Errorf("projectName(%q) = %q, want %q", in, got, want)
		}
	}
}
