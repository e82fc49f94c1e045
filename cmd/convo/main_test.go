package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/pkg/app"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeTestConfig writes a config whose history lives in a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "convo.yaml")
	content := "version: \"1\"\nlog:\n  level: error\nhistory:\n  path: " + filepath.Join(dir, "history.json") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

// seed records conversations for chatID through the wired core.
func seed(t *testing.T, cfgPath string, chatID history.ChatID, ids ...string) {
	t.Helper()
	cfg, err := app.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	comps, err := app.Wire(cfg, discardLogger())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer func() { _ = comps.Close() }()
	dir := t.TempDir()
	for _, id := range ids {
		comps.Sessions.CreateSession(chatID, dir, id)
		comps.Sessions.UpdateActivity(chatID, "message for "+id)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "convo dev") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "config", "check", writeTestConfig(t))
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: \"2\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "check", bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestHistoryList(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t)
	seed(t, cfgPath, 42, "conv-a", "conv-b", "conv-c")

	out, err := execute(t, "--config", cfgPath, "history", "list", "42", "--limit", "2")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "conv-c") || !strings.Contains(lines[1], "message for conv-c") {
		t.Errorf("first row = %q", lines[1])
	}

	out, err = execute(t, "--config", cfgPath, "history", "list", "7")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "No conversations for chat 7") {
		t.Errorf("output = %q", out)
	}
}

func TestHistoryClear(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t)
	seed(t, cfgPath, 42, "conv-a")

	if _, err := execute(t, "--config", cfgPath, "history", "clear", "42"); err != nil {
		t.Fatalf("history clear: %v", err)
	}
	out, _ := execute(t, "--config", cfgPath, "history", "list", "42")
	if !strings.Contains(out, "No conversations") {
		t.Errorf("history should be empty, got %q", out)
	}
}

func TestHistory_InvalidChatID(t *testing.T) {
	t.Parallel()

	if _, err := execute(t, "--config", writeTestConfig(t), "history", "list", "abc"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}

func TestHistoryPick_NoHistory(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--config", writeTestConfig(t), "history", "pick", "9")
	if err == nil || !strings.Contains(err.Error(), "no conversations to resume") {
		t.Errorf("error = %v, want no history", err)
	}
}

func TestPickOptions(t *testing.T) {
	t.Parallel()

	entries := []history.Entry{
		{ConversationID: "c1", ProjectName: "proj", LastMessagePreview: "fix tests"},
		{ConversationID: "c2", ProjectName: "other"},
	}
	opts := pickOptions(entries)
	if len(opts) != 2 {
		t.Fatalf("options = %d, want 2", len(opts))
	}
	if opts[0].Value != "c1" || !strings.Contains(opts[0].Key, "proj") || !strings.Contains(opts[0].Key, "fix tests") {
		t.Errorf("opts[0] = %+v", opts[0])
	}
	if !strings.HasSuffix(opts[1].Key, "-") {
		t.Errorf("empty preview label = %q", opts[1].Key)
	}
}

func TestServiceConfig(t *testing.T) {
	t.Parallel()

	cfg, err := serviceConfig(app.RunParams{ConfigPath: "convo.yaml"})
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if cfg.Name != "convo" || len(cfg.Arguments) != 3 || cfg.Arguments[0] != "serve" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !filepath.IsAbs(cfg.Arguments[2]) {
		t.Errorf("config argument %q should be absolute", cfg.Arguments[2])
	}

	cfg, _ = serviceConfig(app.RunParams{})
	if len(cfg.Arguments) != 1 {
		t.Errorf("arguments = %v, want [serve]", cfg.Arguments)
	}
}
