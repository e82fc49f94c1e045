// Package sessiontest builds fully wired session managers over an in-memory
// filesystem for tests.
package sessiontest

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/convo/internal/history"
	"github.com/flemzord/convo/internal/pathmap"
	"github.com/flemzord/convo/internal/session"
	"github.com/spf13/afero"
)

// HistoryPath is where the test history document is written.
const HistoryPath = "/config/convo/session-history.json"

// Clock is a manually advanced time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to 2025-01-01T00:00:00Z.
func NewClock() *Clock {
	return &Clock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Env is a Manager together with its collaborators.
type Env struct {
	Manager   *session.Manager
	Store     *history.Store
	Persister *history.FilePersister
	Fs        afero.Fs
	Clock     *Clock
	Home      string
}

// Reopen loads a fresh Store and Manager from the same filesystem, as a
// process restart would.
func (e *Env) Reopen(t *testing.T) *Env {
	t.Helper()
	return build(t, e.Fs, e.Home, e.Clock)
}

// New returns an Env whose current home directory is home. Each of dirs is
// created on the in-memory filesystem.
func New(t *testing.T, home string, dirs ...string) *Env {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range append([]string{home}, dirs...) {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("sessiontest: MkdirAll(%s): %v", dir, err)
		}
	}
	return build(t, fs, home, NewClock())
}

func build(t *testing.T, fs afero.Fs, home string, clock *Clock) *Env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	persister := history.NewFilePersister(fs, HistoryPath)
	store := history.Open(persister,
		history.WithClock(clock.Now),
		history.WithLogger(logger),
	)
	resolver := pathmap.New(
		pathmap.WithFs(fs),
		pathmap.WithHomeDir(func() (string, error) { return home, nil }),
	)
	mgr := session.NewManager(resolver, store,
		session.WithClock(clock.Now),
		session.WithLogger(logger),
	)

	return &Env{
		Manager:   mgr,
		Store:     store,
		Persister: persister,
		Fs:        fs,
		Clock:     clock,
		Home:      home,
	}
}
