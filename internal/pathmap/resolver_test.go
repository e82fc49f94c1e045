package pathmap

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func newTestResolver(t *testing.T, home string, dirs ...string) *Resolver {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", dir, err)
		}
	}
	return New(
		WithFs(fs),
		WithHomeDir(func() (string, error) { return home, nil }),
	)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		home   string
		dirs   []string
		stored string
		want   string
	}{
		{
			name:   "existing path is returned unchanged",
			home:   "/home/bob",
			dirs:   []string{"/srv/projects/api"},
			stored: "/srv/projects/api",
			want:   "/srv/projects/api",
		},
		{
			name:   "macOS home remapped onto linux home",
			home:   "/home/bob",
			dirs:   []string{"/home/bob/proj"},
			stored: "/Users/alice/proj",
			want:   "/home/bob/proj",
		},
		{
			name:   "linux home remapped onto macOS home",
			home:   "/Users/bob",
			dirs:   []string{"/Users/bob/code/site"},
			stored: "/home/alice/code/site",
			want:   "/Users/bob/code/site",
		},
		{
			name:   "remapped candidate missing falls back to home",
			home:   "/home/bob",
			dirs:   []string{"/home/bob"},
			stored: "/Users/alice/gone",
			want:   "/home/bob",
		},
		{
			name:   "foreign home root maps to current home",
			home:   "/home/bob",
			dirs:   []string{"/home/bob"},
			stored: "/Users/alice",
			want:   "/home/bob",
		},
		{
			name:   "unrelated missing path falls back to home",
			home:   "/home/bob",
			stored: "/opt/nowhere",
			want:   "/home/bob",
		},
		{
			name:   "empty path falls back to home",
			home:   "/home/bob",
			stored: "",
			want:   "/home/bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestResolver(t, tt.home, tt.dirs...)
			if got := r.Resolve(tt.stored); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.stored, got, tt.want)
			}
		})
	}
}

func TestResolve_HomeUnavailable(t *testing.T) {
	t.Parallel()

	r := New(
		WithFs(afero.NewMemMapFs()),
		WithHomeDir(func() (string, error) { return "", errors.New("no home") }),
	)

	if got := r.Resolve("/Users/alice/proj"); got != "/" {
		t.Errorf("Resolve = %q, want %q", got, "/")
	}
}
