// Package pathmap repairs working-directory paths recorded on another machine
// or user account so they can be reused on the current one.
package pathmap

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// foreignHomePrefixes are the home-directory roots that are remapped onto the
// current user's home, in priority order.
var foreignHomePrefixes = []string{
	"/Users/",
	"/home/",
}

// Resolver maps stored paths to usable paths on the current machine.
// The zero value is not usable; create one with New.
type Resolver struct {
	fs   afero.Fs
	home func() (string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs sets the filesystem used for existence checks.
// Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithHomeDir sets the function returning the current user's home directory.
// Defaults to os.UserHomeDir.
func WithHomeDir(home func() (string, error)) Option {
	return func(r *Resolver) { r.home = home }
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fs:   afero.NewOsFs(),
		home: os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns stored unchanged when it exists. Otherwise it tries to
// splice the part after a foreign home directory onto the current home, and
// falls back to the current home directory. It never fails.
func (r *Resolver) Resolve(stored string) string {
	if stored != "" && r.exists(stored) {
		return stored
	}

	home := r.homeDir()

	for _, prefix := range foreignHomePrefixes {
		rest, ok := strings.CutPrefix(stored, prefix)
		if !ok {
			continue
		}
		candidate := home
		// rest is "<user>/<remainder>"; a bare "<user>" is the foreign home itself.
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			candidate = filepath.Join(home, filepath.FromSlash(rest[idx+1:]))
		}
		if r.exists(candidate) {
			return candidate
		}
	}

	return home
}

func (r *Resolver) exists(path string) bool {
	_, err := r.fs.Stat(path)
	return err == nil
}

// homeDir returns the current home directory, or the filesystem root when it
// cannot be determined.
func (r *Resolver) homeDir() string {
	home, err := r.home()
	if err != nil || home == "" {
		return string(filepath.Separator)
	}
	return home
}
