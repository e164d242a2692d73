package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// Local stores files on a filesystem rooted at the media directory and
// serves them below a URL prefix.
type Local struct {
	fs      afero.Fs
	baseURL string
}

// NewLocalDir returns a Local backend rooted at dir on the OS filesystem.
func NewLocalDir(dir, baseURL string) *Local {
	return NewLocal(afero.NewBasePathFs(afero.NewOsFs(), dir), baseURL)
}

// NewLocal returns a Local backend over an arbitrary afero filesystem.
func NewLocal(fsys afero.Fs, baseURL string) *Local {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Local{fs: fsys, baseURL: baseURL}
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + key)
	if k == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return k, nil
}

// Save writes body to key, creating parent directories as needed.
func (l *Local) Save(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(path.Dir(k), 0o755); err != nil {
		return fmt.Errorf("local mkdir %s: %w", key, err)
	}
	f, err := l.fs.Create(k)
	if err != nil {
		return fmt.Errorf("local create %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("local write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("local close %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing files are ignored.
func (l *Local) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(k); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key below the media prefix.
func (l *Local) URL(key string) string {
	return l.baseURL + strings.TrimPrefix(key, "/")
}

// Handler serves stored files. Mount it at the media URL prefix with the
// prefix stripped. Directory listings are not served.
func (l *Local) Handler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(l.fs).Dir("/"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
