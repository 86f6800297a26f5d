// Package media stores uploaded post images on disk.
package media

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"yatube/internal/forms"
)

// Dir is the sub-directory that holds post images.
const Dir = "posts"

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tiff",
	"webp": ".webp",
}

type Store struct {
	Root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, Dir), 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{Root: root}, nil
}

// Save writes the upload under a fresh name and returns its slash-separated
// path relative to Root.
func (s *Store) Save(u *forms.Upload) (string, error) {
	ext, ok := extensions[u.Format]
	if !ok {
		ext = filepath.Ext(u.Filename)
	}
	name := path.Join(Dir, uuid.NewString()+ext)
	if err := os.WriteFile(filepath.Join(s.Root, filepath.FromSlash(name)), u.Data, 0644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return name, nil
}

// Remove deletes a file previously returned by Save. A missing file is not
// an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+name))))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Handler serves stored files. Directory listings are not exposed.
func (s *Store) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
