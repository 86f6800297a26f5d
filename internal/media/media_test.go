package media

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yatube/internal/forms"
)

func TestSaveAndServe(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	name, err := store.Save(&forms.Upload{Filename: "cat.JPG", Format: "jpeg", Data: []byte("jpeg-bytes")})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(name, "posts/") || !strings.HasSuffix(name, ".jpg") {
		t.Errorf("unexpected media name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	h := http.StripPrefix("/media/", store.Handler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/"+name, nil))
	if w.Code != http.StatusOK || w.Body.String() != "jpeg-bytes" {
		t.Errorf("serve: code %d body %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/posts/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("directory listing should be hidden, got %d", w.Code)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	name, err := store.Save(&forms.Upload{Filename: "a.png", Format: "png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Remove(name); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := store.Remove(name); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
