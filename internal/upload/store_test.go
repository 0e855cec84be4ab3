package upload

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{Root: filepath.Join(t.TempDir(), "uploads")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.now = func() time.Time { return time.Unix(1700000000, 123456000) }
	return store
}

func TestSecureFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\..\windows\boot.ini`, "windows_boot.ini"},
		{"über café.png", "uber_cafe.png"},
		{"...", ""},
		{".hidden.gif", "hidden.gif"},
		{"a;rm -rf *.jpg", "arm_-rf_.jpg"},
	}
	for _, tt := range tests {
		if got := SecureFilename(tt.in); got != tt.want {
			t.Errorf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveWritesUnderRoot(t *testing.T) {
	store := newTestStore(t)
	content := bytes.Repeat([]byte{0xff}, 10*1024)

	stored, err := store.Save("holiday photo.JPG", "image/jpeg", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stored.Name != "1700000000.123456_holiday_photo.JPG" {
		t.Fatalf("unexpected stored name %q", stored.Name)
	}
	if stored.URL != DefaultPublicPrefix+"/"+stored.Name {
		t.Fatalf("unexpected url %q", stored.URL)
	}
	if stored.MimeType != "image/jpeg" {
		t.Fatalf("unexpected mime type %q", stored.MimeType)
	}
	onDisk, err := os.ReadFile(filepath.Join(store.Root(), stored.Name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(onDisk, content) {
		t.Fatalf("stored bytes differ from upload")
	}
}

func TestSaveRejects(t *testing.T) {
	store := newTestStore(t)
	tests := []struct {
		name string
		file string
		body *bytes.Reader
		want error
	}{
		{"no file", "a.png", nil, ErrNoFile},
		{"empty name", "", bytes.NewReader([]byte("x")), ErrEmptyFilename},
		{"text file", "notes.txt", bytes.NewReader([]byte("x")), ErrTypeNotAllowed},
		{"no extension", "png", bytes.NewReader([]byte("x")), ErrTypeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.body == nil {
				_, err = store.Save(tt.file, "", nil)
			} else {
				_, err = store.Save(tt.file, "", tt.body)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveEnforcesCeiling(t *testing.T) {
	store := newTestStore(t)
	store.maxBytes = 16

	_, err := store.Save("big.png", "image/png", strings.NewReader(strings.Repeat("a", 17)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(store.Root())
	if len(entries) != 0 {
		t.Fatalf("rejected upload left %d files behind", len(entries))
	}
}

func TestMessageMapsSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNoFile, "No file part"},
		{ErrEmptyFilename, "No selected file"},
		{ErrTypeNotAllowed, "Invalid file type"},
		{fmt.Errorf("save: %w", ErrTooLarge), "File too large"},
		{errors.New("disk full"), "Upload failed"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRoutePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", DefaultPublicPrefix},
		{"/static/uploads", "/static/uploads"},
		{"/media/", "/media"},
		{"https://cdn.example.com/static/uploads", "/static/uploads"},
		{"https://cdn.example.com", DefaultPublicPrefix},
	}
	for _, tt := range tests {
		if got := RoutePath(tt.in); got != tt.want {
			t.Errorf("RoutePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveWithAbsolutePublicURL(t *testing.T) {
	store, err := NewStore(Options{
		Root:      filepath.Join(t.TempDir(), "uploads"),
		PublicURL: "https://cdn.example.com/static/uploads/",
	})
	if err != nil {
		t.Fatal(err)
	}
	stored, err := store.Save("cat.gif", "", strings.NewReader("gif"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stored.URL != "https://cdn.example.com/static/uploads/"+stored.Name {
		t.Fatalf("unexpected url %q", stored.URL)
	}
}

func TestResolveMimeTypeFallsBackToExtension(t *testing.T) {
	if got := resolveMimeType("application/octet-stream", "cat.gif"); got != "image/gif" {
		t.Fatalf("expected image/gif, got %q", got)
	}
	if got := resolveMimeType("image/png", "cat.gif"); got != "image/png" {
		t.Fatalf("declared type should win, got %q", got)
	}
}
