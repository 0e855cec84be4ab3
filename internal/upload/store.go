package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultMaxBytes     = 5 << 20
	DefaultPublicPrefix = "/static/uploads"
)

// DefaultExtensions are the image types accepted unless configured otherwise.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif"}

var (
	ErrNoFile         = errors.New("no file part")
	ErrEmptyFilename  = errors.New("no selected file")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrTooLarge       = errors.New("file too large")
)

var userMessages = map[error]string{
	ErrNoFile:         "No file part",
	ErrEmptyFilename:  "No selected file",
	ErrTypeNotAllowed: "Invalid file type",
	ErrTooLarge:       "File too large",
}

// Message returns the text shown to the uploader for err.
func Message(err error) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Upload failed"
}

// Stored describes an accepted upload.
type Stored struct {
	Name     string `json:"-"`
	URL      string `json:"fileUrl"`
	MimeType string `json:"fileType"`
}

type Options struct {
	Root       string
	Extensions []string
	MaxBytes   int64
	// PublicURL is prepended to stored names; defaults to DefaultPublicPrefix.
	// It may be an absolute URL when files are served from another host.
	PublicURL string
}

// Store writes accepted files under a fixed root directory.
type Store struct {
	root      string
	allowed   map[string]struct{}
	maxBytes  int64
	publicURL string
	now       func() time.Time
}

// NewStore creates the root directory if needed.
func NewStore(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, errors.New("upload root is required")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))] = struct{}{}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.PublicURL == "" {
		opts.PublicURL = DefaultPublicPrefix
	}
	return &Store{
		root:      opts.Root,
		allowed:   allowed,
		maxBytes:  opts.MaxBytes,
		publicURL: strings.TrimSuffix(opts.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

func (s *Store) Root() string { return s.root }

// RoutePath is the local path the stored files are served under: the path of
// publicURL, or DefaultPublicPrefix when it has none.
func RoutePath(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return DefaultPublicPrefix
	}
	p := strings.TrimSuffix(u.Path, "/")
	if !strings.HasPrefix(p, "/") {
		return DefaultPublicPrefix
	}
	return p
}

func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether name carries an accepted extension.
func (s *Store) Allowed(name string) bool {
	_, ok := s.allowed[extension(name)]
	return ok
}

// Save validates and persists one file. A nil reader means the request had no
// file part at all.
func (s *Store) Save(name, mimeType string, r io.Reader) (Stored, error) {
	if r == nil {
		return Stored{}, ErrNoFile
	}
	if name == "" {
		return Stored{}, ErrEmptyFilename
	}
	if !s.Allowed(name) {
		return Stored{}, ErrTypeNotAllowed
	}

	now := s.now()
	stored := SecureFilename(fmt.Sprintf("%d.%06d_%s", now.Unix(), now.Nanosecond()/1e3, name))
	path := filepath.Join(s.root, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create %s: %w", stored, err)
	}
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return Stored{}, err
		}
		return Stored{}, fmt.Errorf("write %s: %w", stored, err)
	}

	slog.Info("file uploaded", "file", stored, "bytes", written)
	return Stored{
		Name:     stored,
		URL:      s.publicURL + "/" + stored,
		MimeType: resolveMimeType(mimeType, name),
	}, nil
}

// resolveMimeType keeps the client's declared type unless it says nothing
// useful, then falls back to the extension table.
func resolveMimeType(declared, name string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension("." + extension(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
