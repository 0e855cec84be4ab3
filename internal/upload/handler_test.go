package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type uploadResponse struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
	Error    string `json:"error"`
}

// buildMultipart writes one part named field. An empty contentType leaves the
// writer's default.
func buildMultipart(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return body, writer.FormDataContentType()
}

func serveUpload(t *testing.T, store *Store, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, uploadResponse) {
	t.Helper()
	handler := chimw.RequestSize(store.MaxBytes())(http.HandlerFunc(NewHandler(store).Upload))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestUploadAcceptsSmallJPEG(t *testing.T) {
	store := newTestStore(t)
	body, ct := buildMultipart(t, "file", "cat.jpg", "", bytes.Repeat([]byte("j"), 10*1024))

	rec, resp := serveUpload(t, store, body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp.FileType != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", resp.FileType)
	}
	if !strings.HasPrefix(resp.FileURL, DefaultPublicPrefix+"/") || !strings.HasSuffix(resp.FileURL, "_cat.jpg") {
		t.Fatalf("unexpected url %q", resp.FileURL)
	}
	stored := strings.TrimPrefix(resp.FileURL, DefaultPublicPrefix+"/")
	if _, err := os.Stat(filepath.Join(store.Root(), stored)); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	// The returned URL must resolve through the file server.
	files := http.StripPrefix(DefaultPublicPrefix, NewHandler(store).Files())
	getRec := httptest.NewRecorder()
	files.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, resp.FileURL, nil))
	if getRec.Code != http.StatusOK || getRec.Body.Len() != 10*1024 {
		t.Fatalf("GET %s: status %d, %d bytes", resp.FileURL, getRec.Code, getRec.Body.Len())
	}
}

func TestFilesDoesNotListUploads(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Save("cat.png", "image/png", strings.NewReader("png")); err != nil {
		t.Fatal(err)
	}
	files := http.StripPrefix(DefaultPublicPrefix, NewHandler(store).Files())

	for _, path := range []string{DefaultPublicPrefix + "/", DefaultPublicPrefix + "//"} {
		rec := httptest.NewRecorder()
		files.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound || strings.Contains(rec.Body.String(), "cat.png") {
			t.Fatalf("GET %s: expected 404 without a listing, got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestUploadRejectsTextFile(t *testing.T) {
	body, ct := buildMultipart(t, "file", "notes.txt", "text/plain", []byte("hello"))

	rec, resp := serveUpload(t, newTestStore(t), body, ct)

	if rec.Code != http.StatusBadRequest || resp.Error != "Invalid file type" {
		t.Fatalf("expected 400 %q, got %d %q", "Invalid file type", rec.Code, resp.Error)
	}
}

func TestUploadRejectsOversizedPNG(t *testing.T) {
	body, ct := buildMultipart(t, "file", "huge.png", "image/png", bytes.Repeat([]byte("p"), 6<<20))

	rec, resp := serveUpload(t, newTestStore(t), body, ct)

	if rec.Code != http.StatusRequestEntityTooLarge || resp.Error != "File too large" {
		t.Fatalf("expected 413 %q, got %d %q", "File too large", rec.Code, resp.Error)
	}
}

func TestUploadRejectsMissingPart(t *testing.T) {
	body, ct := buildMultipart(t, "attachment", "cat.png", "image/png", []byte("png"))

	rec, resp := serveUpload(t, newTestStore(t), body, ct)

	if rec.Code != http.StatusBadRequest || resp.Error != "No file part" {
		t.Fatalf("expected 400 %q, got %d %q", "No file part", rec.Code, resp.Error)
	}
}

func TestUploadRejectsEmptyFilename(t *testing.T) {
	body, ct := buildMultipart(t, "file", "", "", nil)

	rec, resp := serveUpload(t, newTestStore(t), body, ct)

	if rec.Code != http.StatusBadRequest || resp.Error != "No selected file" {
		t.Fatalf("expected 400 %q, got %d %q", "No selected file", rec.Code, resp.Error)
	}
}

func TestUploadRejectsNonMultipartBody(t *testing.T) {
	rec, resp := serveUpload(t, newTestStore(t), bytes.NewBufferString("plain"), "text/plain")

	if rec.Code != http.StatusBadRequest || resp.Error != "No file part" {
		t.Fatalf("expected 400 %q, got %d %q", "No file part", rec.Code, resp.Error)
	}
}
