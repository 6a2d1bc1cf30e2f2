package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type fakeFileStore struct {
	files map[string][]byte
	err   error
}

type fakeFileNotFound struct{}

func (fakeFileNotFound) Error() string { return "file not found" }
func (fakeFileNotFound) NotFound()     {}

func fileKey(share, path string) string { return share + "/" + path }

func (f *fakeFileStore) ListFiles(ctx context.Context, share string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	names := []string{}
	for k := range f.files {
		rel := strings.TrimPrefix(k, share+"/")
		if rel != k && !strings.Contains(rel, "/") {
			names = append(names, rel)
		}
	}
	return names, nil
}

func (f *fakeFileStore) UploadFile(ctx context.Context, share, path string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.files[fileKey(share, path)] = data
	return nil
}

func (f *fakeFileStore) DownloadFile(ctx context.Context, share, path string) (io.ReadCloser, error) {
	data, ok := f.files[fileKey(share, path)]
	if !ok {
		return nil, fakeFileNotFound{}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) DeleteFile(ctx context.Context, share, path string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.files, fileKey(share, path))
	return nil
}

func newFileServer(files FileStore) *echo.Echo {
	e := echo.New()
	Register(e, "orderqueue", newFakeQueueStore(), &fakeTableStore{}, &fakeBlobStore{blobs: map[string][]byte{}}, files, log.New())
	return e
}

func TestUploadAndDownloadFile(t *testing.T) {
	ff := &fakeFileStore{files: map[string][]byte{}}
	e := newFileServer(ff)

	req := httptest.NewRequest(http.MethodPost, "/api/files/docs/path/reports/q1.txt", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp fileUploadedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.OK || resp.Name != "reports/q1.txt" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if string(ff.files["docs/reports/q1.txt"]) != "hello" {
		t.Fatalf("file not stored: %#v", ff.files)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/docs/path/reports/q1.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestDownloadFileNotFound(t *testing.T) {
	e := newFileServer(&fakeFileStore{files: map[string][]byte{}})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/docs/path/missing.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListFilesRootOnly(t *testing.T) {
	ff := &fakeFileStore{files: map[string][]byte{
		"docs/a.txt":        []byte("a"),
		"docs/nested/b.txt": []byte("b"),
		"other/ignored.txt": []byte("c"),
	}}
	e := newFileServer(ff)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/docs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil || len(names) != 1 || names[0] != "a.txt" {
		t.Fatalf("unexpected list %s", rec.Body.String())
	}
}

func TestDeleteFile(t *testing.T) {
	ff := &fakeFileStore{files: map[string][]byte{"docs/a.txt": []byte("a")}}
	e := newFileServer(ff)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/files/docs/path/a.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(ff.files) != 0 {
		t.Fatal("file should be gone")
	}
}
