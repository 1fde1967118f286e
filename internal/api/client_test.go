// internal/api/client_test.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/OCAP2/telestrator/internal/storage"
	"github.com/OCAP2/telestrator/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*Client)(nil)
	_ storage.Loader  = (*Client)(nil)
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "secret123")

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", "") // unlikely to be listening
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func testDocument() core.AnnotationDocument {
	return core.AnnotationDocument{Annotations: []core.VideoAnnotation{{
		ID:          "a1",
		Timestamp:   12.5,
		Tool:        core.ToolArrow,
		Points:      []core.Point{{X: 10, Y: 10}, {X: 50, Y: 10}},
		Color:       "#ff0000",
		StrokeWidth: 3,
		CreatedAt:   time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC),
	}}}
}

func TestUpdate_Success(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotType string
	var gotDoc core.AnnotationDocument

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotDoc); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL, "key")
	if err := c.Update(context.Background(), "match 1", testDocument()); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/api/v1/videos/match%201/annotations" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotType)
	}
	if len(gotDoc.Annotations) != 1 || gotDoc.Annotations[0].ID != "a1" {
		t.Errorf("unexpected document %+v", gotDoc)
	}
}

func TestUpdate_EmptyDocumentSendsEmptyList(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Update(context.Background(), "v1", core.AnnotationDocument{}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if string(body) != `{"annotations":[]}` {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestUpdate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(server.URL, "wrong")
	if err := c.Update(context.Background(), "v1", testDocument()); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestLoad_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(testDocument())
	}))
	defer server.Close()

	c := New(server.URL, "")
	got, err := c.Load(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || !got[0].CreatedAt.Equal(testDocument().Annotations[0].CreatedAt) {
		t.Errorf("unexpected annotations %+v", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := New(server.URL, "")
	got, err := c.Load(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestLoad_BadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{nope"))
	}))
	defer server.Close()

	c := New(server.URL, "")
	if _, err := c.Load(context.Background(), "v1"); err == nil {
		t.Error("expected decode error")
	}
}

func TestUploadSnapshot_Success(t *testing.T) {
	var receivedSecret, receivedFilename, receivedTimestamp, receivedVisible, receivedPath string
	var receivedFileContent []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}

		receivedSecret = r.FormValue("secret")
		receivedFilename = r.FormValue("filename")
		receivedTimestamp = r.FormValue("timestamp")
		receivedVisible = r.FormValue("visible")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		defer file.Close()
		receivedFileContent, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	testFile := t.TempDir() + "/frame.png"
	if err := os.WriteFile(testFile, []byte("png bytes"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	c := New(server.URL, "mysecret")
	err := c.UploadSnapshot(context.Background(), testFile, SnapshotMetadata{
		VideoID:   "v1",
		Timestamp: 1.2,
		Visible:   2,
	})
	if err != nil {
		t.Fatalf("UploadSnapshot failed: %v", err)
	}

	if receivedPath != "/api/v1/videos/v1/snapshots" {
		t.Errorf("unexpected path %s", receivedPath)
	}
	if receivedSecret != "mysecret" {
		t.Errorf("expected secret=mysecret, got %s", receivedSecret)
	}
	if receivedFilename != "frame.png" {
		t.Errorf("expected filename=frame.png, got %s", receivedFilename)
	}
	if receivedTimestamp != "1.200" {
		t.Errorf("expected timestamp=1.200, got %s", receivedTimestamp)
	}
	if receivedVisible != "2" {
		t.Errorf("expected visible=2, got %s", receivedVisible)
	}
	if string(receivedFileContent) != "png bytes" {
		t.Errorf("expected file content 'png bytes', got '%s'", receivedFileContent)
	}
}

func TestUploadSnapshot_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	if err := c.UploadSnapshot(context.Background(), "/nonexistent/frame.png", SnapshotMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}
