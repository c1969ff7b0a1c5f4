package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/desertthunder/tunepull/internal/tasks"
	tu "github.com/desertthunder/tunepull/internal/testing"
)

var discard = shared.NewLogger(io.Discard)

func newTestEngine(t *testing.T, dir string) *tasks.Engine {
	t.Helper()
	provider := &tu.MockMetadataProvider{Tracks: map[string][]models.Track{
		"ABC123": {
			{Title: "Song A", Artist: "Artist1"},
			{Title: "Song B", Artist: "Artist2"},
		},
		"EMPTY": {},
	}}
	search := &tu.MockSearchProvider{Results: map[string][]services.SearchResult{
		"Song A Artist1": {{Locator: "https://yt/a"}},
	}}
	source := &tu.MockMediaSource{Data: map[string]string{"https://yt/a": "mp3-a"}}
	return tasks.NewEngine(
		tasks.NewResolver(provider, discard),
		tasks.NewLocator(search, discard),
		tasks.NewFetcher(dir, source, &tu.MockTranscoder{}, nil, discard),
		discard,
	)
}

func postDownload(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body["error"]
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("response is not a zip archive: %v", err)
	}
	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		entries[f.Name] = string(b)
	}
	return entries
}

func TestDownloadHandler(t *testing.T) {
	t.Run("Missing URL", func(t *testing.T) {
		srv := New(shared.ServerConfig{}, newTestEngine(t, t.TempDir()), nil, 0, discard)

		for _, body := range []string{`{}`, `{"playlistUrl": "  "}`, ``, `not json`} {
			rec := postDownload(t, srv, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %q: expected 400, got %d", body, rec.Code)
			}
			if msg := decodeError(t, rec); msg != "Playlist URL is required" {
				t.Errorf("unexpected error message: %q", msg)
			}
		}
	})

	t.Run("Invalid Playlist", func(t *testing.T) {
		srv := New(shared.ServerConfig{}, newTestEngine(t, t.TempDir()), nil, 0, discard)

		rec := postDownload(t, srv, `{"playlistUrl": "https://example.com/album/1"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "Failed to process the playlist." {
			t.Errorf("unexpected error message: %q", msg)
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		srv := New(shared.ServerConfig{}, newTestEngine(t, t.TempDir()), nil, 0, discard)

		rec := postDownload(t, srv, `{"playlistUrl": "https://open.example/playlist/EMPTY"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON error, got content type %q", ct)
		}
		if msg := decodeError(t, rec); msg != "No tracks found in the playlist." {
			t.Errorf("unexpected error message: %q", msg)
		}
	})

	t.Run("Streams Archive", func(t *testing.T) {
		dir := t.TempDir()
		srv := New(shared.ServerConfig{}, newTestEngine(t, dir), nil, 0, discard)

		rec := postDownload(t, srv, `{"playlistUrl": "https://open.example/playlist/ABC123"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
			t.Errorf("expected application/zip, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="playlist.zip"` {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}

		entries := zipEntries(t, rec.Body.Bytes())
		if len(entries) != 1 || entries["Artist1 - Song A.mp3"] != "mp3-a" {
			t.Errorf("unexpected archive entries: %v", entries)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "Artist1 - Song A.mp3"))
	})

	t.Run("Requests Do Not Share In-Memory Ledger", func(t *testing.T) {
		srv := New(shared.ServerConfig{}, newTestEngine(t, t.TempDir()), nil, 0, discard)

		for i := range 2 {
			rec := postDownload(t, srv, `{"playlistUrl": "https://open.example/playlist/ABC123"}`)
			if entries := zipEntries(t, rec.Body.Bytes()); len(entries) != 1 {
				t.Errorf("request %d: expected 1 entry, got %v", i+1, entries)
			}
		}
	})

	t.Run("Persisted Ledger Appends Skipped Artifacts", func(t *testing.T) {
		dir := t.TempDir()
		fl, err := ledger.Load(filepath.Join(t.TempDir(), "downloaded_songs.json"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		srv := New(shared.ServerConfig{PersistLedger: true}, newTestEngine(t, dir), fl, 0, discard)

		postDownload(t, srv, `{"playlistUrl": "https://open.example/playlist/ABC123"}`)
		if !fl.Contains("Artist1 - Song A") {
			t.Fatal("expected fetched key in persisted ledger")
		}

		rec := postDownload(t, srv, `{"playlistUrl": "https://open.example/playlist/ABC123"}`)
		entries := zipEntries(t, rec.Body.Bytes())
		if entries["Artist1 - Song A.mp3"] != "mp3-a" {
			t.Errorf("expected skipped artifact in archive, got %v", entries)
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		cfg := shared.ServerConfig{RateLimit: 0.000001, Burst: 1}
		srv := New(cfg, newTestEngine(t, t.TempDir()), nil, 0, discard)

		if rec := postDownload(t, srv, `{}`); rec.Code != http.StatusBadRequest {
			t.Fatalf("first request: expected 400, got %d", rec.Code)
		}
		rec := postDownload(t, srv, `{}`)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
	})
}

func TestFilesHandler(t *testing.T) {
	t.Run("Missing Directory", func(t *testing.T) {
		h := NewFilesHandler(filepath.Join(t.TempDir(), "downloads"), discard)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "No downloaded files found." {
			t.Errorf("unexpected error message: %q", msg)
		}
	})

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b.mp3"), []byte("bbb"), 0644)
	os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("aaa"), 0644)
	os.WriteFile(filepath.Join(dir, "c.mp3.123.part"), []byte("in progress"), 0644)
	os.Mkdir(filepath.Join(dir, "nested"), 0755)
	os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.txt"), []byte("secret"), 0644)

	srv := New(shared.ServerConfig{}, newTestEngine(t, dir), nil, 0, discard)

	t.Run("List", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Files []string `json:"files"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(body.Files) != 2 || body.Files[0] != "a.mp3" || body.Files[1] != "b.mp3" {
			t.Errorf("unexpected files: %v", body.Files)
		}
	})

	t.Run("Download", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/a.mp3", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "aaa" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="a.mp3"`) {
			t.Errorf("expected attachment disposition, got %q", cd)
		}
	})

	tests := []struct {
		name string
		path string
	}{
		{"Unknown File", "/files/missing.mp3"},
		{"Directory", "/files/nested"},
		{"Encoded Traversal", "/files/..%2Fsecret.txt"},
		{"Dot Dot Name", "/files/a..mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code == http.StatusOK {
				t.Fatalf("expected failure status, got 200 %q", rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "secret") {
				t.Error("served a file outside the download directory")
			}
		})
	}
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Artist1 - Song A.mp3", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../secret.txt", false},
		{`..\secret.txt`, false},
		{"nested/a.mp3", false},
	}
	for _, tt := range tests {
		if got := validFilename(tt.name); got != tt.want {
			t.Errorf("validFilename(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStaticAndRouting(t *testing.T) {
	t.Run("Serves Public Directory", func(t *testing.T) {
		public := t.TempDir()
		os.WriteFile(filepath.Join(public, "index.html"), []byte("<h1>tunepull</h1>"), 0644)
		srv := New(shared.ServerConfig{PublicDir: public}, newTestEngine(t, t.TempDir()), nil, 0, discard)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tunepull") {
			t.Errorf("expected index page, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("Missing Public Directory", func(t *testing.T) {
		if StaticHandler(filepath.Join(t.TempDir(), "public")) != nil {
			t.Error("expected nil handler for missing directory")
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected HEAD to be allowed on GET route, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		h := Recover(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}
