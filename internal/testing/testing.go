// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
)

// MockMetadataProvider is a test double for [services.MetadataProvider]
type MockMetadataProvider struct {
	mu        sync.Mutex
	Tracks    map[string][]models.Track
	AuthErr   error
	FetchErr  error
	AuthCalls int
	Fetched   []string
}

func (m *MockMetadataProvider) Authenticate(ctx context.Context) (*services.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuthCalls++
	if m.AuthErr != nil {
		return nil, m.AuthErr
	}
	return &services.Credential{AccessToken: "mock_token", TokenType: "Bearer"}, nil
}

func (m *MockMetadataProvider) PlaylistTracks(ctx context.Context, cred *services.Credential, playlistID string) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched = append(m.Fetched, playlistID)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	tracks, ok := m.Tracks[playlistID]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	return tracks, nil
}

func (m *MockMetadataProvider) Name() string { return "mock" }

// Calls returns the number of authenticate and playlist calls made so far.
func (m *MockMetadataProvider) Calls() (auth, fetch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AuthCalls, len(m.Fetched)
}

// MockSearchProvider is a test double for [services.SearchProvider] keyed by query text.
type MockSearchProvider struct {
	mu      sync.Mutex
	Results map[string][]services.SearchResult
	Errs    map[string]error
	Queries []string
}

func (m *MockSearchProvider) Search(ctx context.Context, query string) ([]services.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if err := m.Errs[query]; err != nil {
		return nil, err
	}
	return m.Results[query], nil
}

// Calls returns the number of searches made so far.
func (m *MockSearchProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockMediaSource is a test double for [services.MediaSource] that serves fixed bytes per locator.
type MockMediaSource struct {
	mu      sync.Mutex
	Data    map[string]string
	OpenErr map[string]error
	ReadErr map[string]error
	Opened  []string
}

func (m *MockMediaSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opened = append(m.Opened, locator)
	if err := m.OpenErr[locator]; err != nil {
		return nil, err
	}
	var r io.Reader = strings.NewReader(m.Data[locator])
	if err := m.ReadErr[locator]; err != nil {
		r = io.MultiReader(r, &failingReader{err: err})
	}
	return io.NopCloser(r), nil
}

// Calls returns the number of streams opened so far.
func (m *MockMediaSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Opened)
}

type failingReader struct{ err error }

func (f *failingReader) Read(p []byte) (int, error) { return 0, f.err }

// MockTranscoder is a test double for [services.Transcoder] that copies its input to dst.
type MockTranscoder struct {
	Err error
}

func (m *MockTranscoder) Transcode(ctx context.Context, r io.Reader, dst string) error {
	if m.Err != nil {
		io.Copy(io.Discard, r)
		return m.Err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MockTagger is a test double for [services.Tagger]
type MockTagger struct {
	mu     sync.Mutex
	Err    error
	Tagged []string
}

func (m *MockTagger) Tag(path string, track models.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tagged = append(m.Tagged, path)
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
