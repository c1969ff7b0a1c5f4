// Package ledger persists the set of track keys that already produced an artifact.
//
// [FileLedger] stores keys as a pretty-printed JSON array and rewrites the whole file on
// every [FileLedger.Record], so a crash loses at most the track in flight. Each rewrite
// happens under a file lock and merges what other processes wrote since the last one.
// [Memory] satisfies the same contract without touching disk.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/gofrs/flock"
)

// Ledger is the dedup set consulted and updated by the acquisition engine.
type Ledger interface {
	// Contains reports whether key has already been acquired.
	Contains(key string) bool
	// Record adds key and makes it durable before returning.
	Record(key string) error
	// Keys returns every recorded key in insertion order.
	Keys() []string
}

// FileLedger is a [Ledger] backed by a JSON file.
type FileLedger struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
	keys []string
	set  map[string]struct{}

	// changes since the last successful write
	added   map[string]struct{}
	removed map[string]struct{}
}

// Load reads the ledger at path. A missing file yields an empty ledger; a file that
// cannot be parsed fails with [shared.ErrCorruptLedger] and is left untouched.
func Load(path string) (*FileLedger, error) {
	l := &FileLedger{
		path:    path,
		lock:    flock.New(path + ".lock"),
		set:     make(map[string]struct{}),
		added:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}

	keys, err := readKeys(path)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		l.add(k)
	}
	return l, nil
}

// readKeys returns the keys stored at path, or nil when the file does not exist.
func readKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ledger %s: %v", shared.ErrFilesystem, path, err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptLedger, path, err)
	}
	return keys, nil
}

// Path returns the backing file path.
func (l *FileLedger) Path() string {
	return l.path
}

func (l *FileLedger) add(key string) bool {
	if _, ok := l.set[key]; ok {
		return false
	}
	l.set[key] = struct{}{}
	l.keys = append(l.keys, key)
	return true
}

// Contains reports whether key is in the ledger.
func (l *FileLedger) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.set[key]
	return ok
}

// Keys returns a copy of the recorded keys.
func (l *FileLedger) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// Record adds key and rewrites the ledger file.
//
// The key stays in memory even when the write fails, since the artifact exists; the
// error wraps [shared.ErrLedgerWrite] so the caller can surface it.
func (l *FileLedger) Record(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.add(key)
	l.added[key] = struct{}{}
	delete(l.removed, key)
	if err := l.persist(); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrLedgerWrite, key, err)
	}
	return nil
}

// Forget removes key and rewrites the ledger file. It reports whether key was present.
func (l *FileLedger) Forget(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.set[key]; !ok {
		return false, nil
	}
	delete(l.set, key)
	for i, k := range l.keys {
		if k == key {
			l.keys = append(l.keys[:i], l.keys[i+1:]...)
			break
		}
	}
	l.removed[key] = struct{}{}
	delete(l.added, key)

	if err := l.persist(); err != nil {
		return true, fmt.Errorf("%w: %s: %v", shared.ErrLedgerWrite, key, err)
	}
	return true, nil
}

// persist rewrites the ledger while holding the cross-process lock. The file is re-read
// first: its keys minus local removals, followed by local additions, become the new
// contents and the in-memory view. Callers hold l.mu.
func (l *FileLedger) persist() error {
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer l.lock.Unlock()

	onDisk, err := readKeys(l.path)
	if err != nil {
		return err
	}

	keys := []string{}
	set := make(map[string]struct{}, len(onDisk)+len(l.added))
	merge := func(k string) {
		if _, ok := set[k]; !ok {
			set[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, k := range onDisk {
		if _, gone := l.removed[k]; !gone {
			merge(k)
		}
	}
	for _, k := range l.keys {
		if _, ok := l.added[k]; ok {
			merge(k)
		}
	}

	data, err := encode(keys)
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}

	l.keys, l.set = keys, set
	clear(l.added)
	clear(l.removed)
	return nil
}

// encode renders keys as a two-space indented JSON array without HTML escaping.
func encode(keys []string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(keys); err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Memory is an in-process [Ledger] used for request-scoped runs.
type Memory struct {
	mu   sync.Mutex
	keys []string
	set  map[string]struct{}
}

// NewMemory returns a Memory ledger seeded with keys.
func NewMemory(keys ...string) *Memory {
	m := &Memory{set: make(map[string]struct{})}
	for _, k := range keys {
		if _, ok := m.set[k]; !ok {
			m.set[k] = struct{}{}
			m.keys = append(m.keys, k)
		}
	}
	return m
}

func (m *Memory) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.set[key]
	return ok
}

func (m *Memory) Record(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.set[key]; !ok {
		m.set[key] = struct{}{}
		m.keys = append(m.keys, key)
	}
	return nil
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
