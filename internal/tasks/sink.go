package tasks

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/dustin/go-humanize"
)

// Artifact is a produced (or previously produced) audio file.
type Artifact struct {
	Track models.Track
	Key   string
	Path  string
}

// Name returns the artifact's filename.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Sink receives each artifact as soon as it is flushed to disk.
type Sink interface {
	Deliver(ctx context.Context, a Artifact) error
}

// SkipHandler is implemented by sinks that also want artifacts of skipped tracks.
type SkipHandler interface {
	Skipped(ctx context.Context, a Artifact) error
}

// DiskSink leaves artifacts in the download directory and logs them.
type DiskSink struct {
	logger *log.Logger
}

// NewDiskSink creates a DiskSink.
func NewDiskSink(logger *log.Logger) *DiskSink {
	return &DiskSink{logger: logger}
}

func (s *DiskSink) Deliver(ctx context.Context, a Artifact) error {
	info, err := os.Stat(a.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", a.Path, err)
	}
	s.logger.Info("Downloaded", "track", a.Key, "path", a.Path, "size", humanize.Bytes(uint64(info.Size())))
	return nil
}

// ArchiveSink streams artifacts into a zip archive written to w.
//
// Entries are deflated at [flate.BestCompression]. The archive is only complete after
// [ArchiveSink.Close]. Once an entry fails mid-write the sink is broken: later deliveries
// and Close return that error, so a truncated entry is never sealed into a valid archive.
type ArchiveSink struct {
	mu      sync.Mutex
	zw      *zip.Writer
	entries []string
	names   map[string]struct{}
	broken  error
}

// NewArchiveSink creates an ArchiveSink writing to w.
func NewArchiveSink(w io.Writer) *ArchiveSink {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &ArchiveSink{zw: zw, names: make(map[string]struct{})}
}

// Deliver appends the artifact under its filename and flushes the entry to w.
func (s *ArchiveSink) Deliver(ctx context.Context, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return s.broken
	}
	name := a.Name()
	if _, dup := s.names[name]; dup {
		return nil
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", a.Path, err)
	}

	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: info.ModTime()}
	entry, err := s.zw.CreateHeader(header)
	if err != nil {
		s.broken = fmt.Errorf("archive entry %s: %w", name, err)
		return s.broken
	}
	if _, err := io.Copy(entry, f); err != nil {
		s.broken = fmt.Errorf("archive write %s: %w", name, err)
		return s.broken
	}
	if err := s.zw.Flush(); err != nil {
		s.broken = fmt.Errorf("archive flush %s: %w", name, err)
		return s.broken
	}

	s.names[name] = struct{}{}
	s.entries = append(s.entries, name)
	return nil
}

// Skipped appends the artifact of a skipped track when it is still on disk.
func (s *ArchiveSink) Skipped(ctx context.Context, a Artifact) error {
	if _, err := os.Stat(a.Path); err != nil {
		return nil
	}
	return s.Deliver(ctx, a)
}

// Entries returns the names appended so far.
func (s *ArchiveSink) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Close writes the central directory. The underlying writer is not closed.
func (s *ArchiveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return s.broken
	}
	return s.zw.Close()
}
