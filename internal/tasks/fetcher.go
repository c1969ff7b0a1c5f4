package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
	"golang.org/x/sync/errgroup"
)

const partExt = ".part"

// FetchError is the single failure reported for a fetch-transcode attempt.
type FetchError struct {
	Key     string
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%v: %s (%s): %v", shared.ErrFetchTranscode, e.Key, e.Locator, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{shared.ErrFetchTranscode, e.Err}
}

// Fetcher streams a source through the transcoder into the download directory.
type Fetcher struct {
	dir        string
	source     services.MediaSource
	transcoder services.Transcoder
	tagger     services.Tagger
	logger     *log.Logger

	mu      sync.Mutex
	created bool
	claims  map[string]string // filename -> track key
}

// NewFetcher creates a Fetcher writing into dir. tagger may be nil.
func NewFetcher(dir string, source services.MediaSource, transcoder services.Transcoder, tagger services.Tagger, logger *log.Logger) *Fetcher {
	return &Fetcher{
		dir:        dir,
		source:     source,
		transcoder: transcoder,
		tagger:     tagger,
		logger:     logger,
		claims:     make(map[string]string),
	}
}

// Dir returns the download directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// EnsureOutputDirectory creates the download directory once.
func (f *Fetcher) EnsureOutputDirectory() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created {
		return nil
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", shared.ErrFilesystem, f.dir, err)
	}
	f.created = true
	return nil
}

// Claim reserves the default filenames of keys, in order. Used to seed the collision
// table with keys acquired by earlier runs.
func (f *Fetcher) Claim(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		name := models.Filename(k)
		if _, ok := f.claims[name]; !ok {
			f.claims[name] = k
		}
	}
}

// OutputPath returns the artifact path for key, claiming it. When a different key
// already holds the sanitized name, a " (n)" suffix is appended.
func (f *Fetcher) OutputPath(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := models.Filename(key)
	stem := strings.TrimSuffix(base, models.AudioExt)
	name := base
	for n := 2; ; n++ {
		owner, taken := f.claims[name]
		if !taken || owner == key {
			break
		}
		name = fmt.Sprintf("%s (%d)%s", stem, n, models.AudioExt)
	}
	f.claims[name] = key
	return filepath.Join(f.dir, name)
}

// PathFor returns the path key was or would be written to, without claiming.
func (f *Fetcher) PathFor(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, owner := range f.claims {
		if owner == key {
			return filepath.Join(f.dir, name)
		}
	}
	return filepath.Join(f.dir, models.Filename(key))
}

// FetchAndTranscode streams locator through the transcoder into the track's artifact.
//
// The source and transcode stages run concurrently, joined by a pipe; either failing
// yields a [*FetchError]. The returned path exists and is flushed to disk.
func (f *Fetcher) FetchAndTranscode(ctx context.Context, locator string, track models.Track) (string, error) {
	key := track.Key()
	if err := f.EnsureOutputDirectory(); err != nil {
		return "", &FetchError{Key: key, Locator: locator, Err: err}
	}

	path := f.OutputPath(key)
	part, err := tempPart(path)
	if err != nil {
		return "", &FetchError{Key: key, Locator: locator, Err: err}
	}

	if err := f.stream(ctx, locator, part); err != nil {
		os.Remove(part)
		return "", &FetchError{Key: key, Locator: locator, Err: err}
	}

	if f.tagger != nil {
		if err := f.tagger.Tag(part, track); err != nil {
			f.logger.Warn("failed to tag artifact", "track", key, "error", err)
		}
	}

	if err := finalize(part, path); err != nil {
		os.Remove(part)
		return "", &FetchError{Key: key, Locator: locator, Err: err}
	}
	return path, nil
}

func (f *Fetcher) stream(ctx context.Context, locator, dst string) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		src, err := f.source.Open(gctx, locator)
		if err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("open source: %w", err)
		}
		defer src.Close()

		if _, err := io.Copy(pw, src); err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("source stream: %w", err)
		}
		return pw.Close()
	})

	g.Go(func() error {
		err := f.transcoder.Transcode(gctx, pr, dst)
		if err != nil {
			pr.CloseWithError(err)
			return fmt.Errorf("transcode: %w", err)
		}
		pr.Close()
		return nil
	})

	return g.Wait()
}

// tempPart reserves a unique "<name>.*.part" file beside path, so concurrent attempts
// for the same track never share a temp file.
func tempPart(path string) (string, error) {
	fh, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+partExt)
	if err != nil {
		return "", fmt.Errorf("%w: create temp file for %s: %v", shared.ErrFilesystem, path, err)
	}
	name := fh.Name()
	if err := fh.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("%w: close %s: %v", shared.ErrFilesystem, name, err)
	}
	return name, nil
}

// finalize fsyncs part and renames it to path.
func finalize(part, path string) error {
	fh, err := os.OpenFile(part, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", shared.ErrFilesystem, part, err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return fmt.Errorf("%w: sync %s: %v", shared.ErrFilesystem, part, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", shared.ErrFilesystem, part, err)
	}
	if err := os.Rename(part, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", shared.ErrFilesystem, part, err)
	}
	return nil
}
