// yt-dlp backed [SearchProvider] and [MediaSource]
package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const defaultSearchLimit = 5

// YTDLPSearch implements [SearchProvider] with a flat "ytsearchN:" query.
type YTDLPSearch struct {
	binary string
	limit  int
}

// NewYTDLPSearch creates a search provider. An empty binary uses yt-dlp from PATH.
func NewYTDLPSearch(binary string, limit int) *YTDLPSearch {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return &YTDLPSearch{binary: binary, limit: limit}
}

// Search returns up to limit video URLs in yt-dlp's relevance order.
func (s *YTDLPSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	cmd := ytdlp.New().
		FlatPlaylist().
		Print("url")
	if s.binary != "" {
		cmd = cmd.SetExecutable(s.binary)
	}

	result, err := cmd.Run(ctx, fmt.Sprintf("ytsearch%d:%s", s.limit, query))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search %q: %w", query, err)
	}

	return parseSearchOutput(result.Stdout), nil
}

// parseSearchOutput reads one URL per line, ignoring blanks and anything that is not a URL.
func parseSearchOutput(stdout string) []SearchResult {
	var results []SearchResult
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		results = append(results, SearchResult{Locator: line})
	}
	return results
}

// YTDLPSource implements [MediaSource] by streaming "yt-dlp -f bestaudio -o -" stdout.
type YTDLPSource struct {
	binary string
}

// NewYTDLPSource creates a yt-dlp media source. An empty binary uses yt-dlp from PATH.
func NewYTDLPSource(binary string) *YTDLPSource {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPSource{binary: binary}
}

// Args returns the yt-dlp arguments used to stream locator.
func (s *YTDLPSource) Args(locator string) []string {
	return []string{
		"--quiet", "--no-warnings", "--no-playlist",
		"-f", "bestaudio",
		"-o", "-",
		locator,
	}
}

// Open starts yt-dlp and returns its stdout. A non-zero exit surfaces as the error of
// the final Read instead of io.EOF.
func (s *YTDLPSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.binary, s.Args(locator)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start yt-dlp: %w", err)
	}

	return &processReader{cmd: cmd, stdout: stdout, stderr: stderr, name: "yt-dlp"}, nil
}

// processReader adapts a running command's stdout to an [io.ReadCloser] that reports
// the command's exit status.
type processReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	name   string
	done   bool
	err    error
}

func (p *processReader) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (p *processReader) Close() error {
	if p.done {
		return nil
	}
	p.stdout.Close()
	_ = p.wait()
	return nil
}

func (p *processReader) wait() error {
	if p.done {
		return p.err
	}
	p.done = true
	if err := p.cmd.Wait(); err != nil {
		p.err = fmt.Errorf("%s: %w: %s", p.name, err, strings.TrimSpace(p.stderr.String()))
	}
	return p.err
}
