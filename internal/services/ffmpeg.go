package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultBitrateKbps is the constant output bitrate of every artifact.
const DefaultBitrateKbps = 320

// FFmpeg implements [Transcoder] by piping the source into ffmpeg's stdin.
type FFmpeg struct {
	Path        string
	BitrateKbps int
}

// NewFFmpeg creates an ffmpeg transcoder. Zero values fall back to "ffmpeg" and 320 kbit/s.
func NewFFmpeg(path string, bitrateKbps int) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return &FFmpeg{Path: path, BitrateKbps: bitrateKbps}
}

// Args returns the ffmpeg arguments that encode stdin to dst. The muxer is forced to mp3
// so dst may carry a temporary extension.
func (f *FFmpeg) Args(dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", strconv.Itoa(f.BitrateKbps) + "k",
		"-f", "mp3",
		dst,
	}
}

// Transcode runs ffmpeg until r is drained and dst is written.
func (f *FFmpeg) Transcode(ctx context.Context, r io.Reader, dst string) error {
	cmd := exec.CommandContext(ctx, f.Path, f.Args(dst)...)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}
