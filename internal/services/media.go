// YouTube [MediaSource] backed by github.com/kkdai/youtube
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTubeSource implements [MediaSource] by streaming the best audio-only format.
type YouTubeSource struct {
	client *youtube.Client
}

// NewYouTubeSource creates a YouTube media source. A nil client uses [http.DefaultClient].
func NewYouTubeSource(httpClient *http.Client) *YouTubeSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeSource{client: &youtube.Client{HTTPClient: httpClient}}
}

// Open resolves locator and returns the stream of its highest bitrate audio-only format.
func (s *YouTubeSource) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	video, err := s.client.GetVideoContext(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("youtube video %s: %w", locator, err)
	}

	format, err := bestAudioFormat(video.Formats)
	if err != nil {
		return nil, fmt.Errorf("youtube video %s: %w", video.ID, err)
	}

	stream, _, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("youtube stream %s (itag %d): %w", video.ID, format.ItagNo, err)
	}
	return stream, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		if !strings.HasPrefix(f.MimeType, "audio/") && f.MimeType != "" {
			continue
		}
		if best == nil || audioBitrate(f) > audioBitrate(best) {
			best = f
		}
	}
	if best == nil {
		return nil, errors.New("no audio-only formats available")
	}
	return best, nil
}

func audioBitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}
