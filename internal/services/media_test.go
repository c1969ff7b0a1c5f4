package services

import (
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestBestAudioFormat(t *testing.T) {
	t.Run("Picks Highest Bitrate Audio Only", func(t *testing.T) {
		formats := youtube.FormatList{
			{ItagNo: 18, MimeType: "video/mp4", AudioChannels: 2, Width: 640, Height: 360, Bitrate: 500000},
			{ItagNo: 140, MimeType: "audio/mp4", AudioChannels: 2, Bitrate: 130000, AverageBitrate: 129000},
			{ItagNo: 251, MimeType: "audio/webm", AudioChannels: 2, Bitrate: 160000, AverageBitrate: 150000},
			{ItagNo: 137, MimeType: "video/mp4", Width: 1920, Height: 1080, Bitrate: 4000000},
		}

		best, err := bestAudioFormat(formats)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if best.ItagNo != 251 {
			t.Errorf("expected itag 251, got %d", best.ItagNo)
		}
	})

	t.Run("No Audio Formats", func(t *testing.T) {
		formats := youtube.FormatList{
			{ItagNo: 137, MimeType: "video/mp4", Width: 1920, Height: 1080},
		}
		if _, err := bestAudioFormat(formats); err == nil {
			t.Error("expected error when no audio-only format exists")
		}
	})
}
