package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeScript writes an executable shell script standing in for an external tool.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestParseSearchOutput(t *testing.T) {
	stdout := "https://www.youtube.com/watch?v=abc\n\nWARNING: something\n  https://www.youtube.com/watch?v=def  \n"
	results := parseSearchOutput(stdout)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].Locator != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("unexpected first locator: %s", results[0].Locator)
	}
	if results[1].Locator != "https://www.youtube.com/watch?v=def" {
		t.Errorf("unexpected second locator: %s", results[1].Locator)
	}

	if got := parseSearchOutput(""); len(got) != 0 {
		t.Errorf("expected no results for empty output, got %v", got)
	}
}

func TestNewYTDLPSearch(t *testing.T) {
	if s := NewYTDLPSearch("", 0); s.limit != defaultSearchLimit {
		t.Errorf("expected default limit, got %d", s.limit)
	}
}

func TestYTDLPSource(t *testing.T) {
	t.Run("Args", func(t *testing.T) {
		args := NewYTDLPSource("").Args("https://www.youtube.com/watch?v=abc")
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-f bestaudio") || !strings.Contains(joined, "-o -") {
			t.Errorf("unexpected args: %v", args)
		}
		if args[len(args)-1] != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("expected locator as last arg, got %v", args)
		}
	})

	t.Run("Streams Stdout", func(t *testing.T) {
		bin := writeScript(t, "yt-dlp", `printf 'audio-bytes'`)
		rc, err := NewYTDLPSource(bin).Open(context.Background(), "https://www.youtube.com/watch?v=abc")
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(data) != "audio-bytes" {
			t.Errorf("expected audio-bytes, got %q", data)
		}
	})

	t.Run("Exit Status Surfaces On Read", func(t *testing.T) {
		bin := writeScript(t, "yt-dlp", `echo "ERROR: Video unavailable" >&2; exit 1`)
		rc, err := NewYTDLPSource(bin).Open(context.Background(), "https://www.youtube.com/watch?v=gone")
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer rc.Close()

		_, err = io.ReadAll(rc)
		if err == nil {
			t.Fatal("expected read error from failed yt-dlp")
		}
		if !strings.Contains(err.Error(), "Video unavailable") {
			t.Errorf("expected stderr in error, got %v", err)
		}
	})

	t.Run("Missing Binary", func(t *testing.T) {
		_, err := NewYTDLPSource(filepath.Join(t.TempDir(), "missing")).Open(context.Background(), "x")
		if err == nil {
			t.Error("expected error for missing binary")
		}
	})
}
