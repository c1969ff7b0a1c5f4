package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFFmpeg(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		f := NewFFmpeg("", 0)
		if f.Path != "ffmpeg" || f.BitrateKbps != 320 {
			t.Errorf("unexpected defaults: %+v", f)
		}
	})

	t.Run("Args", func(t *testing.T) {
		args := NewFFmpeg("ffmpeg", 320).Args("/tmp/out.mp3.part")
		joined := strings.Join(args, " ")

		for _, want := range []string{"-i pipe:0", "-vn", "-c:a libmp3lame", "-b:a 320k", "-f mp3"} {
			if !strings.Contains(joined, want) {
				t.Errorf("expected %q in args %v", want, args)
			}
		}
		if args[len(args)-1] != "/tmp/out.mp3.part" {
			t.Errorf("expected destination as last arg, got %v", args)
		}
	})

	t.Run("Transcode Pipes Stdin", func(t *testing.T) {
		bin := writeScript(t, "ffmpeg", `for last; do :; done; cat > "$last"`)
		dst := filepath.Join(t.TempDir(), "out.mp3")

		err := NewFFmpeg(bin, 320).Transcode(context.Background(), strings.NewReader("pcm"), dst)
		if err != nil {
			t.Fatalf("transcode failed: %v", err)
		}

		data, _ := os.ReadFile(dst)
		if string(data) != "pcm" {
			t.Errorf("expected stdin copied to output, got %q", data)
		}
	})

	t.Run("Transcode Failure Includes Stderr", func(t *testing.T) {
		bin := writeScript(t, "ffmpeg", `cat >/dev/null; echo "Invalid data found" >&2; exit 1`)
		err := NewFFmpeg(bin, 320).Transcode(context.Background(), strings.NewReader("x"), filepath.Join(t.TempDir(), "out.mp3"))
		if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
			t.Errorf("expected ffmpeg stderr in error, got %v", err)
		}
	})
}
