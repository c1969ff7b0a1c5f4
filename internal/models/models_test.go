package models

import (
	"errors"
	"strings"
	"testing"
)

func TestTrack(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		tests := []struct {
			track Track
			want  string
		}{
			{Track{Title: "Song A", Artist: "Artist1"}, "Artist1 - Song A"},
			{Track{Title: "Song", Artist: "A B"}, "A B - Song"},
			{Track{Title: "", Artist: ""}, " - "},
		}

		for _, tt := range tests {
			if got := tt.track.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		}
	})

	t.Run("Query", func(t *testing.T) {
		track := Track{Title: "Song A", Artist: "Artist1"}
		if got := track.Query(); got != "Song A Artist1" {
			t.Errorf("Query() = %q, want %q", got, "Song A Artist1")
		}
	})

	t.Run("Filename uses key as stem", func(t *testing.T) {
		track := Track{Title: "Song A", Artist: "Artist1"}
		if got := track.Filename(); got != "Artist1 - Song A.mp3" {
			t.Errorf("Filename() = %q", got)
		}
	})
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"slash colon question", "Artist/Name: Song?", "Artist-Name- Song-"},
		{"all reserved", `/\?%*:|"<>`, "----------"},
		{"trims whitespace", "  Song  ", "Song"},
		{"untouched", "Artist1 - Song A", "Artist1 - Song A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.ContainsAny(got, `/\?%*:|"<>`) {
				t.Errorf("Sanitize(%q) kept reserved characters: %q", tt.input, got)
			}
		})
	}
}

func TestRunResult(t *testing.T) {
	result := &RunResult{}
	result.Add(Outcome{Key: "a", Status: StatusFetched})
	result.Add(Outcome{Key: "b", Status: StatusNoMatch})
	result.Add(Outcome{Key: "c", Status: StatusFailed, Err: errors.New("boom")})
	result.Add(Outcome{Key: "d", Status: StatusFetched})

	if got := result.Count(StatusFetched); got != 2 {
		t.Errorf("expected 2 fetched, got %d", got)
	}

	counts := result.Counts()
	if counts[StatusSkipped] != 0 || counts[StatusNoMatch] != 1 || counts[StatusFailed] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	fetched := result.Fetched()
	if len(fetched) != 2 || fetched[0].Key != "a" || fetched[1].Key != "d" {
		t.Errorf("unexpected fetched outcomes: %+v", fetched)
	}

	if result.Outcomes[2].Error() != "boom" || result.Outcomes[0].Error() != "" {
		t.Error("unexpected Outcome.Error values")
	}
}
