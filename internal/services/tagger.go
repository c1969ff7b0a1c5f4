package services

import (
	"fmt"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/tunepull/internal/models"
)

// ID3Tagger implements [Tagger] by writing TIT2/TPE1 frames.
type ID3Tagger struct{}

// NewID3Tagger creates an ID3 tagger.
func NewID3Tagger() *ID3Tagger {
	return &ID3Tagger{}
}

// Tag sets the title and artist frames of the MP3 at path, keeping any other frames.
func (ID3Tagger) Tag(path string, track models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artist)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags %s: %w", path, err)
	}
	return nil
}
