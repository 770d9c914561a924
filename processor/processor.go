// Package processor writes the canonical metadata of a track into its file.
package processor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/streambinder/spotiseek/entity"
)

var ErrUnsupported = errors.New("unsupported container")

type Tags struct {
	Album       string
	Title       string
	TrackNumber int
	Artists     []string
}

// TagsOf returns the tags describing track
func TagsOf(track *entity.Track) Tags {
	return Tags{
		Album:       track.Album,
		Title:       track.Title,
		TrackNumber: track.Number,
		Artists:     track.Artists,
	}
}

// Editor writes tags into mp3 and flac files, picking the container from the
// file extension.
type Editor struct{}

func (Editor) WriteTags(path string, tags Tags) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return writeID3(path, tags)
	case ".flac":
		return writeVorbis(path, tags)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, strings.TrimPrefix(ext, "."))
	}
}

func writeID3(path string, tags Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(tags.Title)
	tag.SetArtist(strings.Join(tags.Artists, "; "))
	tag.SetAlbum(tags.Album)
	if tags.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"),
			tag.DefaultEncoding(), strconv.Itoa(tags.TrackNumber))
	}
	return tag.Save()
}

func writeVorbis(path string, tags Tags) error {
	file, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	var (
		comment = flacvorbis.New()
		meta    []*flac.MetaDataBlock
	)
	for _, block := range file.Meta {
		if block.Type != flac.VorbisComment {
			meta = append(meta, block)
			continue
		}
		// fields this editor does not own survive the rewrite
		if existing, err := flacvorbis.ParseFromMetaDataBlock(*block); err == nil {
			comment.Vendor = existing.Vendor
			for _, field := range existing.Comments {
				if !owned(field) {
					comment.Comments = append(comment.Comments, field)
				}
			}
		}
	}

	fields := [][2]string{
		{flacvorbis.FIELD_TITLE, tags.Title},
		{flacvorbis.FIELD_ALBUM, tags.Album},
	}
	for _, artist := range tags.Artists {
		fields = append(fields, [2]string{flacvorbis.FIELD_ARTIST, artist})
	}
	if tags.TrackNumber > 0 {
		fields = append(fields, [2]string{flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(tags.TrackNumber)})
	}
	for _, field := range fields {
		if len(field[1]) == 0 {
			continue
		}
		if err := comment.Add(field[0], field[1]); err != nil {
			return err
		}
	}

	block := comment.Marshal()
	file.Meta = append(meta, &block)
	return file.Save(path)
}

func owned(field string) bool {
	key, _, _ := strings.Cut(field, "=")
	switch strings.ToUpper(key) {
	case flacvorbis.FIELD_TITLE, flacvorbis.FIELD_ALBUM,
		flacvorbis.FIELD_ARTIST, flacvorbis.FIELD_TRACKNUMBER:
		return true
	}
	return false
}
