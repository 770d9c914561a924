package library

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-flac/go-flac"
	"github.com/tcolgate/mp3"
)

// ReadEntry reads the embedded tags and the duration of the audio file at path.
// Files without tags yield an entry with blank metadata.
func ReadEntry(path string) (*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entry := &Entry{Path: path}
	metadata, err := tag.ReadFrom(file)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		return nil, err
	default:
		entry.Title = strings.TrimSpace(metadata.Title())
		entry.Album = strings.TrimSpace(metadata.Album())
		if entry.Artists = splitArtists(metadata.Artist()); len(entry.Artists) == 0 {
			entry.Artists = splitArtists(metadata.AlbumArtist())
		}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	// a file whose duration cannot be read still indexes
	entry.Duration, _ = readDuration(strings.ToLower(filepath.Ext(path)), file)
	return entry, nil
}

func splitArtists(value string) []string {
	var artists []string
	for _, artist := range strings.Split(value, ";") {
		if artist = strings.TrimSpace(artist); len(artist) > 0 {
			artists = append(artists, artist)
		}
	}
	return artists
}

// mp3Duration walks every frame and sums their durations, in seconds.
func mp3Duration(r io.Reader) (int, error) {
	var (
		decoder = mp3.NewDecoder(r)
		frame   mp3.Frame
		skipped int
		total   float64
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}
	return int(math.Round(total)), nil
}

// flacDuration reads total samples and sample rate out of STREAMINFO.
func flacDuration(r io.Reader) (int, error) {
	file, err := flac.ParseMetadata(r)
	if err != nil {
		return 0, err
	}
	for _, block := range file.Meta {
		if block.Type != flac.StreamInfo {
			continue
		}
		data := block.Data
		if len(data) < 18 {
			return 0, errors.New("short streaminfo block")
		}
		var (
			sampleRate = uint64(data[10])<<12 | uint64(data[11])<<4 | uint64(data[12])>>4
			samples    = uint64(data[13]&0x0f)<<32 | uint64(data[14])<<24 |
				uint64(data[15])<<16 | uint64(data[16])<<8 | uint64(data[17])
		)
		if sampleRate == 0 {
			return 0, errors.New("invalid sample rate")
		}
		return int(math.Round(float64(samples) / float64(sampleRate))), nil
	}
	return 0, errors.New("missing streaminfo block")
}
