// Package playlist writes the resolved tracks of a run into a playlist file.
package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/streambinder/spotiseek/resolver"
)

var ErrUnsupportedEncoding = errors.New("unsupported playlist encoding")

// Playlist is a file named after Name, written into Directory
type Playlist struct {
	Name      string
	Directory string
}

// Entry is a single playlist item
type Entry struct {
	Path     string
	Title    string
	Duration int // in seconds
}

// PlaylistEncoder writes entries in the order they are added:
// nothing is guaranteed to be on disk before Close.
type PlaylistEncoder interface {
	Add(Entry) error
	Close() error
}

// EntryOf returns the entry for a resolution result, if it found a file
func EntryOf(result resolver.Result) (Entry, bool) {
	if !result.Found {
		return Entry{}, false
	}
	return Entry{Path: result.Path, Title: result.Title, Duration: result.Duration}, true
}

// Path is the playlist file path for the given encoding
func (playlist *Playlist) Path(encoding string) string {
	return filepath.Join(playlist.Directory, fmt.Sprintf("%s.%s", playlist.Name, strings.ToLower(encoding)))
}

func (playlist *Playlist) Encoder(encoding string) (PlaylistEncoder, error) {
	encoding = strings.ToLower(encoding)
	switch encoding {
	case "pls", "m3u":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, encoding)
	}

	if err := os.MkdirAll(playlist.Directory, 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(playlist.Path(encoding))
	if err != nil {
		return nil, err
	}

	base := encoder{file: file, writer: bufio.NewWriter(file), directory: playlist.Directory}
	if encoding == "m3u" {
		return newM3UEncoder(base)
	}
	return newPLSEncoder(base)
}

type encoder struct {
	file      *os.File
	writer    *bufio.Writer
	directory string
}

// shortest returns path relative to the playlist directory,
// unless the absolute form is shorter
func (encoder encoder) shortest(path string) string {
	absolute, err := filepath.Abs(path)
	if err != nil {
		absolute = path
	}
	directory, err := filepath.Abs(encoder.directory)
	if err != nil {
		return absolute
	}
	relative, err := filepath.Rel(directory, absolute)
	if err != nil || len(relative) > len(absolute) {
		return absolute
	}
	return relative
}

func (encoder encoder) close() error {
	if err := encoder.writer.Flush(); err != nil {
		encoder.file.Close()
		return err
	}
	return encoder.file.Close()
}
