package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/streambinder/spotiseek/util"
	"github.com/thanhpk/randstr"
)

var (
	featuringPattern = regexp.MustCompile(`(?i)\((feat|ft|featuring)\b.+?\)`)
	variantPattern   = regexp.MustCompile(`-\s+(.*?)([Vv]ersion|[Rr]emaster(ed)?|[Ee]dit|[Ff]ull [Ll]ength)\b`)
)

// Track is a playlist item the resolution engine has to turn into a file:
// it is built once when the playlist is loaded and never mutated afterwards.
type Track struct {
	ID       string
	Title    string
	Artists  []string // never empty
	Album    string
	Duration int // in milliseconds
	Number   int // track number within the album
}

type TrackPath struct {
	track *Track
}

// NewTrack guarantees the artists invariant every consumer relies on:
// a track without artists gets a single empty-named one.
func NewTrack(id, title string, artists []string, album string, durationMs, number int) *Track {
	var names []string
	for _, artist := range artists {
		if artist = strings.TrimSpace(artist); len(artist) > 0 {
			names = append(names, artist)
		}
	}
	if len(names) == 0 {
		names = []string{""}
	}
	return &Track{
		ID:       id,
		Title:    strings.TrimSpace(title),
		Artists:  names,
		Album:    strings.TrimSpace(album),
		Duration: durationMs,
		Number:   number,
	}
}

// SanitizedTitle strips featuring clauses and variant suffixes:
// > Title: Name (feat. Someone) - 2011 Remaster
// > Song:  Name
func (track *Track) SanitizedTitle() string {
	return SanitizeTitle(track.Title)
}

// Seconds returns the track duration in whole seconds.
func (track *Track) Seconds() int {
	return track.Duration / 1000
}

// FirstArtist is the main credited artist.
func (track *Track) FirstArtist() string {
	return track.Artists[0]
}

// Credits joins all the artists the way peers name their files.
func (track *Track) Credits() string {
	return strings.Join(track.Artists, ", ")
}

func (track *Track) String() string {
	return fmt.Sprintf("%s - %s", track.Credits(), track.Title)
}

// SanitizeTitle is applied until it reaches a fixed point,
// so sanitizing a sanitized title is a no-op.
func SanitizeTitle(title string) string {
	for {
		sanitized := strings.Join(strings.Fields(
			variantPattern.ReplaceAllString(featuringPattern.ReplaceAllString(title, ""), ""),
		), " ")
		if sanitized == title {
			return sanitized
		}
		title = sanitized
	}
}

func (track *Track) Path() TrackPath {
	return TrackPath{track}
}

// Final is the file name a downloaded track gets installed as.
func (trackPath TrackPath) Final(extension string) string {
	return util.LegalizeFilename(fmt.Sprintf("%s.%s", trackPath.track.String(), extension))
}

// Download is a process-unique temporary path for a single transfer attempt.
func (trackPath TrackPath) Download(extension string) string {
	name := slug.Make(trackPath.track.ID + " " + trackPath.track.Title)
	if len(name) == 0 {
		name = "track"
	}
	return filepath.Join(os.TempDir(), util.LegalizeFilename(
		fmt.Sprintf("%s-%d-%s.%s", name, os.Getpid(), randstr.Hex(8), extension),
	))
}
