// Package provider turns raw search hits into an ordered list of candidates
// worth downloading for a given track.
package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/fuzzy"
	"github.com/streambinder/spotiseek/peer"
)

var downloadable = map[string]struct{}{
	"mp3": {}, "ogg": {}, "oga": {}, "aac": {}, "wav": {},
	"flac": {}, "m4a": {}, "wma": {}, "aiff": {},
}

// waitless is the wait cost of a peer with a free slot and an empty queue.
const waitless = -1000

// Thresholds used to match remote filenames against a track
type Thresholds struct {
	Track int
	Album int
}

type Options struct {
	Thresholds
	MinMp3Bitrate   int
	MaxKbsPerSecond int // 0 disables the size ceiling
	Prefer          []string
	Avoid           []string
}

// Candidate is a hit that passed every filter, with its resolved extension.
type Candidate struct {
	peer.Hit
	Extension string
}

// Queries returns the search queries to run for track, in order. A query
// identical to an earlier one is skipped, as every file it could surface
// would have been attempted already.
func Queries(track *entity.Track) []string {
	var (
		artists = strings.Join(track.Artists, " ")
		queries []string
		seen    = make(map[string]struct{})
	)
	for _, query := range []string{
		fmt.Sprintf("%s %s", artists, track.Title),
		fmt.Sprintf("%s %s", artists, track.SanitizedTitle()),
		fmt.Sprintf("%s %s", artists, track.Album),
		fmt.Sprintf("%s %s", track.FirstArtist(), track.Title),
	} {
		query = strings.Join(strings.Fields(query), " ")
		if _, ok := seen[query]; ok || len(query) == 0 {
			continue
		}
		seen[query] = struct{}{}
		queries = append(queries, query)
	}
	return queries
}

// MatchesFilename tells whether a remote file name plausibly refers to track.
func MatchesFilename(track *entity.Track, filename string, thresholds Thresholds) bool {
	filename = strings.ToLower(filename)
	for _, form := range []string{
		fmt.Sprintf("%d %s", track.Number, track.Title),
		track.Title,
		fmt.Sprintf("%s - %s", track.Credits(), track.Title),
	} {
		if fuzzy.PartialRatio(strings.ToLower(form), filename) > thresholds.Track {
			return true
		}
	}
	form := fmt.Sprintf("%s - %s - %s", track.Credits(), track.Album, track.Title)
	return fuzzy.PartialRatio(strings.ToLower(form), filename) > thresholds.Album
}

// MaxSize is the largest acceptable file for track, in bytes.
func (opts Options) MaxSize(track *entity.Track) int64 {
	if opts.MaxKbsPerSecond <= 0 {
		return -1
	}
	return int64(track.Seconds()) * int64(opts.MaxKbsPerSecond) * humanize.KByte
}

// Accept returns the candidate for hit, if it passes every filter.
func (opts Options) Accept(track *entity.Track, hit peer.Hit) (Candidate, bool) {
	if !MatchesFilename(track, hit.Filename, opts.Thresholds) {
		return Candidate{}, false
	}

	ext := hit.ResolvedExtension()
	if _, ok := downloadable[ext]; !ok {
		return Candidate{}, false
	}
	// an undeclared bitrate is not taken as a low one
	if ext == "mp3" && hit.BitRate > 0 && hit.BitRate < opts.MinMp3Bitrate {
		return Candidate{}, false
	}
	if ceiling := opts.MaxSize(track); ceiling >= 0 && hit.Size > ceiling {
		return Candidate{}, false
	}
	return Candidate{Hit: hit, Extension: ext}, true
}

// Rank filters hits and sorts the survivors by, in order: closeness of the
// declared duration, peer wait cost, format preference, upload speed and
// bitrate. Hits equal on every key keep their relative order.
func Rank(track *entity.Track, hits []peer.Hit, opts Options) []Candidate {
	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		if candidate, ok := opts.Accept(track, hit); ok {
			candidates = append(candidates, candidate)
		}
	}

	var (
		seconds = track.Seconds()
		prefer  = set(opts.Prefer)
		avoid   = set(opts.Avoid)
	)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if da, db := durationDelta(a, seconds), durationDelta(b, seconds); da != db {
			return da < db
		}
		if wa, wb := waitCost(a), waitCost(b); wa != wb {
			return wa < wb
		}
		if fa, fb := formatRank(a, prefer, avoid), formatRank(b, prefer, avoid); fa != fb {
			return fa < fb
		}
		if a.UploadSpeed != b.UploadSpeed {
			return a.UploadSpeed > b.UploadSpeed
		}
		return a.BitRate > b.BitRate
	})
	return candidates
}

func durationDelta(candidate Candidate, seconds int) int {
	if candidate.Duration <= 0 {
		return 0
	}
	delta := candidate.Duration - seconds
	if delta < 0 {
		return -delta
	}
	return delta
}

func waitCost(candidate Candidate) int {
	if candidate.HasFreeSlot && candidate.QueueLength == 0 {
		return waitless
	}
	return candidate.QueueLength
}

func formatRank(candidate Candidate, prefer, avoid map[string]struct{}) int {
	if _, ok := prefer[candidate.Extension]; ok {
		return 0
	}
	if _, ok := avoid[candidate.Extension]; ok {
		return 2
	}
	return 1
}

func set(values []string) map[string]struct{} {
	result := make(map[string]struct{}, len(values))
	for _, value := range values {
		result[strings.ToLower(strings.TrimPrefix(value, "."))] = struct{}{}
	}
	return result
}
