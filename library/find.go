package library

import (
	"fmt"
	"strings"

	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/fuzzy"
)

// Find returns the entry that best matches track: an exact match on title,
// album and at least one artist wins outright, otherwise the fuzzy candidate
// closest in duration, then with the highest score, is picked.
func (library *Library) Find(track *entity.Track) (*Entry, bool) {
	for _, entry := range library.entries {
		if exactly(entry, track) {
			return entry, true
		}
	}

	var (
		query          = fmt.Sprintf("%s - %s", track.Credits(), track.Title)
		querySanitized = fmt.Sprintf("%s - %s", track.Credits(), track.SanitizedTitle())
		querySingle    = fmt.Sprintf("%s - %s", track.FirstArtist(), track.SanitizedTitle())
		seconds        = track.Seconds()
		best           *Entry
		bestDelta      int
		bestScore      int
	)
	for _, entry := range library.entries {
		if len(entry.Title) == 0 || len(entry.Artists) == 0 {
			continue
		}

		credits := strings.Join(entry.Artists, ", ")
		score, ok := library.score(
			fuzzy.PartialRatio(fmt.Sprintf("%s - %s", credits, entry.Title), query),
			fuzzy.Ratio(fmt.Sprintf("%s - %s", credits, entry.SanitizedTitle), querySanitized),
			fuzzy.Ratio(fmt.Sprintf("%s - %s", entry.Artists[0], entry.SanitizedTitle), querySingle),
		)
		if !ok {
			continue
		}

		delta := abs(entry.Duration - seconds)
		if best == nil || delta < bestDelta || (delta == bestDelta && score > bestScore) {
			best, bestDelta, bestScore = entry, delta, score
		}
	}
	return best, best != nil
}

// score returns the highest among the qualifying scores
func (library *Library) score(partial, sanitized, single int) (int, bool) {
	var (
		best = -1
		pass = func(score, threshold int) {
			if score > threshold && score > best {
				best = score
			}
		}
	)
	pass(partial, library.thresholds.Partial)
	pass(sanitized, library.thresholds.Full)
	pass(single, library.thresholds.Full)
	return best, best >= 0
}

func exactly(entry *Entry, track *entity.Track) bool {
	if !strings.EqualFold(entry.Title, track.Title) || !strings.EqualFold(entry.Album, track.Album) {
		return false
	}
	for _, artist := range entry.Artists {
		for _, other := range track.Artists {
			if len(artist) > 0 && strings.EqualFold(artist, other) {
				return true
			}
		}
	}
	return false
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
