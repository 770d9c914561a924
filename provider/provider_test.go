package provider

import (
	"testing"

	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const megabyte = 1000 * 1000

var (
	track   = entity.NewTrack("id", "Song", []string{"A"}, "Alb", 200000, 1)
	options = Options{
		Thresholds:      Thresholds{Track: 80, Album: 90},
		MinMp3Bitrate:   200,
		MaxKbsPerSecond: 600,
		Prefer:          []string{"flac"},
		Avoid:           []string{".WMA"},
	}
)

func filenames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, candidate := range candidates {
		names[i] = candidate.Peer + "/" + candidate.Filename
	}
	return names
}

func TestQueries(t *testing.T) {
	variant := entity.NewTrack("id", "Song (feat. B) - Radio Edit", []string{"A", "B"}, "Alb", 1, 1)
	assert.Equal(t, []string{
		"A B Song (feat. B) - Radio Edit",
		"A B Song",
		"A B Alb",
		"A Song (feat. B) - Radio Edit",
	}, Queries(variant))

	plain := entity.NewTrack("id", "Song", []string{"A"}, "Song", 1, 1)
	assert.Equal(t, []string{"A Song"}, Queries(plain))
	assert.Equal(t, []string{"A Song", "A Alb"}, Queries(track))
}

func TestMatchesFilename(t *testing.T) {
	thresholds := options.Thresholds
	assert.True(t, MatchesFilename(track, `@@music\A\Alb\01 - SONG.mp3`, thresholds))
	assert.True(t, MatchesFilename(track, "a - song.flac", thresholds))
	assert.False(t, MatchesFilename(track, `music\Other\Thing.mp3`, thresholds))
	assert.False(t, MatchesFilename(track, "", thresholds))
}

func TestMaxSize(t *testing.T) {
	assert.Equal(t, int64(200*600*1000), options.MaxSize(track))
	assert.Equal(t, int64(-1), Options{}.MaxSize(track))
}

func TestRankFilters(t *testing.T) {
	ranked := Rank(track, []peer.Hit{
		{Peer: "big", Filename: "A - Song.mp3", Size: 200 * megabyte, BitRate: 320},
		{Peer: "low", Filename: "A - Song.mp3", Size: 3 * megabyte, BitRate: 128},
		{Peer: "text", Filename: "A - Song.txt", Size: megabyte},
		{Peer: "other", Filename: "Other - Thing.mp3", Size: megabyte, BitRate: 320},
		{Peer: "good", Filename: "A - Song.mp3", Size: 5 * megabyte, BitRate: 320, Duration: 198},
		{Peer: "undeclared", Filename: "A - Song.mp3", Size: 5 * megabyte},
		{Peer: "lossless", Filename: "A - Song", Extension: "FLAC", Size: 30 * megabyte, BitDepth: 16},
	}, options)

	require.Len(t, ranked, 3)
	assert.ElementsMatch(t, []string{"good", "undeclared", "lossless"},
		[]string{ranked[0].Peer, ranked[1].Peer, ranked[2].Peer})
	for _, candidate := range ranked {
		assert.LessOrEqual(t, candidate.Size, options.MaxSize(track))
		if candidate.Extension == "mp3" && candidate.BitRate > 0 {
			assert.GreaterOrEqual(t, candidate.BitRate, options.MinMp3Bitrate)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	hits := []peer.Hit{
		{Peer: "h1", Filename: "A - Song.mp3", BitRate: 320, Duration: 205, HasFreeSlot: true},
		{Peer: "h2", Filename: "A - Song.ogg", QueueLength: 5},
		{Peer: "h3", Filename: "A - Song.mp3", BitRate: 320, Duration: 199, HasFreeSlot: true},
		{Peer: "h4", Filename: "A - Song.flac", Duration: 200, HasFreeSlot: true},
		{Peer: "h5", Filename: "A - Song.mp3", BitRate: 320, Duration: 200, HasFreeSlot: true, UploadSpeed: 100},
		{Peer: "h6", Filename: "A - Song.mp3", BitRate: 256, Duration: 200, HasFreeSlot: true, UploadSpeed: 100},
		{Peer: "h7", Filename: "A - Song.mp3", BitRate: 256, Duration: 200, HasFreeSlot: true, UploadSpeed: 500},
		{Peer: "h8", Filename: "A - Song.wma", Duration: 200, HasFreeSlot: true},
		{Peer: "h9", Filename: "A - Song.mp3", BitRate: 320, Duration: 200, HasFreeSlot: true, QueueLength: 1},
	}
	ranked := Rank(track, hits, options)

	var peers []string
	for _, candidate := range ranked {
		peers = append(peers, candidate.Peer)
	}
	assert.Equal(t, []string{"h4", "h7", "h5", "h6", "h8", "h9", "h2", "h3", "h1"}, peers)
}

func TestRankDeterministicAndStable(t *testing.T) {
	hits := []peer.Hit{
		{Peer: "x", Filename: "A - Song.mp3", BitRate: 320, Duration: 200},
		{Peer: "y", Filename: "A - Song.mp3", BitRate: 320, Duration: 200},
		{Peer: "z", Filename: "A - Song.flac", Duration: 210},
		{Peer: "w", Filename: "A - Song.mp3", BitRate: 320, Duration: 200},
	}
	first := filenames(Rank(track, hits, options))
	second := filenames(Rank(track, hits, options))
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"x/A - Song.mp3", "y/A - Song.mp3", "w/A - Song.mp3", "z/A - Song.flac"}, first)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(track, nil, options))
	assert.Empty(t, Rank(track, []peer.Hit{{Peer: "p", Filename: "Nothing.mp3"}}, options))
}
