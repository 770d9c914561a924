package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHitResolvedExtension(t *testing.T) {
	assert.Equal(t, "flac", Hit{Extension: "FLAC", Filename: "x.mp3"}.ResolvedExtension())
	assert.Equal(t, "mp3", Hit{Extension: ".mp3"}.ResolvedExtension())
	assert.Equal(t, "mp3", Hit{Filename: `@@music\Artist\Album\01 - Song.MP3`}.ResolvedExtension())
	assert.Equal(t, "ogg", Hit{Extension: " ", Filename: "music/Artist/Song.ogg"}.ResolvedExtension())
	assert.Equal(t, "", Hit{Filename: `music\Artist.dir\Song`}.ResolvedExtension())
}

func TestHitKey(t *testing.T) {
	assert.Equal(t, "peer:dir\\file.mp3", Hit{Peer: "peer", Filename: "dir\\file.mp3"}.Key())
}

func TestStateIsFailure(t *testing.T) {
	for _, state := range []State{StateRequested, StateQueued, StateInitializing, StateInProgress, StateSucceeded} {
		assert.False(t, state.IsFailure(), state.String())
	}
	for _, state := range []State{StateCancelled, StateTimedOut, StateErrored, StateRejected} {
		assert.True(t, state.IsFailure(), state.String())
	}
}

func TestCallbacksNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		Callbacks{}.Progress(1, 2)
		Callbacks{}.State(StateSucceeded)
	})
}
