package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, playlist *Playlist, encoding string, entries ...Entry) string {
	t.Helper()
	encoder, err := playlist.Encoder(encoding)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NoError(t, encoder.Add(entry))
	}
	require.NoError(t, encoder.Close())

	data, err := os.ReadFile(playlist.Path(encoding))
	require.NoError(t, err)
	return string(data)
}

func TestPLS(t *testing.T) {
	var (
		directory = t.TempDir()
		playlist  = &Playlist{Name: "playlist", Directory: directory}
	)
	assert.Equal(t, "[playlist]\n"+
		"\nFile1=A - Song.mp3\nLength1=198\n"+
		"\nFile2=/x.flac\nLength2=200\n"+
		"NumberOfEntries=2\nVersion=2\n",
		encode(t, playlist, "PLS",
			Entry{Path: filepath.Join(directory, "A - Song.mp3"), Duration: 198},
			Entry{Path: "/x.flac", Duration: 200},
		))
}

func TestPLSEmpty(t *testing.T) {
	playlist := &Playlist{Name: "empty", Directory: filepath.Join(t.TempDir(), "nested")}
	assert.Equal(t, "[playlist]\nNumberOfEntries=0\nVersion=2\n", encode(t, playlist, "pls"))
}

func TestM3U(t *testing.T) {
	var (
		directory = t.TempDir()
		playlist  = &Playlist{Name: "mix", Directory: directory}
	)
	assert.Equal(t, "#EXTM3U\n#EXTINF:198,Song\nsub/A - Song.mp3\n",
		encode(t, playlist, "m3u", Entry{Path: filepath.Join(directory, "sub", "A - Song.mp3"), Title: "Song", Duration: 198}))
}

func TestEncoderUnsupported(t *testing.T) {
	_, err := (&Playlist{Name: "x", Directory: t.TempDir()}).Encoder("xspf")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestEntryOf(t *testing.T) {
	track := entity.NewTrack("id", "Song", []string{"A"}, "Alb", 200000, 1)
	_, ok := EntryOf(resolver.Result{Track: track})
	assert.False(t, ok)

	entry, ok := EntryOf(resolver.Result{Track: track, Found: true, Path: "/a.mp3", Title: "Song", Duration: 198})
	assert.True(t, ok)
	assert.Equal(t, Entry{Path: "/a.mp3", Title: "Song", Duration: 198}, entry)
}
