package anchor

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestPrintf(t *testing.T) {
	var buffer bytes.Buffer
	window := NewWithWriter(&buffer, Red)
	window.Printf("hello %s", "world")
	window.AnchorPrintf("failure: %d", 1)
	assert.Equal(t, "hello world\nfailure: 1\n", buffer.String())
}

func TestLot(t *testing.T) {
	var buffer bytes.Buffer
	window := NewWithWriter(&buffer, Red)

	window.Lot("index").Printf("%d tracks", 3)
	window.Lot("fetch").Print("playlist")
	assert.Same(t, window.Lot("index"), window.Lot("index"))
	assert.Equal(t, []string{"index 3 tracks", "fetch playlist"}, window.Lots())

	window.Lot("fetch").Wipe()
	assert.Equal(t, []string{"index 3 tracks", "fetch "}, window.Lots())

	window.Lot("index").Close("10 tracks")
	assert.Equal(t, []string{"fetch "}, window.Lots())
	assert.Equal(t, "index 10 tracks\n", buffer.String())

	window.Lot("fetch").Close()
	assert.Empty(t, window.Lots())
}

func TestSink(t *testing.T) {
	var (
		buffer bytes.Buffer
		window = NewWithWriter(&buffer, Green)
		track  = entity.NewTrack("id", "Song", []string{"A"}, "Alb", 200000, 1)
	)

	window.OnProgress(1, 4)
	window.OnDownloadUpdate([]downloader.Snapshot{{Track: track, Transferred: 1, Remaining: 1}})
	window.OnLog("Found Song")
	assert.Equal(t, []string{"progress 1/4 (25%)", "download Song 50%"}, window.Lots())
	assert.Equal(t, "Found Song\n", buffer.String())

	window.OnProgress(0, 0)
	window.OnDownloadUpdate(nil)
	assert.Equal(t, []string{"progress 1/4 (25%)", "download "}, window.Lots())
}
