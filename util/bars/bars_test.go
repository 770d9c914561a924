package bars

import (
	"bytes"
	"context"
	"testing"

	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/stretchr/testify/assert"
	"github.com/vbauerster/mpb/v8"
)

var track = entity.NewTrack("id", "Song", []string{"A"}, "Alb", 200000, 1)

func TestBars(t *testing.T) {
	var (
		buffer bytes.Buffer
		bars   = New(context.Background(), &buffer, mpb.WithAutoRefresh())
	)

	bars.OnProgress(0, 2)
	bars.OnDownloadUpdate([]downloader.Snapshot{{ID: "1", Track: track, Transferred: 10, Remaining: 90}})
	assert.Len(t, bars.jobs, 1)

	bars.OnDownloadUpdate([]downloader.Snapshot{{ID: "2", Track: track, State: downloader.StateTransferring}})
	assert.Len(t, bars.jobs, 1)
	assert.Contains(t, bars.jobs, "2")

	bars.OnDownloadUpdate([]downloader.Snapshot{{ID: "2", Track: track, State: downloader.StateSucceeded}})
	assert.Empty(t, bars.jobs)

	bars.OnProgress(2, 2)
	bars.Close()
}

func TestBarsLog(t *testing.T) {
	var (
		buffer bytes.Buffer
		bars   = New(context.Background(), &buffer, mpb.WithAutoRefresh())
	)

	bars.OnProgress(0, 1)
	bars.OnLog("Found A - Song from peer")
	bars.OnProgress(1, 1)
	bars.Close()
	assert.Contains(t, buffer.String(), "Found A - Song from peer")
}

func TestBarsNothingToDo(t *testing.T) {
	bars := New(context.Background(), &bytes.Buffer{})
	bars.OnProgress(0, 0)
	bars.OnDownloadUpdate(nil)
	bars.Close()
	assert.Nil(t, bars.overall)
}
