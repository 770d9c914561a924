// Package bars renders resolution progress as mpb progress bars: one for the
// whole playlist and one per in-flight transfer.
package bars

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/util"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const nameLength = 32

type Bars struct {
	mu       sync.Mutex
	progress *mpb.Progress
	overall  *mpb.Bar
	jobs     map[string]*mpb.Bar
}

// New returns bars drawn on out, log lines being printed above them
func New(ctx context.Context, out io.Writer, options ...mpb.ContainerOption) *Bars {
	return &Bars{
		progress: mpb.NewWithContext(ctx, append([]mpb.ContainerOption{
			mpb.WithWidth(64),
			mpb.WithOutput(out),
		}, options...)...),
		jobs: make(map[string]*mpb.Bar),
	}
}

func (bars *Bars) OnProgress(completed, total int) {
	bars.mu.Lock()
	defer bars.mu.Unlock()
	if total <= 0 {
		return
	}
	if bars.overall == nil {
		bars.overall = bars.progress.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("tracks "),
				decor.CountersNoUnit("%d/%d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}
	bars.overall.SetCurrent(int64(completed))
}

func (bars *Bars) OnDownloadUpdate(jobs []downloader.Snapshot) {
	bars.mu.Lock()
	defer bars.mu.Unlock()

	alive := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		alive[job.ID] = struct{}{}
		bar, ok := bars.jobs[job.ID]
		if !ok {
			bar = bars.progress.AddBar(0,
				mpb.PrependDecorators(decor.Name(util.Excerpt(job.Track.Title, nameLength)+" ")),
				mpb.AppendDecorators(decor.Percentage()),
				mpb.BarRemoveOnComplete(),
			)
			bars.jobs[job.ID] = bar
		}
		if total := job.Transferred + job.Remaining; total > 0 {
			bar.SetTotal(total, false)
		}
		bar.SetCurrent(job.Transferred)
		if job.State.IsFinished() {
			bars.drop(job.ID)
		}
	}
	for id := range bars.jobs {
		if _, ok := alive[id]; !ok {
			bars.drop(id)
		}
	}
}

func (bars *Bars) drop(id string) {
	if bar, ok := bars.jobs[id]; ok {
		bar.Abort(true)
		delete(bars.jobs, id)
	}
}

func (bars *Bars) OnLog(message string) {
	fmt.Fprintln(bars.progress, message)
}

// Close stops every bar still running and waits for the last render
func (bars *Bars) Close() {
	bars.mu.Lock()
	for id := range bars.jobs {
		bars.drop(id)
	}
	if bars.overall != nil && !bars.overall.Completed() {
		bars.overall.Abort(false)
	}
	bars.mu.Unlock()
	bars.progress.Wait()
}
