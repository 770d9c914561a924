// Package anchor renders a scrolling log with a set of status lines,
// the lots, anchored below it.
package anchor

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"atomicgo.dev/cursor"
	"github.com/fatih/color"
	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/util"
)

const (
	Red    = color.FgRed
	Green  = color.FgGreen
	Yellow = color.FgYellow
	Blue   = color.FgBlue
	Cyan   = color.FgCyan
)

const lineLength = 100

type Window struct {
	mu    sync.Mutex
	out   io.Writer
	color *color.Color
	lots  []*Lot
	drawn int
	tty   bool
}

type Lot struct {
	window  *Window
	id      string
	message string
}

// New returns a window printing to the standard output: lots are only
// drawn when it is a terminal.
func New(attribute color.Attribute) *Window {
	return &Window{out: color.Output, color: color.New(attribute), tty: !color.NoColor}
}

// NewWithWriter returns a window printing the log only, to out.
func NewWithWriter(out io.Writer, attribute color.Attribute) *Window {
	return &Window{out: out, color: color.New(attribute)}
}

func (window *Window) Printf(format string, args ...interface{}) {
	window.print(fmt.Sprintf(format, args...))
}

// AnchorPrintf prints a highlighted log line
func (window *Window) AnchorPrintf(format string, args ...interface{}) {
	window.print(window.color.Sprintf(format, args...))
}

func (window *Window) print(line string) {
	window.mu.Lock()
	defer window.mu.Unlock()
	window.erase()
	fmt.Fprintln(window.out, line)
	window.draw()
}

// Lot returns the lot named id, creating it if needed
func (window *Window) Lot(id string) *Lot {
	window.mu.Lock()
	defer window.mu.Unlock()
	for _, lot := range window.lots {
		if lot.id == id {
			return lot
		}
	}
	lot := &Lot{window: window, id: id}
	window.lots = append(window.lots, lot)
	return lot
}

// Lots returns the current content of every lot, in creation order
func (window *Window) Lots() []string {
	window.mu.Lock()
	defer window.mu.Unlock()
	lines := make([]string, 0, len(window.lots))
	for _, lot := range window.lots {
		lines = append(lines, lot.line(false))
	}
	return lines
}

func (window *Window) erase() {
	if !window.tty {
		window.drawn = 0
		return
	}
	for ; window.drawn > 0; window.drawn-- {
		cursor.Up(1)
		cursor.ClearLine()
	}
	cursor.StartOfLine()
}

func (window *Window) draw() {
	if !window.tty {
		return
	}
	for _, lot := range window.lots {
		if len(lot.message) == 0 {
			continue
		}
		fmt.Fprintln(window.out, lot.line(true))
		window.drawn++
	}
}

func (lot *Lot) line(colored bool) string {
	id := lot.id
	if colored {
		id = lot.window.color.Sprint(id)
	}
	return util.Excerpt(fmt.Sprintf("%s %s", id, lot.message), lineLength)
}

func (lot *Lot) Printf(format string, args ...interface{}) {
	lot.Print(fmt.Sprintf(format, args...))
}

func (lot *Lot) Print(message string) {
	lot.window.mu.Lock()
	defer lot.window.mu.Unlock()
	lot.window.erase()
	lot.message = strings.TrimSpace(message)
	lot.window.draw()
}

// Wipe empties the lot, hiding it until the next print
func (lot *Lot) Wipe() {
	lot.Print("")
}

// Close removes the lot, logging summary, if any, in its place
func (lot *Lot) Close(summary ...string) {
	window := lot.window
	window.mu.Lock()
	defer window.mu.Unlock()
	window.erase()
	for i, other := range window.lots {
		if other == lot {
			window.lots = append(window.lots[:i], window.lots[i+1:]...)
			break
		}
	}
	if len(summary) > 0 {
		lot.message = strings.Join(summary, " ")
		fmt.Fprintln(window.out, lot.line(true))
	}
	window.draw()
}

func (window *Window) OnProgress(completed, total int) {
	if total <= 0 {
		return
	}
	window.Lot("progress").Printf("%d/%d (%.0f%%)", completed, total, 100*float64(completed)/float64(total))
}

func (window *Window) OnDownloadUpdate(jobs []downloader.Snapshot) {
	summaries := make([]string, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, fmt.Sprintf("%s %.0f%%", job.Track.Title, 100*job.PercentComplete()))
	}
	window.Lot("download").Print(strings.Join(summaries, ", "))
}

func (window *Window) OnLog(message string) {
	window.Printf("%s", message)
}
