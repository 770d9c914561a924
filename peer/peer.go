// Package peer describes the capability the resolution engine consumes to
// search the file-sharing network and to transfer files out of it.
package peer

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrTransferFailed = errors.New("transfer failed")

// Hit is a single file advertised by a peer in response to a search.
type Hit struct {
	Peer        string
	Filename    string // remote path, as the peer names it
	Size        int64  // in bytes
	BitRate     int    // in kbps, 0 when undeclared
	BitDepth    int    // 0 when undeclared
	Extension   string // as advertised, possibly blank
	Duration    int    // in seconds, 0 when undeclared
	QueueLength int
	HasFreeSlot bool
	UploadSpeed int // in bytes per second
}

// Key identifies the remote file across searches.
func (hit Hit) Key() string {
	return hit.Peer + ":" + hit.Filename
}

// ResolvedExtension is the advertised extension or, when the peer left it
// blank, the one derived from the remote file name. Always lowercase,
// without the leading dot.
func (hit Hit) ResolvedExtension() string {
	if ext := strings.TrimPrefix(strings.TrimSpace(hit.Extension), "."); len(ext) > 0 {
		return strings.ToLower(ext)
	}
	// remote names are frequently windows paths
	name := path.Base(strings.ReplaceAll(hit.Filename, "\\", "/"))
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// State of a remote transfer, as reported by the client
type State int

const (
	StateRequested State = iota
	StateQueued
	StateInitializing
	StateInProgress
	StateSucceeded
	StateCancelled
	StateTimedOut
	StateErrored
	StateRejected
)

// IsFailure returns true for every terminal state but success
func (state State) IsFailure() bool {
	return state >= StateCancelled
}

func (state State) String() string {
	switch state {
	case StateRequested:
		return "requested"
	case StateQueued:
		return "queued"
	case StateInitializing:
		return "initializing"
	case StateInProgress:
		return "in progress"
	case StateSucceeded:
		return "succeeded"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed out"
	case StateRejected:
		return "rejected"
	default:
		return "errored"
	}
}

// Callbacks receive transfer notifications; either may be nil.
type Callbacks struct {
	OnProgress func(transferred, remaining int64)
	OnState    func(State)
}

func (callbacks Callbacks) Progress(transferred, remaining int64) {
	if callbacks.OnProgress != nil {
		callbacks.OnProgress(transferred, remaining)
	}
}

func (callbacks Callbacks) State(state State) {
	if callbacks.OnState != nil {
		callbacks.OnState(state)
	}
}

// Client is the peer network. Download streams the remote file into w and
// returns the final transfer state; it is expected to honour ctx, but callers
// must not rely on it returning promptly once ctx is done.
type Client interface {
	Search(ctx context.Context, query string) ([]Hit, error)
	Download(ctx context.Context, hit Hit, w io.Writer, callbacks Callbacks) (State, error)
}
