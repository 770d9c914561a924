package slskd

import (
	"strings"

	"github.com/streambinder/spotiseek/peer"
)

type searchRequest struct {
	ID         string `json:"id"`
	SearchText string `json:"searchText"`
}

type searchStatus struct {
	IsComplete    bool   `json:"isComplete"`
	State         string `json:"state"`
	ResponseCount int    `json:"responseCount"`
}

type searchResponse struct {
	Username          string `json:"username"`
	HasFreeUploadSlot bool   `json:"hasFreeUploadSlot"`
	QueueLength       int    `json:"queueLength"`
	UploadSpeed       int    `json:"uploadSpeed"`
	Files             []searchFile `json:"files"`
}

type searchFile struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	BitRate   int    `json:"bitRate"`
	BitDepth  int    `json:"bitDepth"`
	Length    int    `json:"length"`
	Extension string `json:"extension"`
}

type downloadRequest struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type userTransfers struct {
	Username    string `json:"username"`
	Directories []struct {
		Directory string     `json:"directory"`
		Files     []transfer `json:"files"`
	} `json:"directories"`
}

type transfer struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	State            string `json:"state"`
	BytesTransferred int64  `json:"bytesTransferred"`
	BytesRemaining   int64  `json:"bytesRemaining"`
}

// find returns the transfer of filename; the daemon keeps finished
// transfers around, so the last one wins
func (transfers userTransfers) find(filename string) (transfer, bool) {
	var (
		found transfer
		ok    bool
	)
	for _, directory := range transfers.Directories {
		for _, candidate := range directory.Files {
			if candidate.Filename == filename {
				found, ok = candidate, true
			}
		}
	}
	return found, ok
}

// state maps the daemon transfer states, such as "Completed, Succeeded"
// or "Queued, Remotely", onto peer states
func (transfer transfer) state() peer.State {
	switch state := transfer.State; {
	case strings.Contains(state, "Succeeded"):
		return peer.StateSucceeded
	case strings.Contains(state, "Cancelled"):
		return peer.StateCancelled
	case strings.Contains(state, "TimedOut"):
		return peer.StateTimedOut
	case strings.Contains(state, "Rejected"):
		return peer.StateRejected
	case strings.Contains(state, "Errored"), strings.Contains(state, "Completed"):
		return peer.StateErrored
	case strings.Contains(state, "InProgress"):
		return peer.StateInProgress
	case strings.Contains(state, "Initializing"):
		return peer.StateInitializing
	case strings.Contains(state, "Queued"):
		return peer.StateQueued
	default:
		return peer.StateRequested
	}
}
