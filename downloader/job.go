package downloader

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/peer"
)

// State of a single transfer attempt
type State string

const (
	// StatePending means the transfer has been requested but not started
	StatePending State = "Pending"

	// StateTransferring means bytes are flowing
	StateTransferring State = "Transferring"

	// StateSucceeded means the transfer completed
	StateSucceeded State = "Succeeded"

	// StateFailed means the transfer ended with an error
	StateFailed State = "Failed"

	// StateCancelled means the attempt was abandoned
	StateCancelled State = "Cancelled"
)

func (s State) String() string {
	return string(s)
}

// IsFinished returns true if no further transition can happen
func (s State) IsFinished() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Job is the mutable state of one in-flight transfer attempt. It is written
// by the transfer callbacks and read by the attempt's watcher and by the
// tracker, hence the lock; a Job is never reused across attempts.
type Job struct {
	ID       string
	Track    *entity.Track
	Peer     string
	Filename string
	Size     int64
	Started  time.Time

	mu          sync.RWMutex
	state       State
	transferred int64
	remaining   int64
	onChange    func()
}

// Snapshot is a read-only copy of a Job at a given instant
type Snapshot struct {
	ID          string
	Track       *entity.Track
	Peer        string
	Filename    string
	State       State
	Transferred int64
	Remaining   int64
	Started     time.Time
}

func newJob(track *entity.Track, candidate peer.Hit, onChange func()) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Track:     track,
		Peer:      candidate.Peer,
		Filename:  candidate.Filename,
		Size:      candidate.Size,
		Started:   time.Now(),
		state:     StatePending,
		remaining: candidate.Size,
		onChange:  onChange,
	}
}

// Callbacks binds the job to the progress and state notifications of a transfer.
func (job *Job) Callbacks() peer.Callbacks {
	return peer.Callbacks{
		OnProgress: job.SetProgress,
		OnState: func(state peer.State) {
			switch {
			case state == peer.StateInProgress:
				job.SetState(StateTransferring)
			case state == peer.StateSucceeded:
				job.SetState(StateSucceeded)
			case state.IsFailure():
				job.SetState(StateFailed)
			}
		},
	}
}

// SetProgress records the transferred and remaining byte counts.
func (job *Job) SetProgress(transferred, remaining int64) {
	job.mu.Lock()
	job.transferred, job.remaining = transferred, remaining
	if transferred > 0 && job.state == StatePending {
		job.state = StateTransferring
	}
	job.mu.Unlock()
	job.changed()
}

// SetState moves the job to state, unless it already reached a final one.
func (job *Job) SetState(state State) {
	job.mu.Lock()
	if job.state.IsFinished() {
		job.mu.Unlock()
		return
	}
	job.state = state
	job.mu.Unlock()
	job.changed()
}

func (job *Job) State() State {
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.state
}

func (job *Job) Transferred() int64 {
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.transferred
}

// PercentComplete is the completed fraction, clamped to [0, 1].
func (job *Job) PercentComplete() float64 {
	return job.Snapshot().PercentComplete()
}

func (job *Job) Snapshot() Snapshot {
	job.mu.RLock()
	defer job.mu.RUnlock()
	return Snapshot{
		ID:          job.ID,
		Track:       job.Track,
		Peer:        job.Peer,
		Filename:    job.Filename,
		State:       job.state,
		Transferred: job.transferred,
		Remaining:   job.remaining,
		Started:     job.Started,
	}
}

func (job *Job) changed() {
	if job.onChange != nil {
		job.onChange()
	}
}

// PercentComplete is the completed fraction, clamped to [0, 1].
func (snapshot Snapshot) PercentComplete() float64 {
	total := snapshot.Remaining + snapshot.Transferred
	if total <= 0 {
		return 0
	}
	fraction := float64(snapshot.Transferred) / float64(total)
	if fraction < 0 {
		return 0
	} else if fraction > 1 {
		return 1
	}
	return fraction
}
