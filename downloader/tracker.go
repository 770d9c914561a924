package downloader

import (
	"sort"
	"sync"

	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/peer"
)

// Tracker is the registry of active downloads, shared across all
// scheduler slots. Readers only ever get snapshots.
type Tracker struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	onUpdate func([]Snapshot)
}

func NewTracker(onUpdate func([]Snapshot)) *Tracker {
	return &Tracker{
		jobs:     make(map[string]*Job),
		onUpdate: onUpdate,
	}
}

// Start registers a new job for an attempt to download candidate.
func (tracker *Tracker) Start(track *entity.Track, candidate peer.Hit) *Job {
	job := newJob(track, candidate, tracker.notify)
	tracker.mu.Lock()
	tracker.jobs[job.ID] = job
	tracker.mu.Unlock()
	tracker.notify()
	return job
}

// Stop removes the job from the registry.
func (tracker *Tracker) Stop(job *Job) {
	tracker.mu.Lock()
	delete(tracker.jobs, job.ID)
	tracker.mu.Unlock()
	tracker.notify()
}

// Snapshot returns a copy of every active job, oldest first.
func (tracker *Tracker) Snapshot() []Snapshot {
	tracker.mu.Lock()
	jobs := make([]*Job, 0, len(tracker.jobs))
	for _, job := range tracker.jobs {
		jobs = append(jobs, job)
	}
	tracker.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, job.Snapshot())
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].Started.Equal(snapshots[j].Started) {
			return snapshots[i].ID < snapshots[j].ID
		}
		return snapshots[i].Started.Before(snapshots[j].Started)
	})
	return snapshots
}

func (tracker *Tracker) Size() int {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return len(tracker.jobs)
}

func (tracker *Tracker) notify() {
	if tracker == nil || tracker.onUpdate == nil {
		return
	}
	tracker.onUpdate(tracker.Snapshot())
}
