// Package scheduler resolves a list of tracks over a fixed number of
// concurrent slots.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/resolver"
	"go.uber.org/zap"
)

// ProgressSink receives everything worth showing to the user.
// Its methods are called from multiple goroutines.
type ProgressSink interface {
	OnProgress(completed, total int)
	OnDownloadUpdate(jobs []downloader.Snapshot)
	OnLog(message string)
}

// Resolver resolves a single track and never fails: failures are
// reported as a not found result.
type Resolver interface {
	Resolve(ctx context.Context, track *entity.Track) resolver.Result
}

type Scheduler struct {
	resolver Resolver
	sink     ProgressSink
	slots    int
	poll     time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	completed int
}

type Option func(*Scheduler)

// WithConcurrency sets the number of slots, at least one
func WithConcurrency(slots int) Option {
	return func(scheduler *Scheduler) {
		if slots < 1 {
			slots = 1
		}
		scheduler.slots = slots
	}
}

func WithPollInterval(poll time.Duration) Option {
	return func(scheduler *Scheduler) {
		if poll > 0 {
			scheduler.poll = poll
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(scheduler *Scheduler) {
		scheduler.logger = logger
	}
}

func New(resolver Resolver, sink ProgressSink, options ...Option) *Scheduler {
	scheduler := &Scheduler{
		resolver: resolver,
		sink:     sink,
		slots:    3,
		poll:     100 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

// slot is a busy slot: done receives exactly one result
type slot struct {
	index int
	done  chan resolver.Result
}

// Run resolves every track exactly once and returns the results in the
// same order as tracks. Once ctx is done no further track is started:
// those left out are reported as not found.
func (scheduler *Scheduler) Run(ctx context.Context, tracks []*entity.Track) []resolver.Result {
	scheduler.mu.Lock()
	scheduler.completed = 0
	scheduler.mu.Unlock()

	results := make([]resolver.Result, len(tracks))
	for i, track := range tracks {
		results[i] = resolver.Result{Track: track}
	}

	var (
		slots  = make([]*slot, scheduler.slots)
		next   = 0
		ticker = time.NewTicker(scheduler.poll)
	)
	defer ticker.Stop()
	for {
		busy := 0
		for i, current := range slots {
			if current != nil {
				select {
				case result := <-current.done:
					results[current.index] = result
					slots[i] = nil
					scheduler.complete(len(tracks))
				default:
					busy++
					continue
				}
			}
			if next < len(tracks) && ctx.Err() == nil {
				slots[i] = scheduler.start(ctx, next, tracks[next])
				next++
				busy++
			}
		}

		if busy == 0 {
			break
		}
		<-ticker.C
	}

	if next < len(tracks) {
		scheduler.logger.Debug("run interrupted", zap.Int("skipped", len(tracks)-next))
	}
	return results
}

// Completed returns the number of tracks resolved so far
func (scheduler *Scheduler) Completed() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.completed
}

func (scheduler *Scheduler) start(ctx context.Context, index int, track *entity.Track) *slot {
	current := &slot{index: index, done: make(chan resolver.Result, 1)}
	scheduler.logger.Debug("resolving", zap.Int("index", index), zap.Stringer("track", track))
	go func() {
		current.done <- scheduler.resolver.Resolve(ctx, track)
	}()
	return current
}

func (scheduler *Scheduler) complete(total int) {
	scheduler.mu.Lock()
	scheduler.completed++
	completed := scheduler.completed
	scheduler.mu.Unlock()

	scheduler.sink.OnProgress(completed, total)
	scheduler.sink.OnLog(fmt.Sprintf("Finished %d/%d", completed, total))
}
