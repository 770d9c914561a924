// Package resolver turns a single track into a file, either by finding it in
// the local library or by downloading it from the peer network.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/filetype"
	"github.com/streambinder/spotiseek/library"
	"github.com/streambinder/spotiseek/peer"
	"github.com/streambinder/spotiseek/processor"
	"github.com/streambinder/spotiseek/provider"
	"github.com/streambinder/spotiseek/util"
	"go.uber.org/zap"
)

var ErrUnknownFormat = errors.New("unknown file format")

// Index is the local library lookup
type Index interface {
	Find(*entity.Track) (*library.Entry, bool)
}

type TagEditor interface {
	WriteTags(path string, tags processor.Tags) error
}

// Result of the resolution of a single track
type Result struct {
	Track    *entity.Track
	Found    bool
	Path     string
	Title    string
	Duration int // in seconds
}

type Resolver struct {
	index    Index
	client   peer.Client
	output   string
	editor   TagEditor
	tracker  *downloader.Tracker
	ranking  provider.Options
	timeouts downloader.Timeouts
	poll     time.Duration
	log      func(string)
	logger   *zap.Logger
}

type Option func(*Resolver)

func WithRanking(ranking provider.Options) Option {
	return func(resolver *Resolver) {
		resolver.ranking = ranking
	}
}

func WithTimeouts(timeouts downloader.Timeouts) Option {
	return func(resolver *Resolver) {
		resolver.timeouts = timeouts
	}
}

// WithPollInterval sets how often a running transfer is checked against the timeouts
func WithPollInterval(poll time.Duration) Option {
	return func(resolver *Resolver) {
		if poll > 0 {
			resolver.poll = poll
		}
	}
}

func WithTagEditor(editor TagEditor) Option {
	return func(resolver *Resolver) {
		resolver.editor = editor
	}
}

// WithTracker registers every transfer attempt into tracker
func WithTracker(tracker *downloader.Tracker) Option {
	return func(resolver *Resolver) {
		resolver.tracker = tracker
	}
}

// WithLog sets the receiver of the user-facing event log
func WithLog(log func(string)) Option {
	return func(resolver *Resolver) {
		resolver.log = log
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(resolver *Resolver) {
		resolver.logger = logger
	}
}

// New returns a resolver installing downloaded files into output.
// The same resolver can serve any number of tracks concurrently.
func New(index Index, client peer.Client, output string, options ...Option) *Resolver {
	resolver := &Resolver{
		index:   index,
		client:  client,
		output:  output,
		editor:  processor.Editor{},
		tracker: downloader.NewTracker(nil),
		ranking: provider.Options{
			Thresholds:      provider.Thresholds{Track: 80, Album: 90},
			MinMp3Bitrate:   200,
			MaxKbsPerSecond: 600,
		},
		timeouts: downloader.Timeouts{
			Initiation:  10 * time.Second,
			Duration:    120 * time.Second,
			PerMegabyte: 10 * time.Second,
		},
		poll:   100 * time.Millisecond,
		log:    func(string) {},
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(resolver)
	}
	return resolver
}

func (resolver *Resolver) logf(format string, args ...any) {
	resolver.log(fmt.Sprintf(format, args...))
}

// Resolve returns the first file found for track: the library is looked up
// first, then every search query is tried in turn, attempting its ranked
// candidates one at a time until one of them yields a valid file.
// A remote file is never attempted twice within the same call.
func (resolver *Resolver) Resolve(ctx context.Context, track *entity.Track) Result {
	if entry, ok := resolver.index.Find(track); ok {
		resolver.logf("Found %s in library: %s", track, entry.Path)
		return Result{Track: track, Found: true, Path: entry.Path, Title: entry.Title, Duration: entry.Duration}
	}

	attempted := make(map[string]struct{})
	for _, query := range provider.Queries(track) {
		if ctx.Err() != nil {
			break
		}

		hits, err := resolver.client.Search(ctx, query)
		if err != nil {
			resolver.logger.Debug("search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		candidates := provider.Rank(track, hits, resolver.ranking)
		resolver.logger.Debug("searched",
			zap.String("query", query), zap.Int("hits", len(hits)), zap.Int("candidates", len(candidates)))

		for _, candidate := range candidates {
			if ctx.Err() != nil {
				break
			}
			if _, ok := attempted[candidate.Key()]; ok {
				continue
			}
			attempted[candidate.Key()] = struct{}{}

			path, err := resolver.attempt(ctx, track, candidate)
			if err != nil {
				continue
			}

			duration := candidate.Duration
			if duration <= 0 {
				duration = track.Seconds()
			}
			resolver.logf("Found %s from %s", track, candidate.Peer)
			return Result{Track: track, Found: true, Path: path, Title: track.Title, Duration: duration}
		}
	}

	resolver.logf("Could not find %s", track)
	return Result{Track: track}
}

// attempt downloads, validates, installs and tags a single candidate.
// On failure, nothing is left behind on disk.
func (resolver *Resolver) attempt(ctx context.Context, track *entity.Track, candidate provider.Candidate) (string, error) {
	temp := track.Path().Download(candidate.Extension)
	file, err := os.Create(temp)
	if err != nil {
		resolver.logger.Warn("cannot create download file", zap.String("path", temp), zap.Error(err))
		return "", err
	}

	job := resolver.tracker.Start(track, candidate.Hit)
	defer resolver.tracker.Stop(job)

	resolver.logf("Downloading %s from %s (%s)", candidate.Filename, candidate.Peer, util.HumanizeBytes(candidate.Size))
	err = resolver.transfer(ctx, job, candidate, file)
	util.ErrSuppress(file.Close())
	if err != nil {
		util.ErrSuppress(os.Remove(temp))
		switch {
		case errors.Is(err, downloader.ErrInitiationTimeout):
			resolver.logf("Cancelled %s: nothing received within %s", candidate.Filename, resolver.timeouts.Initiation)
		case errors.Is(err, downloader.ErrTransferTimeout):
			resolver.logf("Cancelled %s: not completed within %s", candidate.Filename, resolver.timeouts.Limit(candidate.Size))
		default:
			resolver.logf("Failed %s: %v", candidate.Filename, err)
		}
		return "", err
	}

	detected := util.ErrWrap(filetype.Unknown)(filetype.Detect(temp))
	if detected == filetype.Unknown {
		util.ErrSuppress(os.Remove(temp))
		resolver.logf("Discarded %s: unknown file type", candidate.Filename)
		return "", ErrUnknownFormat
	}
	if detected.Extension() != candidate.Extension {
		resolver.logf("%s claimed to be %s, detected %s", candidate.Filename, candidate.Extension, detected)
	}

	path := filepath.Join(resolver.output, track.Path().Final(detected.Extension()))
	if err := util.FileMoveOrCopy(temp, path, true); err != nil {
		util.ErrSuppress(os.Remove(temp))
		resolver.logf("Failed installing %s: %v", path, err)
		return "", err
	}

	if err := resolver.editor.WriteTags(path, processor.TagsOf(track)); err != nil {
		resolver.logger.Debug("cannot write tags", zap.String("path", path), zap.Error(err))
		resolver.logf("Could not tag %s: %v", filepath.Base(path), err)
	} else {
		resolver.logf("Tagged %s", filepath.Base(path))
	}
	return path, nil
}

type outcome struct {
	state peer.State
	err   error
}

// transfer streams candidate into w, checking the timeouts at every poll.
// A cancelled transfer is abandoned without waiting for it to acknowledge.
func (resolver *Resolver) transfer(ctx context.Context, job *downloader.Job, candidate provider.Candidate, w *os.File) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		state, err := resolver.client.Download(ctx, candidate.Hit, w, job.Callbacks())
		done <- outcome{state, err}
	}()

	ticker := time.NewTicker(resolver.poll)
	defer ticker.Stop()
	for {
		select {
		case result := <-done:
			if result.err != nil {
				job.SetState(downloader.StateFailed)
				return result.err
			}
			if result.state != peer.StateSucceeded {
				job.SetState(downloader.StateFailed)
				return fmt.Errorf("%w: %s", peer.ErrTransferFailed, result.state)
			}
			job.SetState(downloader.StateSucceeded)
			return nil
		case <-ctx.Done():
			job.SetState(downloader.StateCancelled)
			return ctx.Err()
		case <-ticker.C:
			if err := resolver.timeouts.Check(time.Since(job.Started), job.Transferred(), candidate.Size); err != nil {
				job.SetState(downloader.StateCancelled)
				return err
			}
		}
	}
}
