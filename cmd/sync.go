package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/arunsworld/nursery"
	"github.com/spf13/cobra"
	"github.com/streambinder/spotiseek/config"
	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/entity/playlist"
	"github.com/streambinder/spotiseek/library"
	"github.com/streambinder/spotiseek/peer/slskd"
	"github.com/streambinder/spotiseek/resolver"
	"github.com/streambinder/spotiseek/scheduler"
	"github.com/streambinder/spotiseek/spotify"
	"github.com/streambinder/spotiseek/util"
	"github.com/streambinder/spotiseek/util/bars"
	"go.uber.org/zap"
)

const pingTimeout = 10 * time.Second

var errNoTracks = errors.New("no track to resolve")

func init() {
	cmdRoot.AddCommand(cmdSync())
}

func cmdSync() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sync playlist...",
		Short:        "Resolve playlists into the output directory",
		Long:         "Resolve every track of the given playlists (IDs, URIs or URLs) from the local library or the peer network, then write the output playlist",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { util.ErrSuppress(logger.Sync()) }()

			if err := os.MkdirAll(conf.Output, 0o755); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var (
				index = library.New(
					library.WithThresholds(conf.LibraryThresholds()),
					library.WithCache(conf.Cache),
					library.WithLogger(logger),
				)
				client = slskd.New(conf.Slskd.URL, conf.Slskd.APIKey, conf.Slskd.Downloads,
					slskd.WithLogger(logger),
				)
				tracks []*entity.Track
			)
			if err := nursery.RunConcurrently(
				routineIndex(index, conf.LibraryRoots()),
				routinePeer(client),
				routineFetch(conf, args, logger, &tracks),
			); err != nil {
				return err
			}
			if len(tracks) == 0 {
				return errNoTracks
			}

			results := resolve(ctx, conf, logger, index, client, tracks)
			if ctx.Err() != nil {
				tui.AnchorPrintf("interrupted")
			}
			return routineMix(conf, results)
		},
	}
	cmd.Flags().StringP("output", "o", "output", "Output directory")
	cmd.Flags().StringSliceP("library", "l", []string{}, "Additional library directory")
	cmd.Flags().IntP("concurrency", "j", 3, "Tracks resolved at the same time")
	cmd.Flags().String("playlist-encoding", "pls", "Playlist output file encoding (pls, m3u)")
	cmd.Flags().String("playlist-name", "playlist", "Playlist output file name")
	cmd.Flags().String("progress", "lines", "Progress rendering (lines, bars)")
	cmd.Flags().Int("min-mp3-bitrate", 200, "Lowest acceptable MP3 bitrate")
	cmd.Flags().Int("max-kbs-per-second", 600, "Largest acceptable file size, in kB per track second (unlimited if 0)")
	return cmd
}

func routineIndex(index *library.Library, roots []string) func(context.Context, chan error) {
	return func(_ context.Context, ch chan error) {
		tui.Lot("index").Printf("scanning")
		if err := index.Build(roots...); err != nil {
			tui.Printf("indexing failed: %s", err)
			ch <- err
			return
		}
		tui.Lot("index").Close(fmt.Sprintf("%d tracks indexed", index.Size()))
	}
}

func routinePeer(client *slskd.Client) func(context.Context, chan error) {
	return func(ctx context.Context, ch chan error) {
		tui.Lot("peer").Printf("connecting")
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			tui.Lot("peer").Close()
			ch <- fmt.Errorf("peer network unreachable: %w", err)
			return
		}
		tui.Lot("peer").Close("connected")
	}
}

// fetcher pulls the tracks of every playlist, in order
func routineFetch(conf *config.Config, refs []string, logger *zap.Logger, tracks *[]*entity.Track) func(context.Context, chan error) {
	return func(ctx context.Context, ch chan error) {
		tui.Lot("fetch").Printf("authenticating")
		client, err := spotify.New(ctx, conf.Spotify.ID, conf.Spotify.Secret, logger)
		if err != nil {
			tui.Lot("fetch").Close()
			ch <- fmt.Errorf("authentication failed: %w", err)
			return
		}

		var fetched []*entity.Track
		for _, ref := range refs {
			tui.Lot("fetch").Printf("playlist %s", ref)
			items, err := client.Items(ctx, ref)
			if err != nil {
				tui.Lot("fetch").Close()
				ch <- fmt.Errorf("cannot fetch playlist %s: %w", ref, err)
				return
			}
			fetched = append(fetched, items...)
		}
		*tracks = fetched
		tui.Lot("fetch").Close(fmt.Sprintf("%d tracks", len(fetched)))
	}
}

type sink interface {
	scheduler.ProgressSink
	Close()
}

type lines struct {
	scheduler.ProgressSink
}

func (lines) Close() {
	tui.Lot("progress").Close()
	tui.Lot("download").Close()
}

func newSink(ctx context.Context, conf *config.Config) sink {
	if conf.Progress == "bars" {
		return bars.New(ctx, os.Stdout)
	}
	return lines{tui}
}

func resolve(ctx context.Context, conf *config.Config, logger *zap.Logger, index resolver.Index, client *slskd.Client, tracks []*entity.Track) []resolver.Result {
	var (
		progress = newSink(ctx, conf)
		tracker  = downloader.NewTracker(progress.OnDownloadUpdate)
		engine   = resolver.New(index, client, conf.Output,
			resolver.WithRanking(conf.Ranking()),
			resolver.WithTimeouts(conf.DownloadTimeouts()),
			resolver.WithPollInterval(conf.PollInterval),
			resolver.WithTracker(tracker),
			resolver.WithLog(progress.OnLog),
			resolver.WithLogger(logger),
		)
		coordinator = scheduler.New(engine, progress,
			scheduler.WithConcurrency(conf.Concurrency),
			scheduler.WithPollInterval(conf.PollInterval),
			scheduler.WithLogger(logger),
		)
	)
	defer progress.Close()
	return coordinator.Run(ctx, tracks)
}

// mixer writes the output playlist out of the resolved tracks
func routineMix(conf *config.Config, results []resolver.Result) error {
	output := &playlist.Playlist{Name: conf.PlaylistName, Directory: conf.Output}
	encoder, err := output.Encoder(conf.PlaylistEncoding)
	if err != nil {
		return err
	}

	found := 0
	for _, result := range results {
		entry, ok := playlist.EntryOf(result)
		if !ok {
			continue
		}
		if err := encoder.Add(entry); err != nil {
			return err
		}
		found++
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	tui.Printf("%d/%d tracks resolved, playlist written to %s", found, len(results), output.Path(conf.PlaylistEncoding))
	return nil
}
