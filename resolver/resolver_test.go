package resolver

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/entity"
	"github.com/streambinder/spotiseek/library"
	"github.com/streambinder/spotiseek/peer"
	"github.com/streambinder/spotiseek/processor"
	"github.com/streambinder/spotiseek/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const megabyte = 1000 * 1000

var (
	mp3Content  = append([]byte{0xff, 0xfb, 0x90, 0x00}, make([]byte, 28)...)
	flacContent = append([]byte("fLaC\x80\x00\x00\x22"), make([]byte, 34)...)
)

type index map[string]*library.Entry

func (index index) Find(track *entity.Track) (*library.Entry, bool) {
	entry, ok := index[track.Title]
	return entry, ok
}

type client struct {
	mu        sync.Mutex
	hits      func(query string) []peer.Hit
	content   func(hit peer.Hit) []byte
	block     func(hit peer.Hit) bool
	stall     func(hit peer.Hit) bool
	release   chan struct{}
	queries   []string
	downloads []string
	files     []string
}

func newClient(hits func(string) []peer.Hit) *client {
	return &client{
		hits:    hits,
		content: func(peer.Hit) []byte { return mp3Content },
		block:   func(peer.Hit) bool { return false },
		stall:   func(peer.Hit) bool { return false },
		release: make(chan struct{}),
	}
}

func (client *client) Search(_ context.Context, query string) ([]peer.Hit, error) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.queries = append(client.queries, query)
	return client.hits(query), nil
}

func (client *client) Download(_ context.Context, hit peer.Hit, w io.Writer, callbacks peer.Callbacks) (peer.State, error) {
	client.mu.Lock()
	client.downloads = append(client.downloads, hit.Key())
	if file, ok := w.(*os.File); ok {
		client.files = append(client.files, file.Name())
	}
	client.mu.Unlock()

	callbacks.State(peer.StateInitializing)
	if client.block(hit) {
		// never acknowledges cancellation
		<-client.release
		return peer.StateCancelled, nil
	}

	content := client.content(hit)
	if content == nil {
		callbacks.State(peer.StateErrored)
		return peer.StateErrored, nil
	}
	callbacks.State(peer.StateInProgress)
	if client.stall(hit) {
		// sends a few bytes, then nothing more
		if _, err := w.Write(content[:8]); err != nil {
			return peer.StateErrored, err
		}
		callbacks.Progress(8, hit.Size-8)
		<-client.release
		return peer.StateCancelled, nil
	}
	if _, err := w.Write(content); err != nil {
		return peer.StateErrored, err
	}
	callbacks.Progress(int64(len(content)), 0)
	callbacks.State(peer.StateSucceeded)
	return peer.StateSucceeded, nil
}

type editor struct {
	mu    sync.Mutex
	err   error
	paths []string
	tags  []processor.Tags
}

func (editor *editor) WriteTags(path string, tags processor.Tags) error {
	editor.mu.Lock()
	defer editor.mu.Unlock()
	editor.paths = append(editor.paths, path)
	editor.tags = append(editor.tags, tags)
	return editor.err
}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (recorder *recorder) log(message string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.messages = append(recorder.messages, message)
}

func (recorder *recorder) contains(substring string) bool {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for _, message := range recorder.messages {
		if strings.Contains(message, substring) {
			return true
		}
	}
	return false
}

func track() *entity.Track {
	return entity.NewTrack("id", "Song", []string{"A"}, "Alb", 200000, 3)
}

func resolver(t *testing.T, client peer.Client, options ...Option) (*Resolver, string) {
	output := t.TempDir()
	return New(index{}, client, output, append([]Option{WithPollInterval(5 * time.Millisecond)}, options...)...), output
}

func TestResolveFromLibrary(t *testing.T) {
	client := newClient(func(string) []peer.Hit { return nil })
	resolver := New(index{"Song": {Path: "/music/song.mp3", Title: "Song", Duration: 201}}, client, t.TempDir())

	result := resolver.Resolve(context.Background(), track())
	assert.True(t, result.Found)
	assert.Equal(t, "/music/song.mp3", result.Path)
	assert.Equal(t, 201, result.Duration)
	assert.Empty(t, client.queries)
}

func TestResolveEndToEnd(t *testing.T) {
	client := newClient(func(query string) []peer.Hit {
		if query != "A Song" {
			return nil
		}
		return []peer.Hit{
			{Peer: "huge", Filename: `music\A - Song.mp3`, Size: 200 * megabyte, BitRate: 320, Duration: 198},
			{Peer: "valid", Filename: `music\A - Song.mp3`, Size: 5 * megabyte, BitRate: 320, Duration: 198, HasFreeSlot: true},
		}
	})
	var (
		editor   = new(editor)
		recorder = new(recorder)
		tracker  = downloader.NewTracker(nil)
	)
	resolver, output := resolver(t, client, WithTagEditor(editor), WithLog(recorder.log), WithTracker(tracker))

	result := resolver.Resolve(context.Background(), track())
	require.True(t, result.Found)
	assert.Equal(t, filepath.Join(output, "A - Song.mp3"), result.Path)
	assert.Equal(t, "Song", result.Title)
	assert.Equal(t, 198, result.Duration)
	assert.FileExists(t, result.Path)

	assert.Equal(t, []string{`valid:music\A - Song.mp3`}, client.downloads)
	assert.Equal(t, []string{result.Path}, editor.paths)
	assert.Equal(t, processor.Tags{Album: "Alb", Title: "Song", TrackNumber: 3, Artists: []string{"A"}}, editor.tags[0])
	assert.Equal(t, 0, tracker.Size())
	assert.True(t, recorder.contains("Tagged"))
	for _, file := range client.files {
		assert.NoFileExists(t, file)
	}
}

func TestResolveExhaustion(t *testing.T) {
	client := newClient(func(string) []peer.Hit {
		return []peer.Hit{{Peer: "p", Filename: "B - Other.mp3", Size: megabyte, BitRate: 320}}
	})
	resolver, output := resolver(t, client)

	result := resolver.Resolve(context.Background(), track())
	assert.False(t, result.Found)
	assert.Empty(t, result.Path)
	assert.Equal(t, provider.Queries(track()), client.queries)
	assert.Empty(t, client.downloads)

	files, err := os.ReadDir(output)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolveNoDuplicateAttempts(t *testing.T) {
	track := entity.NewTrack("id", "Song - Remastered", []string{"A"}, "Alb", 200000, 1)
	client := newClient(func(query string) []peer.Hit {
		hits := []peer.Hit{{Peer: "p", Filename: "A - Song - Remastered.mp3", Size: megabyte, BitRate: 320}}
		if query == "A Alb" {
			hits = append(hits, peer.Hit{Peer: "q", Filename: "A - Song - Remastered.flac", Size: megabyte})
		}
		return hits
	})
	client.content = func(peer.Hit) []byte { return nil }
	resolver, _ := resolver(t, client)

	result := resolver.Resolve(context.Background(), track)
	assert.False(t, result.Found)
	assert.Equal(t, []string{"A Song - Remastered", "A Song", "A Alb"}, client.queries)
	assert.Equal(t, []string{"p:A - Song - Remastered.mp3", "q:A - Song - Remastered.flac"}, client.downloads)
}

func TestResolveInitiationTimeout(t *testing.T) {
	client := newClient(func(string) []peer.Hit {
		return []peer.Hit{
			{Peer: "stuck", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320, HasFreeSlot: true},
			{Peer: "slow", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320, QueueLength: 10},
		}
	})
	client.block = func(hit peer.Hit) bool { return hit.Peer == "stuck" }
	defer close(client.release)
	recorder := new(recorder)
	resolver, _ := resolver(t, client, WithLog(recorder.log), WithTimeouts(downloader.Timeouts{
		Initiation:  50 * time.Millisecond,
		Duration:    time.Minute,
		PerMegabyte: time.Minute,
	}))

	started := time.Now()
	result := resolver.Resolve(context.Background(), track())
	assert.True(t, result.Found)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, []string{"stuck:A - Song.mp3", "slow:A - Song.mp3"}, client.downloads)
	assert.True(t, recorder.contains("nothing received"))
	assert.NoFileExists(t, client.files[0])
}

func TestResolveTransferTimeout(t *testing.T) {
	for name, timeouts := range map[string]downloader.Timeouts{
		"duration":     {Initiation: time.Minute, Duration: 80 * time.Millisecond, PerMegabyte: time.Minute},
		"per megabyte": {Initiation: time.Minute, Duration: time.Minute, PerMegabyte: 80 * time.Millisecond},
	} {
		t.Run(name, func(t *testing.T) {
			client := newClient(func(string) []peer.Hit {
				return []peer.Hit{
					{Peer: "stalled", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320, HasFreeSlot: true},
					{Peer: "steady", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320, QueueLength: 10},
				}
			})
			client.stall = func(hit peer.Hit) bool { return hit.Peer == "stalled" }
			defer close(client.release)
			recorder := new(recorder)
			resolver, output := resolver(t, client, WithLog(recorder.log), WithTimeouts(timeouts))

			started := time.Now()
			result := resolver.Resolve(context.Background(), track())
			require.True(t, result.Found)
			assert.Less(t, time.Since(started), 5*time.Second)
			assert.Equal(t, filepath.Join(output, "A - Song.mp3"), result.Path)
			assert.Equal(t, []string{"stalled:A - Song.mp3", "steady:A - Song.mp3"}, client.downloads)
			assert.True(t, recorder.contains("not completed within 80ms"))
			assert.False(t, recorder.contains("nothing received"))
			assert.NoFileExists(t, client.files[0])
		})
	}
}

func TestResolveUnknownFormat(t *testing.T) {
	client := newClient(func(string) []peer.Hit {
		return []peer.Hit{
			{Peer: "garbage", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320, HasFreeSlot: true},
			{Peer: "lossless", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320},
		}
	})
	client.content = func(hit peer.Hit) []byte {
		if hit.Peer == "garbage" {
			return []byte("<html>not found</html>")
		}
		return flacContent
	}
	var (
		editor   = &editor{err: errors.New("corrupt")}
		recorder = new(recorder)
	)
	resolver, output := resolver(t, client, WithTagEditor(editor), WithLog(recorder.log))

	result := resolver.Resolve(context.Background(), track())
	require.True(t, result.Found)
	assert.Equal(t, filepath.Join(output, "A - Song.flac"), result.Path)
	assert.Equal(t, 200, result.Duration)
	assert.True(t, recorder.contains("unknown file type"))
	assert.True(t, recorder.contains("detected flac"))
	assert.True(t, recorder.contains("Could not tag"))
	assert.NoFileExists(t, client.files[0])
}

func TestResolveCancelled(t *testing.T) {
	client := newClient(func(string) []peer.Hit {
		return []peer.Hit{{Peer: "p", Filename: "A - Song.mp3", Size: megabyte, BitRate: 320}}
	})
	resolver, _ := resolver(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := resolver.Resolve(ctx, track())
	assert.False(t, result.Found)
	assert.Empty(t, client.downloads)
}
