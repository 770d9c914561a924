// Package slskd implements the peer network client over the REST API of
// a slskd daemon, the Soulseek client it drives.
package slskd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/streambinder/spotiseek/peer"
	"github.com/streambinder/spotiseek/util"
	"go.uber.org/zap"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrTransferNotFound = errors.New("transfer not found")
)

const apiPrefix = "/api/v0"

type Client struct {
	url           string
	key           string
	downloads     string
	http          *http.Client
	poll          time.Duration
	searchTimeout time.Duration
	logger        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.http = httpClient
	}
}

func WithPollInterval(poll time.Duration) Option {
	return func(client *Client) {
		if poll > 0 {
			client.poll = poll
		}
	}
}

// WithSearchTimeout bounds how long a search is waited for before
// collecting whatever responses it got so far
func WithSearchTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.searchTimeout = timeout
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New returns a client for the daemon listening at url, authenticating with
// key. The daemon stores completed transfers under downloads, which therefore
// has to be readable by this process.
func New(url, key, downloads string, options ...Option) *Client {
	client := &Client{
		url:           strings.TrimSuffix(url, "/"),
		key:           key,
		downloads:     downloads,
		http:          http.DefaultClient,
		poll:          500 * time.Millisecond,
		searchTimeout: 15 * time.Second,
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Ping checks the daemon is reachable and accepts the key
func (client *Client) Ping(ctx context.Context) error {
	return client.do(ctx, http.MethodGet, "/application", nil, nil)
}

func (client *Client) Search(ctx context.Context, query string) ([]peer.Hit, error) {
	id := uuid.NewString()
	if err := client.do(ctx, http.MethodPost, "/searches", searchRequest{ID: id, SearchText: query}, nil); err != nil {
		return nil, err
	}
	defer func() {
		// searches pile up in the daemon otherwise
		util.ErrSuppress(client.do(context.Background(), http.MethodDelete, "/searches/"+id, nil, nil))
	}()

	deadline := time.Now().Add(client.searchTimeout)
	for {
		var status searchStatus
		if err := client.do(ctx, http.MethodGet, "/searches/"+id, nil, &status); err != nil {
			return nil, err
		}
		if status.IsComplete || time.Now().After(deadline) {
			break
		}
		if err := sleep(ctx, client.poll); err != nil {
			return nil, err
		}
	}

	var responses []searchResponse
	if err := client.do(ctx, http.MethodGet, "/searches/"+id+"/responses", nil, &responses); err != nil {
		return nil, err
	}

	var hits []peer.Hit
	for _, response := range responses {
		for _, file := range response.Files {
			hits = append(hits, peer.Hit{
				Peer:        response.Username,
				Filename:    file.Filename,
				Size:        file.Size,
				BitRate:     file.BitRate,
				BitDepth:    file.BitDepth,
				Extension:   file.Extension,
				Duration:    file.Length,
				QueueLength: response.QueueLength,
				HasFreeSlot: response.HasFreeUploadSlot,
				UploadSpeed: response.UploadSpeed,
			})
		}
	}
	client.logger.Debug("search completed",
		zap.String("query", query), zap.Int("responses", len(responses)), zap.Int("hits", len(hits)))
	return hits, nil
}

// Download enqueues hit, follows the transfer until it ends, then copies the
// file the daemon stored into w. Once ctx is done the transfer is cancelled
// and removed from the daemon.
func (client *Client) Download(ctx context.Context, hit peer.Hit, w io.Writer, callbacks peer.Callbacks) (peer.State, error) {
	user := "/transfers/downloads/" + url.PathEscape(hit.Peer)
	if err := client.do(ctx, http.MethodPost, user,
		[]downloadRequest{{Filename: hit.Filename, Size: hit.Size}}, nil); err != nil {
		return peer.StateErrored, err
	}
	callbacks.State(peer.StateRequested)

	var (
		last    = peer.StateRequested
		current transfer
	)
	for {
		if err := sleep(ctx, client.poll); err != nil {
			client.cancel(user, current.ID)
			return peer.StateCancelled, err
		}

		var (
			transfers userTransfers
			ok        bool
		)
		if err := client.do(ctx, http.MethodGet, user, nil, &transfers); err != nil {
			if ctx.Err() != nil {
				client.cancel(user, current.ID)
				return peer.StateCancelled, ctx.Err()
			}
			return peer.StateErrored, err
		}
		if current, ok = transfers.find(hit.Filename); !ok {
			return peer.StateErrored, fmt.Errorf("%w: %s", ErrTransferNotFound, hit.Filename)
		}

		callbacks.Progress(current.BytesTransferred, current.BytesRemaining)
		if state := current.state(); state != last {
			last = state
			callbacks.State(state)
		}
		if last == peer.StateSucceeded || last.IsFailure() {
			break
		}
	}

	if last != peer.StateSucceeded {
		return last, nil
	}
	if err := client.collect(hit.Filename, w); err != nil {
		return peer.StateErrored, err
	}
	return peer.StateSucceeded, nil
}

// cancel is best-effort: it runs after the caller gave up
func (client *Client) cancel(user, id string) {
	if len(id) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.do(ctx, http.MethodDelete, user+"/"+url.PathEscape(id)+"?remove=true", nil, nil); err != nil {
		client.logger.Debug("cannot cancel transfer", zap.String("id", id), zap.Error(err))
	}
}

// collect copies the completed file out of the daemon download directory,
// where it lands under its remote parent directory name.
func (client *Client) collect(filename string, w io.Writer) error {
	var (
		parts = strings.Split(strings.ReplaceAll(filename, "\\", "/"), "/")
		path  = filepath.Join(client.downloads, parts[len(parts)-1])
	)
	if len(parts) > 1 {
		path = filepath.Join(client.downloads, parts[len(parts)-2], parts[len(parts)-1])
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	util.ErrSuppress(os.Remove(path))
	return nil
}

func (client *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.url+apiPrefix+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("X-API-Key", client.key)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, path, response.Status)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(result)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
