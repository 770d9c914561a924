// Package spotify reads playlists out of the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/streambinder/spotiseek/entity"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrInvalidPlaylist = errors.New("invalid playlist reference")

	idPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
)

type Client struct {
	*spotify.Client
	logger *zap.Logger
}

// New authenticates with the client credentials flow, which grants
// access to public playlists only
func New(ctx context.Context, id, secret string, logger *zap.Logger) (*Client, error) {
	config := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithClient(spotify.New(spotifyauth.New().Client(ctx, token)), logger), nil
}

func NewWithClient(client *spotify.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{client, logger}
}

// Items returns the tracks of the playlist referenced by ref, in order.
// Podcast episodes and local files are skipped.
func (client *Client) Items(ctx context.Context, ref string) ([]*entity.Track, error) {
	id, err := ParseID(ref)
	if err != nil {
		return nil, err
	}

	page, err := client.GetPlaylistItems(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}

	var tracks []*entity.Track
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil || item.IsLocal {
				client.logger.Debug("skipping playlist item", zap.String("playlist", id), zap.String("added", item.AddedAt))
				continue
			}
			tracks = append(tracks, trackOf(item.Track.Track))
		}
		if err := client.NextPage(ctx, page); errors.Is(err, spotify.ErrNoMorePages) {
			break
		} else if err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

func trackOf(track *spotify.FullTrack) *entity.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}
	return entity.NewTrack(track.ID.String(), track.Name, artists, track.Album.Name,
		int(track.Duration), int(track.TrackNumber))
}

// ParseID extracts the playlist ID out of a raw ID,
// a spotify:playlist: URI or an open.spotify.com URL
func ParseID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "spotify:playlist:"):
		ref = strings.TrimPrefix(ref, "spotify:playlist:")
	case strings.Contains(ref, "open.spotify.com"):
		parsed, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidPlaylist, err)
		}
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "playlist" {
			return "", fmt.Errorf("%w: %s", ErrInvalidPlaylist, ref)
		}
		ref = parts[len(parts)-1]
	}

	if !idPattern.MatchString(ref) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPlaylist, ref)
	}
	return ref, nil
}
