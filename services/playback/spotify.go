package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"ocdify-go/models"
)

// ErrNoCredentials is returned when a user has no stored Spotify tokens.
var ErrNoCredentials = errors.New("user has no playback credentials")

// UserSource looks up stored user credentials.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// SpotifyClient adapts the Spotify Web API to the Client interface.
type SpotifyClient struct {
	api *spotify.Client
}

// NewAuthenticator builds the OAuth authenticator with the playback scopes
// the monitor needs.
func NewAuthenticator(clientID, clientSecret, redirectURL string) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
	)
}

// NewSpotifyClient wraps a user's stored token in an auto-refreshing client.
func NewSpotifyClient(ctx context.Context, auth *spotifyauth.Authenticator, user *models.User) (*SpotifyClient, error) {
	if user.AccessToken == "" && user.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
		TokenType:    "Bearer",
	}
	return &SpotifyClient{api: spotify.New(auth.Client(ctx, token))}, nil
}

// NewSpotifyFactory returns a ClientFactory that resolves credentials from
// the user store on each call.
func NewSpotifyFactory(auth *spotifyauth.Authenticator, users UserSource) ClientFactory {
	return func(ctx context.Context, userID string) (Client, error) {
		user, err := users.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
		}
		if user == nil {
			return nil, ErrNoCredentials
		}
		return NewSpotifyClient(ctx, auth, user)
	}
}

// CurrentPlayback fetches the user's currently playing track.
func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (*State, error) {
	currently, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get currently playing: %w", err)
	}
	if currently == nil || currently.Item == nil {
		return nil, nil
	}

	track := currently.Item
	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	return &State{
		TrackID:    string(track.ID),
		Title:      track.Name,
		Artist:     strings.Join(artists, ", "),
		Album:      track.Album.Name,
		DurationMs: int(track.Duration),
		ProgressMs: int(currently.Progress),
		Playing:    currently.Playing,
	}, nil
}

// Seek jumps the active playback to positionMs.
func (c *SpotifyClient) Seek(ctx context.Context, positionMs int) error {
	if err := c.api.Seek(ctx, positionMs); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}
