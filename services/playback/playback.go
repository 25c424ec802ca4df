package playback

import "context"

// State is a snapshot of what a user is currently listening to.
type State struct {
	TrackID    string `json:"trackId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"durationMs"`
	ProgressMs int    `json:"progressMs"`
	Playing    bool   `json:"playing"`
}

// Client abstracts a user's playback device.
type Client interface {
	// CurrentPlayback returns the current state, or (nil, nil) when nothing
	// is playing.
	CurrentPlayback(ctx context.Context) (*State, error)

	// Seek jumps the active track to the given position in milliseconds.
	Seek(ctx context.Context, positionMs int) error
}

// ClientFactory builds a playback client bound to a user's credentials.
// Called lazily so token refreshes are picked up per session tick cycle.
type ClientFactory func(ctx context.Context, userID string) (Client, error)
