package lyricsfind

import "context"

// Result is the standardized outcome of a lyrics lookup. Found=false is a
// normal, frequent outcome, not an error.
type Result struct {
	Found        bool   `json:"found"`
	SyncedLyrics string `json:"syncedLyrics,omitempty"`
	PlainLyrics  string `json:"plainLyrics,omitempty"`
	Provider     string `json:"provider,omitempty"`
	TrackID      string `json:"trackId,omitempty"`
}

// HasSynced reports whether timestamped lyrics are available.
func (r *Result) HasSynced() bool {
	return r != nil && r.Found && r.SyncedLyrics != ""
}

// HasPlain reports whether plain lyrics are available.
func (r *Result) HasPlain() bool {
	return r != nil && r.Found && r.PlainLyrics != ""
}

// Provider is a single lyrics source.
type Provider interface {
	// Name returns the provider's identifier (e.g. "lrclib")
	Name() string

	// FetchLyrics looks up lyrics for a track. durationMs of 0 disables
	// duration filtering. A miss is (Result{Found:false}, nil); errors are
	// reserved for transport/availability failures.
	FetchLyrics(ctx context.Context, artist, title, album string, durationMs int) (*Result, error)
}

// ProviderError wraps a provider failure with its origin.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Err: err}
}
