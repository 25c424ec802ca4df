package models

import "time"

// LyricsStatus tracks how far a song has progressed through lyric discovery.
// The value only moves forward: a song that once had synced lyrics never
// falls back to NotScanned on a later provider outage.
type LyricsStatus int

const (
	LyricsNotScanned LyricsStatus = iota
	LyricsNoResults
	LyricsPlainOnly
	LyricsSynced
)

func (s LyricsStatus) String() string {
	switch s {
	case LyricsNotScanned:
		return "not_scanned"
	case LyricsNoResults:
		return "no_results"
	case LyricsPlainOnly:
		return "plain_only"
	case LyricsSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// ScanVerdict is the per-user outcome of scanning a song's lyrics.
type ScanVerdict int

const (
	VerdictNotScanned ScanVerdict = iota
	VerdictClean
	VerdictContaminated
)

func (v ScanVerdict) String() string {
	switch v {
	case VerdictNotScanned:
		return "not_scanned"
	case VerdictClean:
		return "clean"
	case VerdictContaminated:
		return "contaminated"
	default:
		return "unknown"
	}
}

// User holds the Spotify identity and tokens needed to poll playback.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Song is created the first time a track is observed during playback.
type Song struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Artist       string       `json:"artist"`
	Album        string       `json:"album"`
	DurationMs   int          `json:"durationMs"`
	SpotifyID    string       `json:"spotifyId"`
	LyricsStatus LyricsStatus `json:"lyricsStatus"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// TriggerCategory groups trigger words. UserID is empty for global
// categories visible to every user. Words are lower-cased by the storage
// layer before the matcher ever sees them.
type TriggerCategory struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	UserID string   `json:"userId,omitempty"`
	Active bool     `json:"active"`
	Words  []string `json:"words"`
}

// UserSongStatus is the per-(song, user) scan outcome. Written by the scan
// pipeline, read by the monitoring session on track change.
type UserSongStatus struct {
	SongID    int64       `json:"songId"`
	UserID    string      `json:"userId"`
	Verdict   ScanVerdict `json:"verdict"`
	HasSynced bool        `json:"hasSynced"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TriggerWindow is a contiguous stretch of a track that should be skipped.
// Words lists every trigger word that contributed to the window, so merged
// windows stay attributable.
type TriggerWindow struct {
	CategoryID int64    `json:"categoryId"`
	Words      []string `json:"words"`
	StartMs    int      `json:"startMs"`
	EndMs      int      `json:"endMs"`
}
