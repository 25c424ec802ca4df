package main

import (
	"time"

	"ocdify-go/models"
)

type contextKey string

const rateLimitTypeKey contextKey = "rateLimitType"

// userIDHeader carries the caller's identity on every /api request.
const userIDHeader = "X-User-ID"

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CategoryRequest is the create/update body for trigger categories.
type CategoryRequest struct {
	Name   string   `json:"name"`
	Words  []string `json:"words"`
	Active *bool    `json:"active,omitempty"`
}

// ScanRequest asks for a scan of a registered song.
type ScanRequest struct {
	SongID    int64  `json:"songId,omitempty"`
	SpotifyID string `json:"spotifyId,omitempty"`
}

// CheckTextRequest is the ad-hoc text matching body.
type CheckTextRequest struct {
	Text string `json:"text"`
}

// UserRequest registers or updates a user's playback credentials.
type UserRequest struct {
	DisplayName  string    `json:"displayName,omitempty"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenExpiry  time.Time `json:"tokenExpiry,omitempty"`
}

// ContaminatedSong pairs a song with the windows built for the caller.
type ContaminatedSong struct {
	Song    models.Song            `json:"song"`
	Windows []models.TriggerWindow `json:"windows,omitempty"`
}

// CacheDumpResponse is the response format for the /api/cache endpoint.
type CacheDumpResponse struct {
	NumberOfKeys int      `json:"number_of_keys"`
	Keys         []string `json:"keys,omitempty"`
}
