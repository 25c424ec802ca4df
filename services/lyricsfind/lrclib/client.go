package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
	"ocdify-go/services/lyricsfind"
)

const (
	// ProviderName is the identifier for the LRCLIB provider
	ProviderName = "lrclib"

	userAgent = "ocdify-go/1.0 (https://lrclib.net/docs)"
)

// track is the LRCLIB wire format for both /api/get and /api/search.
type track struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"` // seconds
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Client implements lyricsfind.Provider against the LRCLIB REST API.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	durationDeltaMs int
}

// New creates an LRCLIB client. durationDeltaMs bounds how far a search
// result's duration may drift from the requested track's.
func New(baseURL string, timeout time.Duration, durationDeltaMs int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:         baseURL,
		httpClient:      &http.Client{Timeout: timeout},
		durationDeltaMs: durationDeltaMs,
	}
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return ProviderName
}

// FetchLyrics tries the exact-signature /api/get lookup first and falls
// back to /api/search filtered by duration.
func (c *Client) FetchLyrics(ctx context.Context, artist, title, album string, durationMs int) (*lyricsfind.Result, error) {
	if artist == "" && title == "" {
		return nil, lyricsfind.NewProviderError(ProviderName, "artist and title cannot both be empty", nil)
	}

	log.Infof("%s [LRCLIB] Searching: %s - %s", logcolors.LogSearch, artist, title)

	hit, err := c.get(ctx, artist, title, album, durationMs)
	if err != nil {
		return nil, err
	}
	if hit == nil {
		hit, err = c.search(ctx, artist, title, durationMs)
		if err != nil {
			return nil, err
		}
	}

	if hit == nil || (hit.SyncedLyrics == "" && hit.PlainLyrics == "") {
		log.Infof("%s [LRCLIB] No lyrics for: %s - %s", logcolors.LogLyrics, artist, title)
		return &lyricsfind.Result{Found: false, Provider: ProviderName}, nil
	}

	log.Infof("%s [LRCLIB] Found lyrics for: %s - %s (synced: %v)",
		logcolors.LogLyrics, artist, title, hit.SyncedLyrics != "")
	return &lyricsfind.Result{
		Found:        true,
		SyncedLyrics: hit.SyncedLyrics,
		PlainLyrics:  hit.PlainLyrics,
		Provider:     ProviderName,
		TrackID:      strconv.FormatInt(hit.ID, 10),
	}, nil
}

// get performs the exact-signature lookup. A 404 is a miss, not an error.
func (c *Client) get(ctx context.Context, artist, title, album string, durationMs int) (*track, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationMs > 0 {
		params.Set("duration", strconv.Itoa(durationMs/1000))
	}

	var result track
	status, err := c.doJSON(ctx, "/api/get?"+params.Encode(), &result)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &result, nil
}

// search is the fuzzy fallback; results are filtered to tracks with synced
// lyrics whose duration is within the configured delta.
func (c *Client) search(ctx context.Context, artist, title string, durationMs int) (*track, error) {
	params := url.Values{}
	params.Set("track_name", title)
	if artist != "" {
		params.Set("artist_name", artist)
	}

	var results []track
	status, err := c.doJSON(ctx, "/api/search?"+params.Encode(), &results)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || len(results) == 0 {
		return nil, nil
	}

	var fallback *track
	for i := range results {
		t := &results[i]
		if durationMs > 0 && c.durationDeltaMs > 0 {
			deltaMs := int(t.Duration*1000) - durationMs
			if deltaMs < -c.durationDeltaMs || deltaMs > c.durationDeltaMs {
				continue
			}
		}
		if t.SyncedLyrics != "" {
			return t, nil
		}
		if fallback == nil && t.PlainLyrics != "" {
			fallback = t
		}
	}
	return fallback, nil
}

func (c *Client) doJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, lyricsfind.NewProviderError(ProviderName, "failed to build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, lyricsfind.NewProviderError(ProviderName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, lyricsfind.NewProviderError(ProviderName,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, lyricsfind.NewProviderError(ProviderName, "failed to decode response", err)
	}
	return resp.StatusCode, nil
}
