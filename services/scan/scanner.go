package scan

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"ocdify-go/logcolors"
	"ocdify-go/lyrics"
	"ocdify-go/models"
	"ocdify-go/services/lyricsfind"
	"ocdify-go/stats"
	"ocdify-go/trigger"
)

// Store is the slice of persistence the scanner needs.
type Store interface {
	UpdateSongLyricsStatus(ctx context.Context, songID int64, status models.LyricsStatus) error
	ListCategoriesForUser(ctx context.Context, userID string, includeGlobal bool) ([]models.TriggerCategory, error)
	SetUserSongStatus(ctx context.Context, st models.UserSongStatus) error
	ReplaceWindows(ctx context.Context, songID int64, userID string, windows []models.TriggerWindow) error
}

// Finder resolves lyrics for a track.
type Finder interface {
	FindLyrics(ctx context.Context, artist, title, album string, durationMs int) (*lyricsfind.Result, error)
}

// Outcome summarizes a completed scan.
type Outcome struct {
	SongID       int64                  `json:"songId"`
	UserID       string                 `json:"userId"`
	Verdict      models.ScanVerdict     `json:"verdict"`
	LyricsStatus models.LyricsStatus    `json:"lyricsStatus"`
	HasSynced    bool                   `json:"hasSynced"`
	Windows      []models.TriggerWindow `json:"windows,omitempty"`
	Matches      []trigger.Match        `json:"matches,omitempty"`
}

// Contaminated reports whether the scan found trigger content.
func (o *Outcome) Contaminated() bool {
	return o != nil && o.Verdict == models.VerdictContaminated
}

// Scanner runs the lyrics-to-windows pipeline for one song and user.
// Concurrent scans of the same song/user pair are collapsed into one.
type Scanner struct {
	store            Store
	finder           Finder
	group            singleflight.Group
	mergeThresholdMs int
	linePadMs        int
}

// NewScanner creates a scanner. Threshold and pad of zero fall back to the
// window builder defaults.
func NewScanner(store Store, finder Finder, mergeThresholdMs, linePadMs int) *Scanner {
	if mergeThresholdMs <= 0 {
		mergeThresholdMs = trigger.DefaultMergeThresholdMs
	}
	if linePadMs <= 0 {
		linePadMs = trigger.DefaultLinePadMs
	}
	return &Scanner{
		store:            store,
		finder:           finder,
		mergeThresholdMs: mergeThresholdMs,
		linePadMs:        linePadMs,
	}
}

// ScanSong fetches lyrics for the song, matches the user's trigger words
// and persists the resulting skip windows and verdict.
func (s *Scanner) ScanSong(ctx context.Context, song *models.Song, userID string) (*Outcome, error) {
	key := fmt.Sprintf("%d:%s", song.ID, userID)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.scan(ctx, song, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Outcome), nil
}

func (s *Scanner) scan(ctx context.Context, song *models.Song, userID string) (*Outcome, error) {
	stats.Get().RecordScan()
	log.Infof("%s Scanning song %d (%s - %s) for user %s", logcolors.LogScan, song.ID, song.Artist, song.Title, userID)

	categories, err := s.store.ListCategoriesForUser(ctx, userID, true)
	if err != nil {
		stats.Get().RecordScanFailure()
		return nil, fmt.Errorf("failed to load trigger categories: %w", err)
	}

	result, err := s.finder.FindLyrics(ctx, song.Artist, song.Title, song.Album, song.DurationMs)
	if err != nil {
		stats.Get().RecordScanFailure()
		return nil, fmt.Errorf("lyrics lookup failed: %w", err)
	}

	outcome := &Outcome{SongID: song.ID, UserID: userID}

	switch {
	case result.HasSynced():
		outcome.LyricsStatus = models.LyricsSynced
		outcome.HasSynced = true

		lines, skipped := lyrics.ParseSynced(result.SyncedLyrics)
		if skipped > 0 {
			log.Warnf("%s Skipped %d malformed lyric lines for song %d", logcolors.LogScan, skipped, song.ID)
		}

		matches := trigger.FindMatches(lines, categories)
		outcome.Matches = matches
		outcome.Windows = trigger.BuildWindows(matches, lines, s.mergeThresholdMs, s.linePadMs)
		if len(outcome.Windows) > 0 {
			outcome.Verdict = models.VerdictContaminated
			log.Infof("%s Song %d contaminated: %d windows from %d matches",
				logcolors.LogWindows, song.ID, len(outcome.Windows), len(matches))
		} else {
			outcome.Verdict = models.VerdictClean
		}

	case result.HasPlain():
		// Without timestamps there is nothing to seek past, but the verdict
		// still tells the user what is in the song.
		outcome.LyricsStatus = models.LyricsPlainOnly
		if trigger.HasMatch(result.PlainLyrics, categories) {
			outcome.Verdict = models.VerdictContaminated
			log.Infof("%s Song %d contaminated (plain lyrics only, no windows)", logcolors.LogMatch, song.ID)
		} else {
			outcome.Verdict = models.VerdictClean
		}

	default:
		outcome.LyricsStatus = models.LyricsNoResults
		outcome.Verdict = models.VerdictClean
	}

	if err := s.persist(ctx, outcome); err != nil {
		stats.Get().RecordScanFailure()
		return nil, err
	}

	if outcome.Verdict == models.VerdictContaminated {
		stats.Get().RecordContaminated()
	} else {
		stats.Get().RecordClean()
	}
	stats.Get().RecordWindows(len(outcome.Windows))
	return outcome, nil
}

func (s *Scanner) persist(ctx context.Context, o *Outcome) error {
	if err := s.store.UpdateSongLyricsStatus(ctx, o.SongID, o.LyricsStatus); err != nil {
		return fmt.Errorf("failed to update lyrics status: %w", err)
	}
	if err := s.store.ReplaceWindows(ctx, o.SongID, o.UserID, o.Windows); err != nil {
		return fmt.Errorf("failed to store trigger windows: %w", err)
	}
	err := s.store.SetUserSongStatus(ctx, models.UserSongStatus{
		SongID:    o.SongID,
		UserID:    o.UserID,
		Verdict:   o.Verdict,
		HasSynced: o.HasSynced,
	})
	if err != nil {
		return fmt.Errorf("failed to store scan verdict: %w", err)
	}
	return nil
}

// ScanText matches a user's trigger words against arbitrary text without
// touching storage. Used for ad-hoc checks.
func (s *Scanner) ScanText(ctx context.Context, userID, text string) ([]trigger.Match, error) {
	categories, err := s.store.ListCategoriesForUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger categories: %w", err)
	}
	return trigger.FindTextMatches(text, categories), nil
}
