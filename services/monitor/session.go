package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
	"ocdify-go/models"
	"ocdify-go/services/playback"
	"ocdify-go/services/scan"
	"ocdify-go/stats"
)

// State describes what a session is currently doing.
type State int

const (
	StateIdle     State = iota // Nothing playing, slow polling
	StateTracking              // Track playing, watching progress
	StateScanning              // Track playing, scan still in flight
	StateSkipping              // Seek issued, waiting for playback to land
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateScanning:
		return "scanning"
	case StateSkipping:
		return "skipping"
	default:
		return "unknown"
	}
}

// Store is the slice of persistence a session needs.
type Store interface {
	GetSongBySpotifyID(ctx context.Context, spotifyID string) (*models.Song, error)
	CreateSong(ctx context.Context, song *models.Song) error
	GetUserSongStatus(ctx context.Context, songID int64, userID string) (*models.UserSongStatus, error)
	GetWindows(ctx context.Context, songID int64, userID string) ([]models.TriggerWindow, error)
}

// Scanner runs the lyrics pipeline for a song.
type Scanner interface {
	ScanSong(ctx context.Context, song *models.Song, userID string) (*scan.Outcome, error)
}

// Config holds session timing parameters.
type Config struct {
	PollInterval     time.Duration
	IdlePollInterval time.Duration
	RetryBackoff     time.Duration
	ScanTimeout      time.Duration
	SkipBufferMs     int
	PostSkipPadMs    int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.IdlePollInterval <= 0 {
		c.IdlePollInterval = 5 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 30 * time.Second
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = time.Minute
	}
	if c.SkipBufferMs < 0 {
		c.SkipBufferMs = 0
	}
	if c.PostSkipPadMs < 0 {
		c.PostSkipPadMs = 0
	}
	return c
}

// trackState is everything the session knows about the active track.
// The cursor only moves forward; a track change resets it.
type trackState struct {
	spotifyID string
	songID    int64
	title     string
	artist    string
	windows   []models.TriggerWindow
	cursor    int
	scanning  bool
}

// Session polls one user's playback and seeks past trigger windows.
type Session struct {
	userID  string
	store   Store
	scanner Scanner
	factory playback.ClientFactory
	cfg     Config

	mu            sync.Mutex
	state         State
	client        playback.Client
	clientFailAt  time.Time
	track         *trackState
	startedAt     time.Time
	lastActiveAt  time.Time
	seeksIssued   int
	lastSeekAt    time.Time
	lastSeekToMs  int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Status is a JSON-friendly snapshot of a session.
type Status struct {
	UserID       string    `json:"userId"`
	State        string    `json:"state"`
	StartedAt    time.Time `json:"startedAt"`
	LastActiveAt time.Time `json:"lastActiveAt,omitempty"`
	TrackID      string    `json:"trackId,omitempty"`
	Title        string    `json:"title,omitempty"`
	Artist       string    `json:"artist,omitempty"`
	Windows      int       `json:"windows"`
	SeeksIssued  int       `json:"seeksIssued"`
	LastSeekAt   time.Time `json:"lastSeekAt,omitempty"`
	LastSeekToMs int       `json:"lastSeekToMs,omitempty"`
}

// NewSession creates a session for one user. The cancel plumbing is set up
// here, before the session is visible to anyone, so Stop is safe to call
// concurrently with Start.
func NewSession(parent context.Context, userID string, store Store, scanner Scanner, factory playback.ClientFactory, cfg Config) *Session {
	s := &Session{
		userID:    userID,
		store:     store,
		scanner:   scanner,
		factory:   factory,
		cfg:       cfg.withDefaults(),
		state:     StateIdle,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(parent)
	return s
}

// Start launches the polling loop.
func (s *Session) Start() {
	go s.run()
	log.Infof("%s Session started for user %s", logcolors.LogSession, s.userID)
}

// Stop cancels the loop and waits for it to exit.
func (s *Session) Stop() {
	s.cancel()
	<-s.done
	log.Infof("%s Session stopped for user %s", logcolors.LogSession, s.userID)
}

// Done is closed when the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		interval := s.tick(s.ctx)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// tick performs one poll cycle and returns the delay until the next.
func (s *Session) tick(ctx context.Context) time.Duration {
	client, wait := s.ensureClient(ctx)
	if client == nil {
		return wait
	}

	state, err := client.CurrentPlayback(ctx)
	if err != nil {
		log.Warnf("%s Playback poll failed for user %s: %v", logcolors.LogPlayback, s.userID, err)
		s.dropClient()
		return s.cfg.RetryBackoff
	}

	if state == nil || !state.Playing {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return s.cfg.IdlePollInterval
	}

	s.mu.Lock()
	s.lastActiveAt = time.Now()
	if s.track == nil || s.track.spotifyID != state.TrackID {
		s.mu.Unlock()
		s.handleTrackChange(ctx, state)
		s.mu.Lock()
	}

	if s.track != nil && s.track.scanning {
		s.state = StateScanning
	} else {
		s.state = StateTracking
	}
	target, shouldSeek := s.evaluateSkipLocked(state.ProgressMs)
	if shouldSeek {
		s.state = StateSkipping
	}
	s.mu.Unlock()

	if shouldSeek {
		s.seek(ctx, client, target)
	}
	return s.cfg.PollInterval
}

// ensureClient builds the playback client lazily, backing off after
// credential or transport failures.
func (s *Session) ensureClient(ctx context.Context) (playback.Client, time.Duration) {
	s.mu.Lock()
	if s.client != nil {
		client := s.client
		s.mu.Unlock()
		return client, 0
	}
	if !s.clientFailAt.IsZero() {
		if remaining := s.cfg.RetryBackoff - time.Since(s.clientFailAt); remaining > 0 {
			s.mu.Unlock()
			return nil, remaining
		}
	}
	s.mu.Unlock()

	client, err := s.factory(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.clientFailAt = time.Now()
		log.Warnf("%s Failed to build playback client for user %s: %v", logcolors.LogWarning, s.userID, err)
		return nil, s.cfg.RetryBackoff
	}
	s.client = client
	s.clientFailAt = time.Time{}
	return client, 0
}

func (s *Session) dropClient() {
	s.mu.Lock()
	s.client = nil
	s.clientFailAt = time.Now()
	s.mu.Unlock()
}

// handleTrackChange resets the cursor and loads (or schedules) the windows
// for the new track.
func (s *Session) handleTrackChange(ctx context.Context, ps *playback.State) {
	stats.Get().RecordTrackChange()
	log.Infof("%s User %s now playing: %s - %s", logcolors.LogMonitor, s.userID, ps.Artist, ps.Title)

	track := &trackState{
		spotifyID: ps.TrackID,
		title:     ps.Title,
		artist:    ps.Artist,
	}

	song, err := s.store.GetSongBySpotifyID(ctx, ps.TrackID)
	if err != nil {
		log.Errorf("%s Failed to look up song %s: %v", logcolors.LogMonitor, ps.TrackID, err)
		s.setTrack(track, StateTracking)
		return
	}
	if song == nil {
		song = &models.Song{
			Title:      ps.Title,
			Artist:     ps.Artist,
			Album:      ps.Album,
			DurationMs: ps.DurationMs,
			SpotifyID:  ps.TrackID,
		}
		if err := s.store.CreateSong(ctx, song); err != nil {
			log.Errorf("%s Failed to register song %s: %v", logcolors.LogMonitor, ps.TrackID, err)
			s.setTrack(track, StateTracking)
			return
		}
	}
	track.songID = song.ID

	status, err := s.store.GetUserSongStatus(ctx, song.ID, s.userID)
	if err != nil {
		log.Errorf("%s Failed to load scan status for song %d: %v", logcolors.LogMonitor, song.ID, err)
		s.setTrack(track, StateTracking)
		return
	}

	if status != nil && status.Verdict != models.VerdictNotScanned {
		if status.Verdict == models.VerdictContaminated && status.HasSynced {
			windows, err := s.store.GetWindows(ctx, song.ID, s.userID)
			if err != nil {
				log.Errorf("%s Failed to load windows for song %d: %v", logcolors.LogMonitor, song.ID, err)
			} else {
				track.windows = windows
				log.Infof("%s Loaded %d windows for %s - %s", logcolors.LogWindows, len(windows), ps.Artist, ps.Title)
			}
		}
		s.setTrack(track, StateTracking)
		return
	}

	// First encounter for this user. Scan in the background; skipping starts
	// once the windows arrive, provided the track hasn't changed meanwhile.
	track.scanning = true
	s.setTrack(track, StateScanning)
	go s.scanTrack(song)
}

func (s *Session) setTrack(track *trackState, state State) {
	s.mu.Lock()
	s.track = track
	s.state = state
	s.mu.Unlock()
}

func (s *Session) scanTrack(song *models.Song) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanTimeout)
	defer cancel()

	outcome, err := s.scanner.ScanSong(ctx, song, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil || s.track.spotifyID != song.SpotifyID {
		return // listener moved on
	}
	s.track.scanning = false
	if s.state == StateScanning {
		s.state = StateTracking
	}
	if err != nil {
		log.Errorf("%s Background scan failed for song %d: %v", logcolors.LogScan, song.ID, err)
		return
	}
	if outcome.Contaminated() && len(outcome.Windows) > 0 {
		s.track.windows = outcome.Windows
		s.track.cursor = 0
	}
}

// evaluateSkipLocked walks the window cursor against the playhead and
// decides whether to seek. The cursor advances past every window whose end
// is behind the playhead, so each window triggers at most one seek.
func (s *Session) evaluateSkipLocked(progressMs int) (int, bool) {
	if s.track == nil {
		return 0, false
	}
	for s.track.cursor < len(s.track.windows) {
		w := s.track.windows[s.track.cursor]
		if progressMs < w.StartMs-s.cfg.SkipBufferMs {
			return 0, false
		}
		if progressMs <= w.EndMs {
			target := w.EndMs + s.cfg.PostSkipPadMs
			s.track.cursor++
			s.seeksIssued++
			s.lastSeekAt = time.Now()
			s.lastSeekToMs = target
			log.Infof("%s Skipping window [%d, %d] (%v) for user %s, seeking to %d",
				logcolors.LogSkip, w.StartMs, w.EndMs, w.Words, s.userID, target)
			return target, true
		}
		// Playhead is already past this window.
		s.track.cursor++
	}
	return 0, false
}

// seek issues the jump. The cursor has already advanced, so a failed seek
// is not retried for the same window.
func (s *Session) seek(ctx context.Context, client playback.Client, positionMs int) {
	if err := client.Seek(ctx, positionMs); err != nil {
		stats.Get().RecordSeekFailure()
		log.Warnf("%s Seek to %d failed for user %s: %v", logcolors.LogSkip, positionMs, s.userID, err)
		return
	}
	stats.Get().RecordSeek()
}

// Status returns a snapshot for the API.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		UserID:       s.userID,
		State:        s.state.String(),
		StartedAt:    s.startedAt,
		LastActiveAt: s.lastActiveAt,
		SeeksIssued:  s.seeksIssued,
		LastSeekAt:   s.lastSeekAt,
		LastSeekToMs: s.lastSeekToMs,
	}
	if s.track != nil {
		st.TrackID = s.track.spotifyID
		st.Title = s.track.title
		st.Artist = s.track.artist
		st.Windows = len(s.track.windows)
	}
	return st
}

// idleFor reports how long the session has gone without active playback.
func (s *Session) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastActiveAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return time.Since(s.lastActiveAt)
}
