package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port   string `envconfig:"PORT" default:"8080"`
		APIKey string `envconfig:"API_KEY" default:""`

		DBPath    string `envconfig:"DB_PATH" default:"data/ocdify.db"`
		CachePath string `envconfig:"CACHE_PATH" default:"data/lyrics-cache.db"`

		RateLimitPerSecond  int `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
		RateLimitBurstLimit int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"10"`

		LyricsCacheTTLInSeconds int `envconfig:"LYRICS_CACHE_TTL_IN_SECONDS" default:"604800"`
		NegativeCacheTTLInDays  int `envconfig:"NEGATIVE_CACHE_TTL_DAYS" default:"7"` // TTL for caching "no lyrics found" responses

		LRCLibBaseURL        string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net"`
		DurationMatchDeltaMs int    `envconfig:"DURATION_MATCH_DELTA_MS" default:"2000"` // Reject search results outside this delta of the track duration

		SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID" default:""`
		SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET" default:""`
		SpotifyRedirectURL  string `envconfig:"SPOTIFY_REDIRECT_URL" default:"http://localhost:8080/callback"`

		// Skip engine tuning
		SkipBufferMs     int `envconfig:"SKIP_BUFFER_MS" default:"3000"`      // Seek this early to beat poll latency
		PostSkipPadMs    int `envconfig:"POST_SKIP_PAD_MS" default:"100"`     // Land just past the window end
		MergeThresholdMs int `envconfig:"MERGE_THRESHOLD_MS" default:"5000"`  // Merge windows of a category closer than this
		LinePadMs        int `envconfig:"LINE_PAD_MS" default:"5000"`         // Interval length when a line has no successor

		// Session loop timing
		PollIntervalSeconds     int `envconfig:"POLL_INTERVAL_SECONDS" default:"1"`
		IdlePollIntervalSeconds int `envconfig:"IDLE_POLL_INTERVAL_SECONDS" default:"5"`
		RetryBackoffSeconds     int `envconfig:"RETRY_BACKOFF_SECONDS" default:"30"`
		ScanTimeoutSeconds      int `envconfig:"SCAN_TIMEOUT_SECONDS" default:"60"`
		ProviderTimeoutSeconds  int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"10"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// PollInterval returns the active-track poll cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Configuration.PollIntervalSeconds) * time.Second
}

// IdlePollInterval returns the cadence used when nothing is playing.
func (c Config) IdlePollInterval() time.Duration {
	return time.Duration(c.Configuration.IdlePollIntervalSeconds) * time.Second
}

// RetryBackoff returns the wait applied after client/token failures.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Configuration.RetryBackoffSeconds) * time.Second
}

// ScanTimeout bounds a background lyric scan.
func (c Config) ScanTimeout() time.Duration {
	return time.Duration(c.Configuration.ScanTimeoutSeconds) * time.Second
}

// ProviderTimeout bounds a single provider call.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Configuration.ProviderTimeoutSeconds) * time.Second
}
