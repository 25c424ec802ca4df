package lyricsfind

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"ocdify-go/cache"
	"ocdify-go/circuitbreaker"
	"ocdify-go/logcolors"
	"ocdify-go/stats"
	"ocdify-go/utils"
)

// negativeMarker is stored in the cache when every provider came up empty,
// so repeat lookups for lyric-less tracks stay cheap.
const negativeMarker = "NO_LYRICS"

// Options configures a Finder.
type Options struct {
	Cache         *cache.PersistentCache // may be nil to disable caching
	PositiveTTL   time.Duration
	NegativeTTL   time.Duration
	BreakerConfig circuitbreaker.Config // Name is overridden per provider
}

// Finder queries providers in order until one returns lyrics, caching both
// hits and confirmed misses. Each provider gets its own circuit breaker.
type Finder struct {
	providers   []Provider
	breakers    map[string]*circuitbreaker.CircuitBreaker
	cache       *cache.PersistentCache
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// NewFinder creates a Finder over the given providers. Order matters:
// earlier providers are preferred.
func NewFinder(opts Options, providers ...Provider) *Finder {
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(providers))
	for _, p := range providers {
		cfg := opts.BreakerConfig
		cfg.Name = p.Name()
		breakers[p.Name()] = circuitbreaker.New(cfg)
	}
	return &Finder{
		providers:   providers,
		breakers:    breakers,
		cache:       opts.Cache,
		positiveTTL: opts.PositiveTTL,
		negativeTTL: opts.NegativeTTL,
	}
}

// FindLyrics resolves lyrics for a track, consulting the cache first.
// A fully exhausted provider chain yields (Result{Found:false}, nil).
func (f *Finder) FindLyrics(ctx context.Context, artist, title, album string, durationMs int) (*Result, error) {
	key := utils.NormalizeKey(artist, title, album)

	if cached, ok := f.cacheGet(key); ok {
		return cached, nil
	}

	var lastErr error
	skipped := false
	for _, p := range f.providers {
		breaker := f.breakers[p.Name()]
		if !breaker.Allow() {
			log.Warnf("%s Skipping provider %s: circuit open", logcolors.LogFallback, p.Name())
			skipped = true
			continue
		}

		result, err := p.FetchLyrics(ctx, artist, title, album, durationMs)
		if err != nil {
			breaker.RecordFailure()
			stats.Get().RecordProviderFailure()
			log.Warnf("%s Provider %s failed: %v", logcolors.LogFallback, p.Name(), err)
			lastErr = err
			continue
		}
		breaker.RecordSuccess()

		if result != nil && result.Found {
			f.cacheSet(key, result)
			return result, nil
		}
	}

	// Every provider either failed or had nothing. Only cache the miss when
	// the chain actually completed, so a transient outage doesn't poison it.
	if lastErr == nil && !skipped {
		f.cacheNegative(key)
	}
	stats.Get().RecordLyricsNotFound()
	return &Result{Found: false}, nil
}

// BreakerStatus reports each provider's circuit state for diagnostics.
func (f *Finder) BreakerStatus() map[string]string {
	status := make(map[string]string, len(f.breakers))
	for name, breaker := range f.breakers {
		state, _ := breaker.Status()
		status[name] = state.String()
	}
	return status
}

func (f *Finder) cacheGet(key string) (*Result, bool) {
	if f.cache == nil {
		return nil, false
	}
	raw, ok := f.cache.Get(key)
	if !ok {
		stats.Get().RecordCacheMiss()
		return nil, false
	}

	if raw == negativeMarker {
		stats.Get().RecordNegativeCacheHit()
		log.Infof("%s Negative cache hit for %s", logcolors.LogCacheNegative, key)
		return &Result{Found: false}, true
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		log.Warnf("%s Corrupt cache entry for %s, evicting: %v", logcolors.LogCacheLyrics, key, err)
		f.cache.Delete(key)
		stats.Get().RecordCacheMiss()
		return nil, false
	}
	stats.Get().RecordCacheHit()
	log.Infof("%s Cache hit for %s (provider: %s)", logcolors.LogCacheLyrics, key, result.Provider)
	return &result, true
}

func (f *Finder) cacheSet(key string, result *Result) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Errorf("%s Failed to marshal lyrics for caching: %v", logcolors.LogCacheLyrics, err)
		return
	}
	if err := f.cache.Set(key, string(data), f.positiveTTL); err != nil {
		log.Errorf("%s Failed to cache lyrics for %s: %v", logcolors.LogCacheLyrics, key, err)
	}
}

func (f *Finder) cacheNegative(key string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(key, negativeMarker, f.negativeTTL); err != nil {
		log.Errorf("%s Failed to cache negative result for %s: %v", logcolors.LogCacheNegative, key, err)
	}
}
