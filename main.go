package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ocdify-go/cache"
	"ocdify-go/circuitbreaker"
	"ocdify-go/config"
	"ocdify-go/logcolors"
	"ocdify-go/middleware"
	"ocdify-go/services/lyricsfind"
	"ocdify-go/services/lyricsfind/lrclib"
	"ocdify-go/services/monitor"
	"ocdify-go/services/playback"
	"ocdify-go/services/scan"
	"ocdify-go/storage"
)

var conf = config.Get()

// Shared application state, wired once in main.
var (
	appCtx      context.Context
	store       *storage.Store
	lyricsCache *cache.PersistentCache
	finder      *lyricsfind.Finder
	scanner     *scan.Scanner
	supervisor  *monitor.Supervisor
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)
}

func main() {
	var cancel context.CancelFunc
	appCtx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var err error
	store, err = storage.New(conf.Configuration.DBPath)
	if err != nil {
		log.Fatalf("%s Failed to open database: %v", logcolors.LogDB, err)
	}
	defer store.Close()

	lyricsCache, err = cache.NewPersistentCache(conf.Configuration.CachePath, conf.FeatureFlags.CacheCompression)
	if err != nil {
		log.Fatalf("%s Failed to open lyrics cache: %v", logcolors.LogCacheInit, err)
	}
	defer lyricsCache.Close()

	lrclibClient := lrclib.New(conf.Configuration.LRCLibBaseURL, conf.ProviderTimeout(), conf.Configuration.DurationMatchDeltaMs)
	finder = lyricsfind.NewFinder(lyricsfind.Options{
		Cache:       lyricsCache,
		PositiveTTL: time.Duration(conf.Configuration.LyricsCacheTTLInSeconds) * time.Second,
		NegativeTTL: time.Duration(conf.Configuration.NegativeCacheTTLInDays) * 24 * time.Hour,
		BreakerConfig: circuitbreaker.Config{
			Threshold: conf.Configuration.CircuitBreakerThreshold,
			Cooldown:  time.Duration(conf.Configuration.CircuitBreakerCooldownSecs) * time.Second,
		},
	}, lrclibClient)

	scanner = scan.NewScanner(store, finder, conf.Configuration.MergeThresholdMs, conf.Configuration.LinePadMs)

	auth := playback.NewAuthenticator(
		conf.Configuration.SpotifyClientID,
		conf.Configuration.SpotifyClientSecret,
		conf.Configuration.SpotifyRedirectURL,
	)
	factory := playback.NewSpotifyFactory(auth, store)

	supervisor = monitor.NewSupervisor(store, scanner, factory, monitor.Config{
		PollInterval:     conf.PollInterval(),
		IdlePollInterval: conf.IdlePollInterval(),
		RetryBackoff:     conf.RetryBackoff(),
		ScanTimeout:      conf.ScanTimeout(),
		SkipBufferMs:     conf.Configuration.SkipBufferMs,
		PostSkipPadMs:    conf.Configuration.PostSkipPadMs,
	})

	cronJobs := startCronJobs()
	defer cronJobs.Stop()

	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-User-ID"},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit)

	// Middleware chain: auth, stats, logging, cors, rate limiting.
	protected := middleware.APIKeyMiddleware(conf.Configuration.APIKey, []string{"/", "/api/health"})(router)
	loggedRouter := middleware.LoggingMiddleware(statsMiddleware(protected))
	corsHandler := c.Handler(loggedRouter)
	handler := limitMiddleware(corsHandler, limiter)

	server := &http.Server{
		Addr:    ":" + conf.Configuration.Port,
		Handler: handler,
	}

	go func() {
		log.Infof("%s Server listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("%s Server shutdown error: %v", logcolors.LogServer, err)
	}
	supervisor.StopAll()
}
