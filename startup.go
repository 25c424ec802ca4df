package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
	"ocdify-go/middleware"
	"ocdify-go/stats"
)

// sessions with no playback for this long get reaped by the cron job
const sessionIdleLimit = time.Hour

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check for API key to bypass rate limits
		apiKey := r.Header.Get("X-API-Key")
		if apiKey != "" && conf.Configuration.APIKey != "" && apiKey == conf.Configuration.APIKey {
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if limiter.GetLimiter(r.RemoteAddr).Allow() {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetBurstLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Tokens(r.RemoteAddr)))
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, r.RemoteAddr)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetBurstLimit()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	})
}

func statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats.Get().RecordRequest(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// startCronJobs schedules background maintenance: reaping idle sessions and
// sweeping expired cache entries.
func startCronJobs() *cron.Cron {
	c := cron.New()

	c.AddFunc("@every 10m", func() {
		if reaped := supervisor.CleanupInactive(sessionIdleLimit); reaped > 0 {
			log.Infof("%s Reaped %d inactive sessions", logcolors.LogCron, reaped)
		}
	})

	c.AddFunc("@hourly", func() {
		lyricsCache.Sweep()
	})

	c.Start()
	log.Infof("%s Background jobs scheduled", logcolors.LogCron)
	return c
}
