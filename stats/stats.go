package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds process-wide counters with atomic access.
type Stats struct {
	StartTime time.Time

	// Request counters
	TotalRequests      atomic.Int64
	MonitoringRequests atomic.Int64
	CategoryRequests   atomic.Int64
	ScanRequests       atomic.Int64
	OtherRequests      atomic.Int64

	// Monitoring
	SessionsStarted atomic.Int64
	SessionsStopped atomic.Int64
	SeeksIssued     atomic.Int64
	SeeksFailed     atomic.Int64
	TrackChanges    atomic.Int64

	// Scan pipeline
	ScansRun          atomic.Int64
	ScansFailed       atomic.Int64
	SongsClean        atomic.Int64
	SongsContaminated atomic.Int64
	WindowsBuilt      atomic.Int64

	// Lyrics discovery
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
	NegativeCacheHits atomic.Int64
	ProviderFailures  atomic.Int64
	LyricsNotFound    atomic.Int64
}

var global = &Stats{StartTime: time.Now()}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request against its endpoint group.
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case hasPrefix(path, "/api/monitoring"):
		s.MonitoringRequests.Add(1)
	case hasPrefix(path, "/api/trigger-categories"):
		s.CategoryRequests.Add(1)
	case hasPrefix(path, "/api/lyrics"):
		s.ScanRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (s *Stats) RecordSessionStarted()   { s.SessionsStarted.Add(1) }
func (s *Stats) RecordSessionStopped()   { s.SessionsStopped.Add(1) }
func (s *Stats) RecordSeek()             { s.SeeksIssued.Add(1) }
func (s *Stats) RecordSeekFailure()      { s.SeeksFailed.Add(1) }
func (s *Stats) RecordTrackChange()      { s.TrackChanges.Add(1) }
func (s *Stats) RecordScan()             { s.ScansRun.Add(1) }
func (s *Stats) RecordScanFailure()      { s.ScansFailed.Add(1) }
func (s *Stats) RecordClean()            { s.SongsClean.Add(1) }
func (s *Stats) RecordContaminated()     { s.SongsContaminated.Add(1) }
func (s *Stats) RecordWindows(n int)     { s.WindowsBuilt.Add(int64(n)) }
func (s *Stats) RecordCacheHit()         { s.CacheHits.Add(1) }
func (s *Stats) RecordCacheMiss()        { s.CacheMisses.Add(1) }
func (s *Stats) RecordNegativeCacheHit() { s.NegativeCacheHits.Add(1) }
func (s *Stats) RecordProviderFailure()  { s.ProviderFailures.Add(1) }
func (s *Stats) RecordLyricsNotFound()   { s.LyricsNotFound.Add(1) }

// Snapshot returns a JSON-friendly view of all counters.
func (s *Stats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptimeSeconds": int64(time.Since(s.StartTime).Seconds()),
		"requests": map[string]int64{
			"total":      s.TotalRequests.Load(),
			"monitoring": s.MonitoringRequests.Load(),
			"categories": s.CategoryRequests.Load(),
			"scan":       s.ScanRequests.Load(),
			"other":      s.OtherRequests.Load(),
		},
		"monitoring": map[string]int64{
			"sessionsStarted": s.SessionsStarted.Load(),
			"sessionsStopped": s.SessionsStopped.Load(),
			"trackChanges":    s.TrackChanges.Load(),
			"seeksIssued":     s.SeeksIssued.Load(),
			"seeksFailed":     s.SeeksFailed.Load(),
		},
		"scans": map[string]int64{
			"run":          s.ScansRun.Load(),
			"failed":       s.ScansFailed.Load(),
			"clean":        s.SongsClean.Load(),
			"contaminated": s.SongsContaminated.Load(),
			"windowsBuilt": s.WindowsBuilt.Load(),
		},
		"lyrics": map[string]int64{
			"cacheHits":         s.CacheHits.Load(),
			"cacheMisses":       s.CacheMisses.Load(),
			"negativeCacheHits": s.NegativeCacheHits.Load(),
			"providerFailures":  s.ProviderFailures.Load(),
			"notFound":          s.LyricsNotFound.Load(),
		},
	}
}
