package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
)

// Server and plumbing log prefixes
const (
	LogServer    = Green + "[Server]" + Reset
	LogConfig    = Cyan + "[Config]" + Reset
	LogDB        = Blue + "[DB]" + Reset
	LogStats     = Blue + "[Stats]" + Reset
	LogCron      = Cyan + "[Cron]" + Reset
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// Cache log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheLyrics   = Green + "[Cache:Lyrics]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
)

// Lyrics discovery log prefixes
const (
	LogSearch   = Blue + "[Search]" + Reset
	LogLyrics   = Blue + "[Lyrics]" + Reset
	LogFallback = Cyan + "[Fallback]" + Reset
	LogHTTP     = Cyan + "[HTTP]" + Reset
)

// Scan pipeline log prefixes
const (
	LogScan    = Blue + "[Scan]" + Reset
	LogMatch   = Green + "[Match]" + Reset
	LogWindows = Green + "[Windows]" + Reset
)

// Monitoring log prefixes
const (
	LogMonitor  = Green + "[Monitor]" + Reset
	LogSession  = Cyan + "[Session]" + Reset
	LogSkip     = Purple + "[Skip]" + Reset
	LogPlayback = Blue + "[Playback]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}
