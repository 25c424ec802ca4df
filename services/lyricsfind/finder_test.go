package lyricsfind

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ocdify-go/cache"
	"ocdify-go/circuitbreaker"
)

type fakeProvider struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchLyrics(_ context.Context, _, _, _ string, _ int) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestCache(t *testing.T) *cache.PersistentCache {
	t.Helper()
	pc, err := cache.NewPersistentCache(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	return pc
}

func TestFinder_FallbackOrder(t *testing.T) {
	first := &fakeProvider{name: "first", result: &Result{Found: false}}
	second := &fakeProvider{name: "second", result: &Result{Found: true, SyncedLyrics: "[00:01.00]hi", Provider: "second"}}
	third := &fakeProvider{name: "third", result: &Result{Found: true, Provider: "third"}}

	finder := NewFinder(Options{}, first, second, third)

	result, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "second", result.Provider)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Equal(t, 0, third.calls, "chain should stop at the first hit")
}

func TestFinder_ProviderErrorFallsThrough(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("boom")}
	working := &fakeProvider{name: "working", result: &Result{Found: true, PlainLyrics: "words", Provider: "working"}}

	finder := NewFinder(Options{}, broken, working)

	result, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "working", result.Provider)
}

func TestFinder_AllMissReturnsNotFound(t *testing.T) {
	finder := NewFinder(Options{},
		&fakeProvider{name: "a", result: &Result{Found: false}},
		&fakeProvider{name: "b", result: &Result{Found: false}},
	)

	result, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestFinder_PositiveCacheSkipsProviders(t *testing.T) {
	provider := &fakeProvider{name: "p", result: &Result{Found: true, SyncedLyrics: "[00:01.00]x", Provider: "p"}}
	finder := NewFinder(Options{
		Cache:       newTestCache(t),
		PositiveTTL: time.Hour,
		NegativeTTL: time.Hour,
	}, provider)

	first, err := finder.FindLyrics(context.Background(), "Artist", "Title", "Album", 0)
	require.NoError(t, err)
	require.True(t, first.Found)

	second, err := finder.FindLyrics(context.Background(), "Artist", "Title", "Album", 0)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.calls, "second lookup should come from cache")
}

func TestFinder_NegativeCacheSkipsProviders(t *testing.T) {
	provider := &fakeProvider{name: "p", result: &Result{Found: false}}
	finder := NewFinder(Options{
		Cache:       newTestCache(t),
		PositiveTTL: time.Hour,
		NegativeTTL: time.Hour,
	}, provider)

	_, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)

	result, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)
	require.False(t, result.Found)
	require.Equal(t, 1, provider.calls)
}

func TestFinder_FailureNotCachedNegative(t *testing.T) {
	provider := &fakeProvider{name: "p", err: errors.New("down")}
	finder := NewFinder(Options{
		Cache:       newTestCache(t),
		PositiveTTL: time.Hour,
		NegativeTTL: time.Hour,
	}, provider)

	_, err := finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)

	// The outage must not be remembered as "no lyrics exist".
	_, err = finder.FindLyrics(context.Background(), "artist", "title", "", 0)
	require.NoError(t, err)
	require.Equal(t, 2, provider.calls)
}

func TestFinder_BreakerBlocksAfterThreshold(t *testing.T) {
	provider := &fakeProvider{name: "flaky", err: errors.New("down")}
	finder := NewFinder(Options{
		BreakerConfig: circuitbreaker.Config{Threshold: 2, Cooldown: time.Hour},
	}, provider)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := finder.FindLyrics(ctx, "artist", "title", "", 0)
		require.NoError(t, err)
	}
	require.Equal(t, 2, provider.calls, "third call should be blocked by the open circuit")

	status := finder.BreakerStatus()
	require.Equal(t, "OPEN", status["flaky"])
}
