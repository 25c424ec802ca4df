package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ocdify-go/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SongLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	song := &models.Song{
		Title:      "Enter Sandman",
		Artist:     "Metallica",
		Album:      "Metallica",
		DurationMs: 331000,
		SpotifyID:  "spotify123",
	}
	require.NoError(t, store.CreateSong(ctx, song))
	require.NotZero(t, song.ID)

	got, err := store.GetSongBySpotifyID(ctx, "spotify123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, song.ID, got.ID)
	require.Equal(t, models.LyricsNotScanned, got.LyricsStatus)

	missing, err := store.GetSongBySpotifyID(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStore_LyricsStatusIsMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	song := &models.Song{Title: "t", Artist: "a", SpotifyID: "sp1"}
	require.NoError(t, store.CreateSong(ctx, song))

	require.NoError(t, store.UpdateSongLyricsStatus(ctx, song.ID, models.LyricsSynced))

	// A later downgrade attempt must not revert the terminal state.
	require.NoError(t, store.UpdateSongLyricsStatus(ctx, song.ID, models.LyricsNoResults))

	got, err := store.GetSong(ctx, song.ID)
	require.NoError(t, err)
	require.Equal(t, models.LyricsSynced, got.LyricsStatus)
}

func TestStore_CategoryWordsNormalized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := &models.TriggerCategory{
		Name:   "Violence",
		UserID: "user1",
		Active: true,
		Words:  []string{"Kill", "DEATH", " kill ", "", "blood"},
	}
	require.NoError(t, store.CreateCategory(ctx, cat))

	got, err := store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"blood", "death", "kill"}, got.Words)
}

func TestStore_ListCategoriesForUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	global := &models.TriggerCategory{Name: "Global", Active: true, Words: []string{"war"}}
	require.NoError(t, store.CreateCategory(ctx, global))
	mine := &models.TriggerCategory{Name: "Mine", UserID: "user1", Active: true, Words: []string{"spiders"}}
	require.NoError(t, store.CreateCategory(ctx, mine))
	other := &models.TriggerCategory{Name: "Other", UserID: "user2", Active: true, Words: []string{"heights"}}
	require.NoError(t, store.CreateCategory(ctx, other))

	withGlobal, err := store.ListCategoriesForUser(ctx, "user1", true)
	require.NoError(t, err)
	require.Len(t, withGlobal, 2)

	ownOnly, err := store.ListCategoriesForUser(ctx, "user1", false)
	require.NoError(t, err)
	require.Len(t, ownOnly, 1)
	require.Equal(t, "Mine", ownOnly[0].Name)
}

func TestStore_UpdateCategoryOwnership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := &models.TriggerCategory{Name: "Mine", UserID: "user1", Active: true, Words: []string{"old"}}
	require.NoError(t, store.CreateCategory(ctx, cat))

	// Another user cannot touch it.
	ok, err := store.UpdateCategory(ctx, cat.ID, "Stolen", []string{"x"}, true, "user2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.UpdateCategory(ctx, cat.ID, "Renamed", []string{"New", "words"}, false, "user1")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.False(t, got.Active)
	require.Equal(t, []string{"new", "words"}, got.Words)
}

func TestStore_UserSongStatusUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	song := &models.Song{Title: "t", Artist: "a", SpotifyID: "sp2"}
	require.NoError(t, store.CreateSong(ctx, song))

	st, err := store.GetUserSongStatus(ctx, song.ID, "user1")
	require.NoError(t, err)
	require.Nil(t, st)

	require.NoError(t, store.SetUserSongStatus(ctx, models.UserSongStatus{
		SongID: song.ID, UserID: "user1", Verdict: models.VerdictContaminated, HasSynced: true,
	}))
	require.NoError(t, store.SetUserSongStatus(ctx, models.UserSongStatus{
		SongID: song.ID, UserID: "user1", Verdict: models.VerdictClean, HasSynced: true,
	}))

	st, err = store.GetUserSongStatus(ctx, song.ID, "user1")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, models.VerdictClean, st.Verdict)
	require.True(t, st.HasSynced)
}

func TestStore_WindowsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	song := &models.Song{Title: "t", Artist: "a", SpotifyID: "sp3"}
	require.NoError(t, store.CreateSong(ctx, song))

	windows := []models.TriggerWindow{
		{CategoryID: 1, Words: []string{"death", "kill"}, StartMs: 10000, EndMs: 15000},
		{CategoryID: 2, Words: []string{"spiders"}, StartMs: 40000, EndMs: 45000},
	}
	require.NoError(t, store.ReplaceWindows(ctx, song.ID, "user1", windows))

	got, err := store.GetWindows(ctx, song.ID, "user1")
	require.NoError(t, err)
	require.Equal(t, windows, got)

	// Replacing swaps the whole list.
	require.NoError(t, store.ReplaceWindows(ctx, song.ID, "user1", windows[:1]))
	got, err = store.GetWindows(ctx, song.ID, "user1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Other users see nothing.
	other, err := store.GetWindows(ctx, song.ID, "user2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestStore_ListContaminatedSongs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dirty := &models.Song{Title: "Dirty", Artist: "a", SpotifyID: "sp4"}
	clean := &models.Song{Title: "Clean", Artist: "a", SpotifyID: "sp5"}
	require.NoError(t, store.CreateSong(ctx, dirty))
	require.NoError(t, store.CreateSong(ctx, clean))

	require.NoError(t, store.SetUserSongStatus(ctx, models.UserSongStatus{
		SongID: dirty.ID, UserID: "user1", Verdict: models.VerdictContaminated,
	}))
	require.NoError(t, store.SetUserSongStatus(ctx, models.UserSongStatus{
		SongID: clean.ID, UserID: "user1", Verdict: models.VerdictClean,
	}))

	songs, err := store.ListContaminatedSongs(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	require.Equal(t, "Dirty", songs[0].Title)
}
