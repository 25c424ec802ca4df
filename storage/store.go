package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"ocdify-go/logcolors"
	"ocdify-go/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the sqlite-backed persistence layer. It is the source of truth
// for songs, categories, per-user scan status and trigger windows; session
// memory state is only a cache over it.
type Store struct {
	db *sql.DB
}

// New opens the database at path, applying any pending migrations.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Infof("%s Store initialized at %s", logcolors.LogDB, path)
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	return 0
}

// ---- users ----

func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, display_name, access_token, refresh_token, token_expiry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry`,
		u.ID, u.DisplayName, u.AccessToken, u.RefreshToken, u.TokenExpiry)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var expiry sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name, access_token, refresh_token, token_expiry, created_at
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.DisplayName, &u.AccessToken, &u.RefreshToken, &expiry, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if expiry.Valid {
		u.TokenExpiry = expiry.Time
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// ---- songs ----

func (s *Store) CreateSong(ctx context.Context, song *models.Song) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO songs (title, artist, album, duration_ms, spotify_id, lyrics_status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		song.Title, song.Artist, song.Album, song.DurationMs, song.SpotifyID, int(song.LyricsStatus))
	if err != nil {
		return fmt.Errorf("create song %q: %w", song.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create song id: %w", err)
	}
	song.ID = id
	return nil
}

func (s *Store) GetSongBySpotifyID(ctx context.Context, spotifyID string) (*models.Song, error) {
	return s.scanSong(s.db.QueryRowContext(ctx, `SELECT id, title, artist, album, duration_ms, spotify_id, lyrics_status, created_at, updated_at
		FROM songs WHERE spotify_id = ?`, spotifyID))
}

func (s *Store) GetSong(ctx context.Context, id int64) (*models.Song, error) {
	return s.scanSong(s.db.QueryRowContext(ctx, `SELECT id, title, artist, album, duration_ms, spotify_id, lyrics_status, created_at, updated_at
		FROM songs WHERE id = ?`, id))
}

func (s *Store) scanSong(row *sql.Row) (*models.Song, error) {
	var song models.Song
	var status int
	err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.Album, &song.DurationMs,
		&song.SpotifyID, &status, &song.CreatedAt, &song.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan song: %w", err)
	}
	song.LyricsStatus = models.LyricsStatus(status)
	return &song, nil
}

// UpdateSongLyricsStatus advances a song's lyrics status. The status only
// moves forward; a lower value never overwrites a higher one.
func (s *Store) UpdateSongLyricsStatus(ctx context.Context, songID int64, status models.LyricsStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE songs
		SET lyrics_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND lyrics_status < ?`, int(status), songID, int(status))
	if err != nil {
		return fmt.Errorf("update song %d lyrics status: %w", songID, err)
	}
	return nil
}

// ListContaminatedSongs returns every song the given user has a
// contaminated verdict for.
func (s *Store) ListContaminatedSongs(ctx context.Context, userID string) ([]models.Song, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.title, s.artist, s.album, s.duration_ms, s.spotify_id, s.lyrics_status, s.created_at, s.updated_at
		FROM songs s
		JOIN user_song_status uss ON uss.song_id = s.id
		WHERE uss.user_id = ? AND uss.scan_status = ?
		ORDER BY s.artist, s.title`, userID, int(models.VerdictContaminated))
	if err != nil {
		return nil, fmt.Errorf("list contaminated songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		var status int
		if err := rows.Scan(&song.ID, &song.Title, &song.Artist, &song.Album, &song.DurationMs,
			&song.SpotifyID, &status, &song.CreatedAt, &song.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contaminated song: %w", err)
		}
		song.LyricsStatus = models.LyricsStatus(status)
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// ---- trigger categories ----

func (s *Store) CreateCategory(ctx context.Context, cat *models.TriggerCategory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create category: %w", err)
	}
	defer tx.Rollback()

	var userID interface{}
	if cat.UserID != "" {
		userID = cat.UserID
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO trigger_categories (name, user_id, active) VALUES (?, ?, ?)`,
		cat.Name, userID, cat.Active)
	if err != nil {
		return fmt.Errorf("create category %q: %w", cat.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create category id: %w", err)
	}
	cat.ID = id

	if err := insertWords(ctx, tx, id, cat.Words); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create category: %w", err)
	}
	cat.Words = normalizeWords(cat.Words)
	return nil
}

// UpdateCategory replaces a category's name, active flag and word list.
// Only the owning user (or a global category owner passing userID "") may
// update it; returns false when no row matched.
func (s *Store) UpdateCategory(ctx context.Context, id int64, name string, words []string, active bool, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin update category: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if userID == "" {
		res, err = tx.ExecContext(ctx, `UPDATE trigger_categories SET name = ?, active = ? WHERE id = ? AND user_id IS NULL`,
			name, active, id)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE trigger_categories SET name = ?, active = ? WHERE id = ? AND user_id = ?`,
			name, active, id, userID)
	}
	if err != nil {
		return false, fmt.Errorf("update category %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update category %d affected: %w", id, err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trigger_words WHERE category_id = ?`, id); err != nil {
		return false, fmt.Errorf("clear words for category %d: %w", id, err)
	}
	if err := insertWords(ctx, tx, id, words); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update category: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64, userID string) (bool, error) {
	var res sql.Result
	var err error
	if userID == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM trigger_categories WHERE id = ? AND user_id IS NULL`, id)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM trigger_categories WHERE id = ? AND user_id = ?`, id, userID)
	}
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete category %d affected: %w", id, err)
	}
	return affected > 0, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*models.TriggerCategory, error) {
	var cat models.TriggerCategory
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, user_id, active FROM trigger_categories WHERE id = ?`, id).
		Scan(&cat.ID, &cat.Name, &userID, &cat.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	cat.UserID = userID.String

	words, err := s.categoryWords(ctx, id)
	if err != nil {
		return nil, err
	}
	cat.Words = words
	return &cat, nil
}

// ListCategoriesForUser returns the user's own categories plus, when
// includeGlobal is set, the global ones. Words come back lower-cased, so
// the matcher never folds case per lookup.
func (s *Store) ListCategoriesForUser(ctx context.Context, userID string, includeGlobal bool) ([]models.TriggerCategory, error) {
	query := `SELECT id, name, user_id, active FROM trigger_categories WHERE user_id = ?`
	args := []interface{}{userID}
	if includeGlobal {
		query += ` OR user_id IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []models.TriggerCategory
	for rows.Next() {
		var cat models.TriggerCategory
		var uid sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &uid, &cat.Active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.UserID = uid.String
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cats {
		words, err := s.categoryWords(ctx, cats[i].ID)
		if err != nil {
			return nil, err
		}
		cats[i].Words = words
	}
	return cats, nil
}

func (s *Store) categoryWords(ctx context.Context, categoryID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM trigger_words WHERE category_id = ? ORDER BY word`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list words for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func insertWords(ctx context.Context, tx *sql.Tx, categoryID int64, words []string) error {
	for _, word := range normalizeWords(words) {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO trigger_words (category_id, word) VALUES (?, ?)`,
			categoryID, word); err != nil {
			return fmt.Errorf("insert word %q: %w", word, err)
		}
	}
	return nil
}

// normalizeWords lower-cases, trims and dedupes a word list. Case folding
// happens once here, at the storage boundary.
func normalizeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// ---- user song status ----

func (s *Store) GetUserSongStatus(ctx context.Context, songID int64, userID string) (*models.UserSongStatus, error) {
	var st models.UserSongStatus
	var verdict int
	err := s.db.QueryRowContext(ctx, `SELECT song_id, user_id, scan_status, has_synced, updated_at
		FROM user_song_status WHERE song_id = ? AND user_id = ?`, songID, userID).
		Scan(&st.SongID, &st.UserID, &verdict, &st.HasSynced, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user song status (%d, %s): %w", songID, userID, err)
	}
	st.Verdict = models.ScanVerdict(verdict)
	return &st, nil
}

func (s *Store) SetUserSongStatus(ctx context.Context, st models.UserSongStatus) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_song_status (song_id, user_id, scan_status, has_synced, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(song_id, user_id) DO UPDATE SET
			scan_status = excluded.scan_status,
			has_synced = excluded.has_synced,
			updated_at = CURRENT_TIMESTAMP`,
		st.SongID, st.UserID, int(st.Verdict), st.HasSynced)
	if err != nil {
		return fmt.Errorf("set user song status (%d, %s): %w", st.SongID, st.UserID, err)
	}
	return nil
}

// ---- trigger windows ----

// ReplaceWindows atomically swaps the persisted window list for a
// (song, user) pair.
func (s *Store) ReplaceWindows(ctx context.Context, songID int64, userID string, windows []models.TriggerWindow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace windows: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trigger_windows WHERE song_id = ? AND user_id = ?`, songID, userID); err != nil {
		return fmt.Errorf("clear windows (%d, %s): %w", songID, userID, err)
	}
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO trigger_windows (song_id, user_id, category_id, words, start_ms, end_ms)
			VALUES (?, ?, ?, ?, ?, ?)`,
			songID, userID, w.CategoryID, strings.Join(w.Words, ","), w.StartMs, w.EndMs); err != nil {
			return fmt.Errorf("insert window (%d, %s): %w", songID, userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace windows: %w", err)
	}
	return nil
}

// GetWindows reconstructs a session's window list from storage alone,
// ordered by start offset.
func (s *Store) GetWindows(ctx context.Context, songID int64, userID string) ([]models.TriggerWindow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category_id, words, start_ms, end_ms
		FROM trigger_windows WHERE song_id = ? AND user_id = ?
		ORDER BY start_ms, category_id`, songID, userID)
	if err != nil {
		return nil, fmt.Errorf("get windows (%d, %s): %w", songID, userID, err)
	}
	defer rows.Close()

	var windows []models.TriggerWindow
	for rows.Next() {
		var w models.TriggerWindow
		var words string
		if err := rows.Scan(&w.CategoryID, &words, &w.StartMs, &w.EndMs); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		if words != "" {
			w.Words = strings.Split(words, ",")
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// CountWindows returns the number of persisted windows for a user.
func (s *Store) CountWindows(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trigger_windows WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count windows for %s: %w", userID, err)
	}
	return n, nil
}
