package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"ocdify-go/logcolors"
	"ocdify-go/models"
	"ocdify-go/services/monitor"
	"ocdify-go/stats"
)

// requireUser extracts the caller identity or writes a 400.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Missing user", "Provide your user ID via the X-User-ID header")
		return "", false
	}
	return userID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Start playback monitoring with POST /api/monitoring/start (X-User-ID header required). Manage trigger words via /api/trigger-categories.",
		"endpoints": []string{
			"POST /api/monitoring/start",
			"POST /api/monitoring/stop",
			"GET  /api/monitoring/status",
			"GET  /api/monitoring/sessions",
			"GET  /api/trigger-categories",
			"POST /api/trigger-categories",
			"PUT  /api/trigger-categories/{id}",
			"DELETE /api/trigger-categories/{id}",
			"GET  /api/songs/contaminated",
			"GET  /api/songs/{id}/triggers",
			"POST /api/lyrics/scan",
			"POST /api/lyrics/check",
			"PUT  /api/users/me",
			"GET  /api/users/me",
			"DELETE /api/users/me",
			"GET  /api/health",
			"GET  /api/stats",
			"GET  /api/info",
			"GET  /api/cache",
			"POST /api/cache/clear",
		},
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(stats.Get().StartTime).Seconds()),
		"sessions":       supervisor.Count(),
		"cache_entries":  lyricsCache.Len(),
		"providers":      finder.BreakerStatus(),
	})
}

func getStats(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(stats.Get().Snapshot())
}

// getInfo exposes the effective tuning parameters and provider health.
func getInfo(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"skip": map[string]int{
			"buffer_ms":          conf.Configuration.SkipBufferMs,
			"post_skip_pad_ms":   conf.Configuration.PostSkipPadMs,
			"merge_threshold_ms": conf.Configuration.MergeThresholdMs,
			"line_pad_ms":        conf.Configuration.LinePadMs,
		},
		"polling": map[string]string{
			"active":        conf.PollInterval().String(),
			"idle":          conf.IdlePollInterval().String(),
			"retry_backoff": conf.RetryBackoff().String(),
		},
		"providers":         finder.BreakerStatus(),
		"cache_compression": conf.FeatureFlags.CacheCompression,
		"sessions":          supervisor.Count(),
	})
}

// --- Monitoring ---

func startMonitoring(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := supervisor.Start(appCtx, userID); err != nil {
		if err == monitor.ErrAlreadyMonitoring {
			Respond(w, r).Error(http.StatusConflict, "Already monitoring", "A session is already running for this user")
			return
		}
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to start monitoring", err.Error())
		return
	}
	status, _ := supervisor.SessionStatus(userID)
	Respond(w, r).SetSessionState(status.State).Status(http.StatusCreated, status)
}

func stopMonitoring(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := supervisor.Stop(userID); err != nil {
		Respond(w, r).Error(http.StatusNotFound, "Not monitoring", "No session is running for this user")
		return
	}
	Respond(w, r).JSON(map[string]string{"status": "stopped"})
}

func getMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status, err := supervisor.SessionStatus(userID)
	if err != nil {
		Respond(w, r).Error(http.StatusNotFound, "Not monitoring", "No session is running for this user")
		return
	}
	Respond(w, r).SetSessionState(status.State).JSON(status)
}

func listSessions(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"count":    supervisor.Count(),
		"sessions": supervisor.Statuses(),
	})
}

// --- Trigger categories ---

func listCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	includeGlobal := r.URL.Query().Get("own") != "true"
	categories, err := store.ListCategoriesForUser(r.Context(), userID, includeGlobal)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to list categories", err.Error())
		return
	}
	Respond(w, r).JSON(categories)
}

func createCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || len(req.Words) == 0 {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid category", "Both name and a non-empty word list are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	cat := &models.TriggerCategory{
		Name:   req.Name,
		UserID: userID,
		Active: active,
		Words:  req.Words,
	}
	if err := store.CreateCategory(r.Context(), cat); err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to create category", err.Error())
		return
	}
	log.Infof("%s User %s created category %q with %d words", logcolors.LogServer, userID, cat.Name, len(cat.Words))
	Respond(w, r).Status(http.StatusCreated, cat)
}

func updateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid category ID", err.Error())
		return
	}
	var req CategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := store.UpdateCategory(r.Context(), id, req.Name, req.Words, active, userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to update category", err.Error())
		return
	}
	if !updated {
		Respond(w, r).Error(http.StatusNotFound, "Category not found", "No category with that ID belongs to you")
		return
	}
	cat, err := store.GetCategory(r.Context(), id)
	if err != nil || cat == nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to reload category", "")
		return
	}
	Respond(w, r).JSON(cat)
}

func deleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid category ID", err.Error())
		return
	}
	deleted, err := store.DeleteCategory(r.Context(), id, userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to delete category", err.Error())
		return
	}
	if !deleted {
		Respond(w, r).Error(http.StatusNotFound, "Category not found", "No category with that ID belongs to you")
		return
	}
	Respond(w, r).JSON(map[string]string{"status": "deleted"})
}

// --- Songs ---

func listContaminatedSongs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	songs, err := store.ListContaminatedSongs(r.Context(), userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to list songs", err.Error())
		return
	}

	result := make([]ContaminatedSong, 0, len(songs))
	for _, song := range songs {
		windows, err := store.GetWindows(r.Context(), song.ID, userID)
		if err != nil {
			Respond(w, r).Error(http.StatusInternalServerError, "Failed to load windows", err.Error())
			return
		}
		result = append(result, ContaminatedSong{Song: song, Windows: windows})
	}
	Respond(w, r).JSON(result)
}

func getSongTriggers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid song ID", err.Error())
		return
	}
	song, err := store.GetSong(r.Context(), id)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load song", err.Error())
		return
	}
	if song == nil {
		Respond(w, r).Error(http.StatusNotFound, "Song not found", "")
		return
	}

	windows, err := store.GetWindows(r.Context(), id, userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load windows", err.Error())
		return
	}
	status, err := store.GetUserSongStatus(r.Context(), id, userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load scan status", err.Error())
		return
	}
	verdict := models.VerdictNotScanned
	if status != nil {
		verdict = status.Verdict
	}
	Respond(w, r).JSON(map[string]interface{}{
		"song":    song,
		"verdict": verdict.String(),
		"windows": windows,
	})
}

// --- Scanning ---

func scanSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req ScanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var song *models.Song
	var err error
	switch {
	case req.SongID != 0:
		song, err = store.GetSong(r.Context(), req.SongID)
	case req.SpotifyID != "":
		song, err = store.GetSongBySpotifyID(r.Context(), req.SpotifyID)
	default:
		Respond(w, r).Error(http.StatusBadRequest, "Invalid request", "Provide songId or spotifyId")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load song", err.Error())
		return
	}
	if song == nil {
		Respond(w, r).Error(http.StatusNotFound, "Song not found", "Register the song first or play it while monitored")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), conf.ScanTimeout())
	defer cancel()
	outcome, err := scanner.ScanSong(ctx, song, userID)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Scan failed", err.Error())
		return
	}
	Respond(w, r).JSON(outcome)
}

func checkText(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CheckTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid request", "Provide text to check")
		return
	}

	matches, err := scanner.ScanText(r.Context(), userID, req.Text)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Check failed", err.Error())
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"contaminated": len(matches) > 0,
		"matches":      matches,
	})
}

// --- Users ---

func upsertUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req UserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := models.User{
		ID:           userID,
		DisplayName:  req.DisplayName,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
	}
	if err := store.UpsertUser(r.Context(), user); err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to save user", err.Error())
		return
	}
	Respond(w, r).JSON(map[string]string{"status": "saved", "id": userID})
}

func getCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := store.GetUser(r.Context(), userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load user", err.Error())
		return
	}
	if user == nil {
		Respond(w, r).Error(http.StatusNotFound, "User not found", "")
		return
	}
	// Tokens stay server-side.
	user.AccessToken = ""
	user.RefreshToken = ""
	Respond(w, r).JSON(user)
}

func deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := supervisor.Stop(userID); err != nil && !errors.Is(err, monitor.ErrNotMonitoring) {
		log.Warnf("%s Failed to stop session for user %s during delete: %v", logcolors.LogSession, userID, err)
	}
	if err := store.DeleteUser(r.Context(), userID); err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to delete user", err.Error())
		return
	}
	Respond(w, r).JSON(map[string]string{"status": "deleted"})
}

// --- Cache ---

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	keys := lyricsCache.Keys()
	resp := CacheDumpResponse{NumberOfKeys: len(keys)}
	if r.URL.Query().Get("keys") == "true" {
		resp.Keys = keys
	}
	Respond(w, r).JSON(resp)
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		Respond(w, r).Error(http.StatusMethodNotAllowed, "Method not allowed", "Use POST")
		return
	}
	if err := lyricsCache.Clear(); err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to clear cache", err.Error())
		return
	}
	log.Infof("%s Cache cleared via API", logcolors.LogCache)
	Respond(w, r).JSON(map[string]string{"status": "cleared"})
}
