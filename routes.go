package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Monitoring sessions
	router.HandleFunc("/api/monitoring/start", startMonitoring).Methods(http.MethodPost)
	router.HandleFunc("/api/monitoring/stop", stopMonitoring).Methods(http.MethodPost)
	router.HandleFunc("/api/monitoring/status", getMonitoringStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/monitoring/sessions", listSessions).Methods(http.MethodGet)

	// Trigger category management
	router.HandleFunc("/api/trigger-categories", listCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/trigger-categories", createCategory).Methods(http.MethodPost)
	router.HandleFunc("/api/trigger-categories/{id}", updateCategory).Methods(http.MethodPut)
	router.HandleFunc("/api/trigger-categories/{id}", deleteCategory).Methods(http.MethodDelete)

	// Song library
	router.HandleFunc("/api/songs/contaminated", listContaminatedSongs).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}/triggers", getSongTriggers).Methods(http.MethodGet)

	// Scanning
	router.HandleFunc("/api/lyrics/scan", scanSong).Methods(http.MethodPost)
	router.HandleFunc("/api/lyrics/check", checkText).Methods(http.MethodPost)

	// User credentials
	router.HandleFunc("/api/users/me", upsertUser).Methods(http.MethodPut)
	router.HandleFunc("/api/users/me", getCurrentUser).Methods(http.MethodGet)
	router.HandleFunc("/api/users/me", deleteUser).Methods(http.MethodDelete)

	// Cache management endpoints
	router.HandleFunc("/api/cache", getCacheDump).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/clear", clearCache)

	// Health and stats endpoints
	router.HandleFunc("/api/health", getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", getStats).Methods(http.MethodGet)
	router.HandleFunc("/api/info", getInfo).Methods(http.MethodGet)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
