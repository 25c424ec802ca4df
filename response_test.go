package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestAPIResponse_SetSessionState(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		expected string
	}{
		{"idle state", "idle", "idle"},
		{"tracking state", "tracking", "tracking"},
		{"scanning state", "scanning", "scanning"},
		{"empty state - no header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			Respond(w, r).SetSessionState(tt.state).JSON(map[string]string{"test": "data"})

			if got := w.Header().Get("X-Session-State"); got != tt.expected {
				t.Errorf("X-Session-State = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_RateLimitTypeFromContext(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)
	r = r.WithContext(context.WithValue(r.Context(), rateLimitTypeKey, "bypass"))

	Respond(w, r).JSON(map[string]string{"test": "data"})

	if got := w.Header().Get("X-RateLimit-Type"); got != "bypass" {
		t.Errorf("X-RateLimit-Type = %q, want %q", got, "bypass")
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestAPIResponse_Error(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	Respond(w, r).Error(404, "Not found", "nothing here")

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error != "Not found" || body.Message != "nothing here" {
		t.Errorf("unexpected error body: %+v", body)
	}
}
