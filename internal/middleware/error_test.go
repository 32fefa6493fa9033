package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestErrorHandlerPassThrough(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))

	req := httptest.NewRequest("GET", "/api/v1/schedule", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestErrorHandlerPanicRecovery(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("session store unavailable")
	}))

	req := httptest.NewRequest("POST", "/api/v1/pomodoro/start", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", ct)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Success {
		t.Error("expected success to be false")
	}
	if body.Error != "Internal Server Error" {
		t.Errorf("expected error 'Internal Server Error', got %q", body.Error)
	}
	if body.Message != "An unexpected error occurred" {
		t.Errorf("unexpected message %q", body.Message)
	}
	if body.Path != "/api/v1/pomodoro/start" {
		t.Errorf("expected request path in body, got %q", body.Path)
	}
	if body.Timestamp == "" {
		t.Error("expected timestamp to be set")
	}
}

func TestErrorHandlerRuntimePanic(t *testing.T) {
	t.Parallel()

	handler := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var counts map[string]int
		counts["sessions"]++ // nil map write
	}))

	req := httptest.NewRequest("GET", "/api/v1/pomodoro/summary", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
