package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/pomodoro"
	"go.uber.org/zap"
)

type stubSessionStore struct {
	created     int
	completeErr error
}

func (s *stubSessionStore) Create(ctx context.Context, session *models.PomodoroSession) error {
	s.created++
	return nil
}

func (s *stubSessionStore) Complete(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) error {
	return s.completeErr
}

func (s *stubSessionStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error) {
	return nil, nil
}

func newPomodoroHandler(store *stubSessionStore) (*PomodoroHandler, *pomodoro.Manager) {
	m := pomodoro.NewManager(store, 25*time.Minute, zap.NewNop())
	return NewPomodoroHandler(m), m
}

func TestPomodoroStart(t *testing.T) {
	t.Parallel()

	store := &stubSessionStore{}
	h, m := newPomodoroHandler(store)
	defer m.Shutdown()

	userID := uuid.New()
	w := httptest.NewRecorder()
	h.Start(w, authedRequest("POST", "/api/v1/pomodoro/start", "", userID))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if store.created != 1 {
		t.Errorf("created %d sessions, want 1", store.created)
	}

	var resp struct {
		Data pomodoro.Status `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.State != pomodoro.StateRunning {
		t.Errorf("state = %q, want running", resp.Data.State)
	}
	if resp.Data.RemainingSeconds != 25*60 {
		t.Errorf("remaining = %d, want %d", resp.Data.RemainingSeconds, 25*60)
	}
}

func TestPomodoroStartConflict(t *testing.T) {
	t.Parallel()

	store := &stubSessionStore{}
	h, m := newPomodoroHandler(store)
	defer m.Shutdown()

	userID := uuid.New()

	w := httptest.NewRecorder()
	h.Start(w, authedRequest("POST", "/api/v1/pomodoro/start", "", userID))
	if w.Code != http.StatusCreated {
		t.Fatalf("first start status = %d, want 201", w.Code)
	}

	w = httptest.NewRecorder()
	h.Start(w, authedRequest("POST", "/api/v1/pomodoro/start", "", userID))
	if w.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", w.Code)
	}
	if store.created != 1 {
		t.Errorf("created %d sessions, want 1", store.created)
	}
}

func TestPomodoroCompleteWithoutSession(t *testing.T) {
	t.Parallel()

	h, m := newPomodoroHandler(&stubSessionStore{})
	defer m.Shutdown()

	w := httptest.NewRecorder()
	h.Complete(w, authedRequest("POST", "/api/v1/pomodoro/complete", "", uuid.New()))

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestPomodoroCompleteAlreadyCompleted(t *testing.T) {
	t.Parallel()

	store := &stubSessionStore{}
	h, m := newPomodoroHandler(store)
	defer m.Shutdown()

	userID := uuid.New()

	w := httptest.NewRecorder()
	h.Start(w, authedRequest("POST", "/api/v1/pomodoro/start", "", userID))
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d", w.Code)
	}

	store.completeErr = database.ErrSessionAlreadyCompleted
	w = httptest.NewRecorder()
	h.Complete(w, authedRequest("POST", "/api/v1/pomodoro/complete", "", userID))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestPomodoroResetRequiresAuth(t *testing.T) {
	t.Parallel()

	h, m := newPomodoroHandler(&stubSessionStore{})
	defer m.Shutdown()

	w := httptest.NewRecorder()
	h.Reset(w, httptest.NewRequest("POST", "/api/v1/pomodoro/reset", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
