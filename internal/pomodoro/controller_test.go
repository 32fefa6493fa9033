package pomodoro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"go.uber.org/zap"
)

type fakeSessionStore struct {
	created      []*models.PomodoroSession
	completed    []uuid.UUID
	createErr    error
	completeErr  error
	listSessions []*models.PomodoroSession
	listErr      error
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.PomodoroSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, session)
	return nil
}

func (f *fakeSessionStore) Complete(ctx context.Context, id, userID uuid.UUID, completedAt time.Time) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeSessionStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.PomodoroSession, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listSessions, nil
}

func newTestController(store *fakeSessionStore, duration time.Duration) *Controller {
	return NewController(uuid.New(), store, duration, zap.NewNop())
}

func TestStartCreatesOneSession(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)

	session, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if session.Duration != 25 {
		t.Errorf("session duration = %d, want 25", session.Duration)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d sessions, want 1", len(store.created))
	}

	status := c.Status()
	if status.State != StateRunning {
		t.Errorf("state = %q, want running", status.State)
	}
	if status.RemainingSeconds != 25*60 {
		t.Errorf("remaining = %d, want %d", status.RemainingSeconds, 25*60)
	}

	// A second start before completion or reset must not create another row
	if _, err := c.Start(context.Background()); !errors.Is(err, ErrSessionInProgress) {
		t.Errorf("second Start() error = %v, want ErrSessionInProgress", err)
	}
	if len(store.created) != 1 {
		t.Errorf("created %d sessions after second start, want 1", len(store.created))
	}
}

func TestStartCreateFailureStaysIdle(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{createErr: errors.New("db down")}
	c := newTestController(store, 25*time.Minute)

	if _, err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}

	status := c.Status()
	if status.State != StateIdle {
		t.Errorf("state after failed start = %q, want idle", status.State)
	}
	if status.SessionID != nil {
		t.Error("session id set after failed start")
	}
}

func TestTickCompletesAtZero(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 2*time.Second)

	status, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !status.Ticking {
		t.Fatal("controller not ticking after toggle from idle")
	}
	sessionID := *status.SessionID

	c.Tick(context.Background())
	if got := c.Status().RemainingSeconds; got != 1 {
		t.Fatalf("remaining after one tick = %d, want 1", got)
	}

	c.Tick(context.Background())

	if len(store.completed) != 1 {
		t.Fatalf("completion writes = %d, want exactly 1", len(store.completed))
	}
	if store.completed[0] != sessionID {
		t.Errorf("completed session = %s, want %s", store.completed[0], sessionID)
	}

	status = c.Status()
	if status.State != StateIdle {
		t.Errorf("state after natural completion = %q, want idle", status.State)
	}
	if status.RemainingSeconds != 2 {
		t.Errorf("remaining after completion = %d, want full duration", status.RemainingSeconds)
	}

	// Further ticks on an idle controller do nothing
	c.Tick(context.Background())
	if len(store.completed) != 1 {
		t.Errorf("completion writes after idle tick = %d, want 1", len(store.completed))
	}
}

func TestTogglePausesAndResumesSameSession(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)
	ctx := context.Background()

	status, err := c.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	first := *status.SessionID

	status, err = c.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() pause error = %v", err)
	}
	if status.Ticking {
		t.Error("still ticking after pause")
	}
	if status.SessionID == nil || *status.SessionID != first {
		t.Error("pause dropped the open session id")
	}

	status, err = c.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() resume error = %v", err)
	}
	if !status.Ticking {
		t.Error("not ticking after resume")
	}
	if len(store.created) != 1 {
		t.Errorf("created %d sessions across pause/resume, want 1", len(store.created))
	}
}

func TestResetAbandonsSession(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)
	ctx := context.Background()

	if _, err := c.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	c.Tick(ctx)
	c.Tick(ctx)

	status := c.Reset()
	if status.State != StateIdle {
		t.Errorf("state after reset = %q, want idle", status.State)
	}
	if status.RemainingSeconds != 25*60 {
		t.Errorf("remaining after reset = %d, want full duration", status.RemainingSeconds)
	}
	if len(store.completed) != 0 {
		t.Errorf("reset marked %d sessions completed, want 0", len(store.completed))
	}
}

func TestCompleteSession(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)
	ctx := context.Background()

	if err := c.CompleteSession(ctx); !errors.Is(err, ErrNoOpenSession) {
		t.Errorf("CompleteSession() with no session error = %v, want ErrNoOpenSession", err)
	}

	if _, err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.CompleteSession(ctx); err != nil {
		t.Fatalf("CompleteSession() error = %v", err)
	}
	if len(store.completed) != 1 {
		t.Errorf("completion writes = %d, want 1", len(store.completed))
	}
	if got := c.Status().State; got != StateIdle {
		t.Errorf("state after completion = %q, want idle", got)
	}
}

func TestCompleteSessionAlreadyCompleted(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)
	ctx := context.Background()

	if _, err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Storage says the row is already closed: reject, then return to idle
	store.completeErr = database.ErrSessionAlreadyCompleted
	if err := c.CompleteSession(ctx); !errors.Is(err, database.ErrSessionAlreadyCompleted) {
		t.Fatalf("CompleteSession() error = %v, want ErrSessionAlreadyCompleted", err)
	}

	status := c.Status()
	if status.State != StateIdle {
		t.Errorf("state after rejected completion = %q, want idle", status.State)
	}
	if status.RemainingSeconds != 25*60 {
		t.Errorf("remaining = %d, want full duration", status.RemainingSeconds)
	}
}

func TestCompleteSessionWriteFailureKeepsState(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	c := newTestController(store, 25*time.Minute)
	ctx := context.Background()

	if _, err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	store.completeErr = errors.New("network error")
	if err := c.CompleteSession(ctx); err == nil {
		t.Fatal("CompleteSession() expected error")
	}

	// The open session survives for a manual retry
	status := c.Status()
	if status.State != StateRunning {
		t.Errorf("state after failed completion = %q, want running", status.State)
	}

	store.completeErr = nil
	if err := c.CompleteSession(ctx); err != nil {
		t.Fatalf("retry CompleteSession() error = %v", err)
	}
	if got := c.Status().State; got != StateIdle {
		t.Errorf("state after retry = %q, want idle", got)
	}
}

func TestManagerControllerPerUser(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeSessionStore{}, 25*time.Minute, zap.NewNop())
	defer m.Shutdown()

	alice := uuid.New()
	bob := uuid.New()

	if m.Controller(alice) != m.Controller(alice) {
		t.Error("same user got different controllers")
	}
	if m.Controller(alice) == m.Controller(bob) {
		t.Error("different users share a controller")
	}
}

func TestDailySummary(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	completedAt := now.Add(-time.Hour)
	store := &fakeSessionStore{
		listSessions: []*models.PomodoroSession{
			{ID: uuid.New(), Duration: 25, Completed: true, CompletedAt: &completedAt},
			{ID: uuid.New(), Duration: 25, Completed: true, CompletedAt: &completedAt},
			{ID: uuid.New(), Duration: 25, Completed: false},
		},
	}
	m := NewManager(store, 25*time.Minute, zap.NewNop())

	summary, err := m.DailySummary(context.Background(), uuid.New(), now)
	if err != nil {
		t.Fatalf("DailySummary() error = %v", err)
	}
	if summary.CompletedCount != 2 {
		t.Errorf("completed count = %d, want 2", summary.CompletedCount)
	}
	if summary.CompletedMinutes != 50 {
		t.Errorf("completed minutes = %d, want 50", summary.CompletedMinutes)
	}
	if len(summary.Sessions) != 3 {
		t.Errorf("session list length = %d, want 3", len(summary.Sessions))
	}
}
