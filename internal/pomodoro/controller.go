package pomodoro

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrSessionInProgress is returned when Start is called while an open
	// session already exists.
	ErrSessionInProgress = errors.New("session already in progress")
	// ErrNoOpenSession is returned when a completion is requested with no
	// open session.
	ErrNoOpenSession = errors.New("no open session")
)

// State is the controller's lifecycle position. There is no persisted paused
// state: pausing stops the tick loop but keeps the open session id, so
// resuming continues the same row.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Status is a snapshot of a controller for the API surface.
type Status struct {
	State            State      `json:"state"`
	Ticking          bool       `json:"ticking"`
	SessionID        *uuid.UUID `json:"session_id,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	DurationMinutes  int        `json:"duration_minutes"`
}

// Controller runs one user's pomodoro countdown. Every transition (start,
// toggle, tick, complete, reset) runs under a single mutex so a tick cannot
// interleave with an in-flight completion write, and the tick loop is an
// owned field with an explicit lifecycle rather than ambient timer state.
type Controller struct {
	mu        sync.Mutex
	userID    uuid.UUID
	sessions  database.SessionStore
	duration  time.Duration
	remaining time.Duration
	sessionID *uuid.UUID
	ticking   bool
	stop      chan struct{}
	now       func() time.Time
	log       *zap.Logger
}

// NewController creates an idle controller for one user
func NewController(userID uuid.UUID, sessions database.SessionStore, duration time.Duration, log *zap.Logger) *Controller {
	return &Controller{
		userID:    userID,
		sessions:  sessions,
		duration:  duration,
		remaining: duration,
		now:       time.Now,
		log:       log,
	}
}

// Start creates one open session row and arms the countdown at the full
// configured duration. Valid only from idle; it does not begin ticking.
func (c *Controller) Start(ctx context.Context) (*models.PomodoroSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx, nil)
}

// StartForTask is Start with the session linked to a task.
func (c *Controller) StartForTask(ctx context.Context, taskID uuid.UUID) (*models.PomodoroSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx, &taskID)
}

func (c *Controller) startLocked(ctx context.Context, taskID *uuid.UUID) (*models.PomodoroSession, error) {
	if c.sessionID != nil {
		return nil, ErrSessionInProgress
	}

	session := &models.PomodoroSession{
		ID:        uuid.New(),
		UserID:    c.userID,
		Duration:  int(c.duration / time.Minute),
		TaskID:    taskID,
		StartedAt: c.now(),
	}
	if err := c.sessions.Create(ctx, session); err != nil {
		// Failed create leaves the controller idle with no countdown
		c.log.Error("failed_to_create_session",
			zap.String("user_id", c.userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	id := session.ID
	c.sessionID = &id
	c.remaining = c.duration
	return session, nil
}

// Toggle starts a session and begins ticking from idle, pauses the tick loop
// while running, and resumes the same session when paused. A paused session
// keeps its open row; only Reset or natural completion closes it.
func (c *Controller) Toggle(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == nil {
		if _, err := c.startLocked(ctx, nil); err != nil {
			return c.statusLocked(), err
		}
		c.startTickingLocked()
		return c.statusLocked(), nil
	}

	if c.ticking {
		c.stopTickingLocked()
	} else {
		c.startTickingLocked()
	}
	return c.statusLocked(), nil
}

// Tick advances the countdown by one second. The run loop calls this on a
// fixed one-second period; at zero it triggers exactly one completion.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ticking || c.sessionID == nil {
		return
	}

	c.remaining -= time.Second
	if c.remaining > 0 {
		return
	}
	c.remaining = 0

	if err := c.completeLocked(ctx); err != nil {
		c.log.Error("failed_to_complete_session",
			zap.String("user_id", c.userID.String()),
			zap.Error(err),
		)
	}
}

// CompleteSession closes the open session early. A session that is already
// completed in storage is rejected with ErrSessionAlreadyCompleted rather
// than silently rewritten.
func (c *Controller) CompleteSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == nil {
		return ErrNoOpenSession
	}
	return c.completeLocked(ctx)
}

// completeLocked writes the completion and, on success, returns the
// controller to idle. On failure the open session id and remaining time are
// left as they are so the user can retry.
func (c *Controller) completeLocked(ctx context.Context) error {
	c.stopTickingLocked()

	err := c.sessions.Complete(ctx, *c.sessionID, c.userID, c.now())
	if errors.Is(err, database.ErrSessionAlreadyCompleted) {
		// The row is already closed; drop the stale id instead of leaving
		// the controller pointing at it.
		c.sessionID = nil
		c.remaining = c.duration
		return err
	}
	if err != nil {
		return err
	}

	c.sessionID = nil
	c.remaining = c.duration
	return nil
}

// Reset stops ticking, restores the full duration, and abandons the open
// session without marking it completed.
func (c *Controller) Reset() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickingLocked()
	c.sessionID = nil
	c.remaining = c.duration
	return c.statusLocked()
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	s := Status{
		State:            StateIdle,
		Ticking:          c.ticking,
		RemainingSeconds: int(c.remaining / time.Second),
		DurationMinutes:  int(c.duration / time.Minute),
	}
	if c.sessionID != nil {
		s.State = StateRunning
		id := *c.sessionID
		s.SessionID = &id
	}
	return s
}

func (c *Controller) startTickingLocked() {
	if c.ticking {
		return
	}
	c.ticking = true
	c.stop = make(chan struct{})
	go c.run(c.stop)
}

func (c *Controller) stopTickingLocked() {
	if !c.ticking {
		return
	}
	c.ticking = false
	close(c.stop)
	c.stop = nil
}

func (c *Controller) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Tick(context.Background())
		}
	}
}

// Manager hands out one controller per user and owns their shutdown.
type Manager struct {
	mu          sync.Mutex
	controllers map[uuid.UUID]*Controller
	sessions    database.SessionStore
	duration    time.Duration
	log         *zap.Logger
}

// NewManager creates a controller manager with the configured session length
func NewManager(sessions database.SessionStore, duration time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		controllers: make(map[uuid.UUID]*Controller),
		sessions:    sessions,
		duration:    duration,
		log:         log,
	}
}

// Controller returns the user's controller, creating it on first use.
func (m *Manager) Controller(userID uuid.UUID) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[userID]; ok {
		return c
	}
	c := NewController(userID, m.sessions, m.duration, m.log)
	m.controllers[userID] = c
	return c
}

// Shutdown stops every running tick loop. Open sessions are left as-is in
// storage; they are abandoned rows, same as a reset.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.controllers {
		c.mu.Lock()
		c.stopTickingLocked()
		c.mu.Unlock()
	}
}

// DailySummary reads the user's sessions since the start of today and totals
// the completed ones. Read-only; not part of the controller's write path.
func (m *Manager) DailySummary(ctx context.Context, userID uuid.UUID, now time.Time) (*models.DailySummary, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sessions, err := m.sessions.ListSince(ctx, userID, startOfDay)
	if err != nil {
		return nil, err
	}

	summary := &models.DailySummary{Sessions: sessions}
	for _, s := range sessions {
		if s.Completed {
			summary.CompletedMinutes += s.Duration
			summary.CompletedCount++
		}
	}
	return summary, nil
}
