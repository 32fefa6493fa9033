package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/planora/planora-api/internal/middleware"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/schedule"
	"go.uber.org/zap"
)

type stubTaskReader struct {
	overdue []*models.Task
	dueSoon []*models.Task
}

func (s *stubTaskReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return nil, nil
}

func (s *stubTaskReader) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Task, error) {
	return s.overdue, nil
}

func (s *stubTaskReader) ListDueSoon(ctx context.Context, userID uuid.UUID, now time.Time, horizon time.Duration, limit int) ([]*models.Task, error) {
	return s.dueSoon, nil
}

type stubExamReader struct {
	upcoming []*models.Exam
}

func (s *stubExamReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Exam, error) {
	return nil, nil
}

func (s *stubExamReader) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Exam, error) {
	return s.upcoming, nil
}

type stubDismissalStore struct {
	keys      map[string]bool
	dismissed []string
}

func (s *stubDismissalStore) Dismiss(ctx context.Context, userID uuid.UUID, itemKey string) error {
	s.dismissed = append(s.dismissed, itemKey)
	return nil
}

func (s *stubDismissalStore) ListKeys(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	return s.keys, nil
}

func newScheduleHandler(tasks *stubTaskReader, exams *stubExamReader, dismissals *stubDismissalStore) *ScheduleHandler {
	agg := schedule.NewAggregator(tasks, exams, dismissals, schedule.DefaultHorizon, zap.NewNop())
	return NewScheduleHandler(agg)
}

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	user := &models.User{ID: userID, Email: "student@example.com"}
	return r.WithContext(middleware.SetUserInContext(r.Context(), user))
}

func TestGetScheduleAnonymousReturnsEmpty(t *testing.T) {
	t.Parallel()

	due := time.Now().Add(-time.Hour)
	h := newScheduleHandler(
		&stubTaskReader{overdue: []*models.Task{{ID: uuid.New(), Title: "x", DueDate: &due}}},
		&stubExamReader{},
		&stubDismissalStore{},
	)

	w := httptest.NewRecorder()
	h.GetSchedule(w, httptest.NewRequest("GET", "/api/v1/schedule", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    []*models.ScheduleItem `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Errorf("anonymous schedule has %d items, want 0", len(resp.Data))
	}
}

func TestGetScheduleReturnsItems(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	examDate := time.Now().Add(48 * time.Hour)
	h := newScheduleHandler(
		&stubTaskReader{},
		&stubExamReader{upcoming: []*models.Exam{{ID: uuid.New(), UserID: userID, Course: "CS101", Title: "Midterm", ExamDate: examDate}}},
		&stubDismissalStore{},
	)

	w := httptest.NewRecorder()
	h.GetSchedule(w, authedRequest("GET", "/api/v1/schedule", "", userID))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Data []*models.ScheduleItem `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("schedule has %d items, want 1", len(resp.Data))
	}
	if resp.Data[0].Kind != models.ScheduleItemKindExam {
		t.Errorf("item kind = %q, want exam", resp.Data[0].Kind)
	}
}

func TestDismissNotification(t *testing.T) {
	t.Parallel()

	store := &stubDismissalStore{}
	h := newScheduleHandler(&stubTaskReader{}, &stubExamReader{}, store)

	key := "exam-" + uuid.NewString()
	body := `{"item_key":"` + key + `"}`

	w := httptest.NewRecorder()
	h.DismissNotification(w, authedRequest("POST", "/api/v1/notifications/dismiss", body, uuid.New()))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(store.dismissed) != 1 || store.dismissed[0] != key {
		t.Errorf("dismissed = %v, want [%s]", store.dismissed, key)
	}
}

func TestDismissNotificationByPath(t *testing.T) {
	t.Parallel()

	store := &stubDismissalStore{}
	h := newScheduleHandler(&stubTaskReader{}, &stubExamReader{}, store)

	r := mux.NewRouter()
	h.RegisterNotificationRoutes(r.PathPrefix("/api/v1/notifications").Subrouter())

	key := "overdue-" + uuid.NewString()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/api/v1/notifications/"+key+"/dismiss", "", uuid.New()))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(store.dismissed) != 1 || store.dismissed[0] != key {
		t.Errorf("dismissed = %v, want [%s]", store.dismissed, key)
	}
}

func TestDismissNotificationRejectsBadKey(t *testing.T) {
	t.Parallel()

	h := newScheduleHandler(&stubTaskReader{}, &stubExamReader{}, &stubDismissalStore{})

	w := httptest.NewRecorder()
	h.DismissNotification(w, authedRequest("POST", "/api/v1/notifications/dismiss", `{"item_key":"bogus"}`, uuid.New()))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDismissNotificationRequiresAuth(t *testing.T) {
	t.Parallel()

	h := newScheduleHandler(&stubTaskReader{}, &stubExamReader{}, &stubDismissalStore{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/notifications/dismiss", strings.NewReader(`{"item_key":"x"}`))
	h.DismissNotification(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestNotificationRoutesRegistered(t *testing.T) {
	t.Parallel()

	h := newScheduleHandler(&stubTaskReader{}, &stubExamReader{}, &stubDismissalStore{})

	r := mux.NewRouter()
	h.RegisterNotificationRoutes(r.PathPrefix("/api/v1/notifications").Subrouter())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/notifications", nil))
	if w.Code == http.StatusNotFound {
		t.Error("GET /api/v1/notifications not routed")
	}
}
