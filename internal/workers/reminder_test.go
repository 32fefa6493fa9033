package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/notify"
	"github.com/planora/planora-api/internal/queue"
	"go.uber.org/zap"
)

type fakeUserReader struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserReader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, errors.New("user not found")
}

func (f *fakeUserReader) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

type fakeTaskReader struct {
	tasks   map[uuid.UUID]*models.Task
	overdue []*models.Task
	dueSoon []*models.Task
}

func (f *fakeTaskReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if task, ok := f.tasks[id]; ok {
		return task, nil
	}
	return nil, errors.New("task not found")
}

func (f *fakeTaskReader) ListOverdue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Task, error) {
	return f.overdue, nil
}

func (f *fakeTaskReader) ListDueSoon(ctx context.Context, userID uuid.UUID, now time.Time, horizon time.Duration, limit int) ([]*models.Task, error) {
	return f.dueSoon, nil
}

type fakeExamReader struct {
	exams    map[uuid.UUID]*models.Exam
	upcoming []*models.Exam
}

func (f *fakeExamReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Exam, error) {
	if exam, ok := f.exams[id]; ok {
		return exam, nil
	}
	return nil, errors.New("exam not found")
}

func (f *fakeExamReader) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.Exam, error) {
	return f.upcoming, nil
}

type recordingNotifier struct {
	reminders []*notify.Reminder
}

func (r *recordingNotifier) Send(ctx context.Context, reminder *notify.Reminder) error {
	r.reminders = append(r.reminders, reminder)
	return nil
}

type recordingQueue struct {
	jobs []*queue.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Dequeue(ctx context.Context) (*queue.Message, error) { return nil, nil }

func (q *recordingQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) HealthCheck(ctx context.Context) error { return nil }

func TestProcessExamReminderJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	exam := &models.Exam{
		ID:       uuid.New(),
		UserID:   userID,
		Course:   "CS101",
		Title:    "Midterm",
		ExamDate: time.Now().Add(72 * time.Hour),
	}
	notifier := &recordingNotifier{}
	w := NewReminderWorker(
		&fakeUserReader{users: map[uuid.UUID]*models.User{userID: {ID: userID}}},
		&fakeTaskReader{},
		&fakeExamReader{exams: map[uuid.UUID]*models.Exam{exam.ID: exam}},
		notifier,
		&recordingQueue{},
		0,
		zap.NewNop(),
	)

	job := queue.NewJob(queue.JobTypeExamReminder, userID, &exam.ID)
	if err := w.ProcessExamReminderJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessExamReminderJob() error = %v", err)
	}

	if len(notifier.reminders) != 1 {
		t.Fatalf("sent %d reminders, want 1", len(notifier.reminders))
	}
	if notifier.reminders[0].Body != "CS101: Midterm" {
		t.Errorf("reminder body = %q", notifier.reminders[0].Body)
	}
}

func TestProcessExamReminderJobWrongUser(t *testing.T) {
	t.Parallel()

	exam := &models.Exam{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		ExamDate: time.Now().Add(time.Hour),
	}
	w := NewReminderWorker(
		&fakeUserReader{},
		&fakeTaskReader{},
		&fakeExamReader{exams: map[uuid.UUID]*models.Exam{exam.ID: exam}},
		&recordingNotifier{},
		&recordingQueue{},
		0,
		zap.NewNop(),
	)

	job := queue.NewJob(queue.JobTypeExamReminder, uuid.New(), &exam.ID)
	if err := w.ProcessExamReminderJob(context.Background(), job); err == nil {
		t.Fatal("expected error for exam owned by another user")
	}
}

func TestProcessTaskReminderJobSkipsCompleted(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	task := &models.Task{ID: uuid.New(), UserID: userID, Title: "Essay", Completed: true}
	notifier := &recordingNotifier{}
	w := NewReminderWorker(
		&fakeUserReader{users: map[uuid.UUID]*models.User{userID: {ID: userID}}},
		&fakeTaskReader{tasks: map[uuid.UUID]*models.Task{task.ID: task}},
		&fakeExamReader{},
		notifier,
		&recordingQueue{},
		0,
		zap.NewNop(),
	)

	job := queue.NewJob(queue.JobTypeTaskReminder, userID, &task.ID)
	if err := w.ProcessTaskReminderJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessTaskReminderJob() error = %v", err)
	}
	if len(notifier.reminders) != 0 {
		t.Errorf("sent %d reminders for completed task, want 0", len(notifier.reminders))
	}
}

func TestProcessTaskReminderJobOverdue(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	due := time.Now().Add(-24 * time.Hour)
	task := &models.Task{ID: uuid.New(), UserID: userID, Title: "Lab report", DueDate: &due}
	notifier := &recordingNotifier{}
	w := NewReminderWorker(
		&fakeUserReader{users: map[uuid.UUID]*models.User{userID: {ID: userID}}},
		&fakeTaskReader{tasks: map[uuid.UUID]*models.Task{task.ID: task}},
		&fakeExamReader{},
		notifier,
		&recordingQueue{},
		0,
		zap.NewNop(),
	)

	job := queue.NewJob(queue.JobTypeTaskReminder, userID, &task.ID)
	if err := w.ProcessTaskReminderJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessTaskReminderJob() error = %v", err)
	}
	if len(notifier.reminders) != 1 {
		t.Fatalf("sent %d reminders, want 1", len(notifier.reminders))
	}
	if notifier.reminders[0].Subject != "Overdue Task" {
		t.Errorf("subject = %q, want Overdue Task", notifier.reminders[0].Subject)
	}
}

func TestProcessDueScanJobFansOut(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	examDate := time.Now().Add(48 * time.Hour)
	overdueDue := time.Now().Add(-time.Hour)
	soonDue := time.Now().Add(24 * time.Hour)

	jobQueue := &recordingQueue{}
	w := NewReminderWorker(
		&fakeUserReader{},
		&fakeTaskReader{
			overdue: []*models.Task{{ID: uuid.New(), UserID: userID, DueDate: &overdueDue}},
			dueSoon: []*models.Task{{ID: uuid.New(), UserID: userID, DueDate: &soonDue}},
		},
		&fakeExamReader{
			upcoming: []*models.Exam{{ID: uuid.New(), UserID: userID, ExamDate: examDate}},
		},
		&recordingNotifier{},
		jobQueue,
		0,
		zap.NewNop(),
	)

	job := queue.NewJob(queue.JobTypeDueScan, userID, nil)
	if err := w.ProcessDueScanJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessDueScanJob() error = %v", err)
	}

	if len(jobQueue.jobs) != 3 {
		t.Fatalf("enqueued %d jobs, want 3", len(jobQueue.jobs))
	}

	counts := map[queue.JobType]int{}
	for _, j := range jobQueue.jobs {
		counts[j.Type]++
		if j.UserID != userID {
			t.Errorf("job user = %s, want %s", j.UserID, userID)
		}
	}
	if counts[queue.JobTypeExamReminder] != 1 || counts[queue.JobTypeTaskReminder] != 2 {
		t.Errorf("job type counts = %v", counts)
	}

	for _, j := range jobQueue.jobs {
		if j.Type == queue.JobTypeExamReminder {
			if j.NotAfter == nil || !j.NotAfter.Equal(examDate) {
				t.Errorf("exam reminder NotAfter = %v, want exam date", j.NotAfter)
			}
		}
	}
}

func TestEnqueueDueScans(t *testing.T) {
	t.Parallel()

	users := map[uuid.UUID]*models.User{}
	for i := 0; i < 3; i++ {
		id := uuid.New()
		users[id] = &models.User{ID: id}
	}

	jobQueue := &recordingQueue{}
	if err := EnqueueDueScans(context.Background(), &fakeUserReader{users: users}, jobQueue, zap.NewNop()); err != nil {
		t.Fatalf("EnqueueDueScans() error = %v", err)
	}

	if len(jobQueue.jobs) != 3 {
		t.Fatalf("enqueued %d jobs, want 3", len(jobQueue.jobs))
	}
	for _, j := range jobQueue.jobs {
		if j.Type != queue.JobTypeDueScan {
			t.Errorf("job type = %s, want due_scan", j.Type)
		}
	}
}
