package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"github.com/planora/planora-api/internal/notify"
	"github.com/planora/planora-api/internal/queue"
	"github.com/planora/planora-api/internal/schedule"
	"go.uber.org/zap"
)

// UserReader is the slice of the user repository the worker needs.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// ReminderWorker processes reminder jobs: single-item reminders for exams
// and tasks, and per-user due scans that fan out into those jobs.
type ReminderWorker struct {
	userRepo UserReader
	tasks    database.TaskReader
	exams    database.ExamReader
	notifier notify.Notifier
	jobQueue queue.JobQueue // for fanning out scan results
	horizon  time.Duration
	log      *zap.Logger
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(
	userRepo UserReader,
	tasks database.TaskReader,
	exams database.ExamReader,
	notifier notify.Notifier,
	jobQueue queue.JobQueue,
	horizon time.Duration,
	log *zap.Logger,
) *ReminderWorker {
	if horizon <= 0 {
		horizon = schedule.DefaultHorizon
	}
	return &ReminderWorker{
		userRepo: userRepo,
		tasks:    tasks,
		exams:    exams,
		notifier: notifier,
		jobQueue: jobQueue,
		horizon:  horizon,
		log:      log,
	}
}

// ProcessExamReminderJob sends one countdown reminder for an exam.
func (w *ReminderWorker) ProcessExamReminderJob(ctx context.Context, job *queue.Job) error {
	if job.ItemID == nil {
		return fmt.Errorf("item_id is required for exam reminder job")
	}

	exam, err := w.exams.GetByID(ctx, *job.ItemID)
	if err != nil {
		return fmt.Errorf("failed to get exam: %w", err)
	}
	if exam.UserID != job.UserID {
		return fmt.Errorf("exam does not belong to user")
	}

	now := time.Now()
	if exam.ExamDate.Before(now) {
		// The exam happened while the job sat in the queue
		w.log.Info("skipping_past_exam_reminder",
			zap.String("exam_id", exam.ID.String()),
		)
		return nil
	}

	user, err := w.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return w.notifier.Send(ctx, &notify.Reminder{
		User:    user,
		Subject: schedule.DayCountMessage("Exam", schedule.DaysUntil(now, exam.ExamDate)),
		Body:    fmt.Sprintf("%s: %s", exam.Course, exam.Title),
	})
}

// ProcessTaskReminderJob sends one reminder for an overdue or due-soon task.
func (w *ReminderWorker) ProcessTaskReminderJob(ctx context.Context, job *queue.Job) error {
	if job.ItemID == nil {
		return fmt.Errorf("item_id is required for task reminder job")
	}

	task, err := w.tasks.GetByID(ctx, *job.ItemID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task.UserID != job.UserID {
		return fmt.Errorf("task does not belong to user")
	}
	if task.Completed {
		// Completed between enqueue and processing; nothing to remind about
		return nil
	}

	user, err := w.userRepo.GetByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	subject := "Overdue Task"
	if task.DueDate != nil && !task.DueDate.Before(now) {
		subject = schedule.DayCountMessage("Due", schedule.DaysUntil(now, *task.DueDate))
	}

	return w.notifier.Send(ctx, &notify.Reminder{
		User:    user,
		Subject: subject,
		Body:    task.Title,
	})
}

// ProcessDueScanJob scans one user's rows and enqueues a reminder job per
// upcoming exam, overdue task, and due-soon task.
func (w *ReminderWorker) ProcessDueScanJob(ctx context.Context, job *queue.Job) error {
	now := time.Now()
	enqueued := 0

	exams, err := w.exams.ListUpcoming(ctx, job.UserID, now, schedule.SourceLimit)
	if err != nil {
		return fmt.Errorf("failed to list upcoming exams: %w", err)
	}
	for _, exam := range exams {
		id := exam.ID
		reminder := queue.NewJob(queue.JobTypeExamReminder, job.UserID, &id)
		examDate := exam.ExamDate
		reminder.NotAfter = &examDate
		if err := w.jobQueue.Enqueue(ctx, reminder); err != nil {
			return fmt.Errorf("failed to enqueue exam reminder: %w", err)
		}
		enqueued++
	}

	overdue, err := w.tasks.ListOverdue(ctx, job.UserID, now, schedule.SourceLimit)
	if err != nil {
		return fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	dueSoon, err := w.tasks.ListDueSoon(ctx, job.UserID, now, w.horizon, schedule.SourceLimit)
	if err != nil {
		return fmt.Errorf("failed to list due-soon tasks: %w", err)
	}

	for _, task := range append(overdue, dueSoon...) {
		id := task.ID
		reminder := queue.NewJob(queue.JobTypeTaskReminder, job.UserID, &id)
		if err := w.jobQueue.Enqueue(ctx, reminder); err != nil {
			return fmt.Errorf("failed to enqueue task reminder: %w", err)
		}
		enqueued++
	}

	w.log.Info("due_scan_completed",
		zap.String("user_id", job.UserID.String()),
		zap.Int("reminders_enqueued", enqueued),
	)
	return nil
}

// ProcessJob dispatches one queue message to the matching handler and owns
// its acknowledgement.
func (w *ReminderWorker) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	if job.IsExpired() {
		// The reminder window passed while the job sat in the queue; a late
		// reminder is worse than none.
		w.log.Info("dropping_expired_job",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}

	if !job.ShouldProcess() {
		// Not ready yet (NotBefore); ack and let the delayed re-enqueue
		// bring it back.
		if ackErr := msg.Ack(); ackErr != nil {
			w.log.Warn("failed_to_ack_deferred_job", zap.Error(ackErr))
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeExamReminder:
		err = w.ProcessExamReminderJob(ctx, job)
	case queue.JobTypeTaskReminder:
		err = w.ProcessTaskReminderJob(ctx, job)
	case queue.JobTypeDueScan:
		err = w.ProcessDueScanJob(ctx, job)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			w.log.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return w.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries a failed job while retries remain, then sends it to
// the DLQ.
func (w *ReminderWorker) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		notBefore := time.Now().Add(time.Duration(job.RetryCount) * time.Minute)
		job.NotBefore = &notBefore

		if ackErr := msg.Ack(); ackErr != nil {
			w.log.Warn("failed_to_ack_job_before_retry", zap.Error(ackErr))
		}
		if enqueueErr := w.jobQueue.Enqueue(ctx, job); enqueueErr != nil {
			return fmt.Errorf("failed to re-enqueue job %s: %w", job.ID, enqueueErr)
		}

		w.log.Warn("job_retry_scheduled",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		return nil
	}

	// Retries exhausted; nack without requeue routes to the DLQ
	if nackErr := msg.Nack(false); nackErr != nil {
		w.log.Warn("failed_to_nack_exhausted_job", zap.Error(nackErr))
	}
	return fmt.Errorf("job %s failed after %d retries: %w", job.ID, job.RetryCount, err)
}

// EnqueueDueScans enqueues one due-scan job per user. The worker runs this on
// a fixed cron schedule.
func EnqueueDueScans(ctx context.Context, userRepo UserReader, jobQueue queue.JobQueue, log *zap.Logger) error {
	users, err := userRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		job := queue.NewJob(queue.JobTypeDueScan, user.ID, nil)
		if err := jobQueue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to enqueue due scan for user %s: %w", user.ID, err)
		}
	}

	log.Info("due_scans_enqueued", zap.Int("users", len(users)))
	return nil
}
