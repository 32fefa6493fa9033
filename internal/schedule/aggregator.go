package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/models"
	"go.uber.org/zap"
)

const (
	// SourceLimit caps how many rows each source contributes to a pass
	SourceLimit = 5
	// DefaultHorizon is how far ahead the upcoming-task window reaches
	DefaultHorizon = 7 * 24 * time.Hour

	examDateLayout = "Jan 2, 2006"
	taskDateLayout = "Jan 2, 3:04 PM"
)

// Aggregator builds the merged schedule/notification feed from upcoming
// exams, overdue tasks, and due-soon tasks. Items are rebuilt from row
// snapshots on every pass; nothing is written back except dismissals.
type Aggregator struct {
	tasks      database.TaskReader
	exams      database.ExamReader
	dismissals database.DismissalStore
	horizon    time.Duration
	log        *zap.Logger
}

// NewAggregator creates a new schedule aggregator
func NewAggregator(tasks database.TaskReader, exams database.ExamReader, dismissals database.DismissalStore, horizon time.Duration, log *zap.Logger) *Aggregator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Aggregator{
		tasks:      tasks,
		exams:      exams,
		dismissals: dismissals,
		horizon:    horizon,
		log:        log,
	}
}

// Dashboard produces the dashboard schedule feed: every item from all three
// sources, ordered by event time ascending. An unauthenticated caller
// (uuid.Nil) gets an empty feed without error.
func (a *Aggregator) Dashboard(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.ScheduleItem, error) {
	if userID == uuid.Nil {
		return []*models.ScheduleItem{}, nil
	}
	items := a.collect(ctx, userID, now)
	sortByEventTime(items)
	return items, nil
}

// Notifications produces the notification feed: the same merged items with
// persisted dismissals filtered out.
func (a *Aggregator) Notifications(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.ScheduleItem, error) {
	if userID == uuid.Nil {
		return []*models.ScheduleItem{}, nil
	}

	items := a.collect(ctx, userID, now)

	dismissed, err := a.dismissals.ListKeys(ctx, userID)
	if err != nil {
		// Dismissals are a filter, not a source; losing them means the
		// user sees an item twice, not that the feed breaks.
		a.log.Warn("failed_to_load_dismissals",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		dismissed = nil
	}

	filtered := items[:0]
	for _, item := range items {
		if !dismissed[item.Key] {
			filtered = append(filtered, item)
		}
	}

	sortByEventTime(filtered)
	return filtered, nil
}

// Dismiss records a persisted dismissal for a feed item key.
func (a *Aggregator) Dismiss(ctx context.Context, userID uuid.UUID, itemKey string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user required")
	}
	if !validItemKey(itemKey) {
		return fmt.Errorf("invalid item key: %s", itemKey)
	}
	return a.dismissals.Dismiss(ctx, userID, itemKey)
}

// collect runs the three source queries and normalizes the rows. Each source
// fails soft: a read error contributes an empty slice and the pass continues
// with partial data.
func (a *Aggregator) collect(ctx context.Context, userID uuid.UUID, now time.Time) []*models.ScheduleItem {
	items := make([]*models.ScheduleItem, 0, 3*SourceLimit)

	exams, err := a.exams.ListUpcoming(ctx, userID, now, SourceLimit)
	if err != nil {
		a.log.Warn("schedule_source_failed",
			zap.String("source", "upcoming_exams"),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		exams = nil
	}
	for _, exam := range exams {
		items = append(items, examItem(exam, now))
	}

	overdue, err := a.tasks.ListOverdue(ctx, userID, now, SourceLimit)
	if err != nil {
		a.log.Warn("schedule_source_failed",
			zap.String("source", "overdue_tasks"),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		overdue = nil
	}
	for _, task := range overdue {
		items = append(items, overdueItem(task))
	}

	upcoming, err := a.tasks.ListDueSoon(ctx, userID, now, a.horizon, SourceLimit)
	if err != nil {
		a.log.Warn("schedule_source_failed",
			zap.String("source", "upcoming_tasks"),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		upcoming = nil
	}
	for _, task := range upcoming {
		items = append(items, upcomingItem(task, now))
	}

	return items
}

// DaysUntil returns the whole-day count from now until t, rounding partial
// days up. An event 72h away is "3 days"; one 73h away is "4 days".
func DaysUntil(now, t time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// DayCountMessage formats a day count for feed messages
func DayCountMessage(prefix string, days int) string {
	if days == 0 {
		return prefix + " today"
	}
	if days == 1 {
		return prefix + " in 1 day"
	}
	return fmt.Sprintf("%s in %d days", prefix, days)
}

func examItem(exam *models.Exam, now time.Time) *models.ScheduleItem {
	course := exam.Course
	return &models.ScheduleItem{
		Key:         "exam-" + exam.ID.String(),
		SourceID:    exam.ID,
		Kind:        models.ScheduleItemKindExam,
		Title:       exam.Title,
		Message:     DayCountMessage("Exam", DaysUntil(now, exam.ExamDate)),
		EventTime:   exam.ExamDate,
		DisplayTime: exam.ExamDate.Format(examDateLayout),
		Course:      &course,
	}
}

func overdueItem(task *models.Task) *models.ScheduleItem {
	item := &models.ScheduleItem{
		Key:       "overdue-" + task.ID.String(),
		SourceID:  task.ID,
		Kind:      models.ScheduleItemKindTask,
		Title:     task.Title,
		Message:   "Overdue Task",
		Course:    task.Course,
		Priority:  &task.Priority,
		Completed: &task.Completed,
	}
	if task.DueDate != nil {
		item.EventTime = *task.DueDate
		item.DisplayTime = task.DueDate.Format(taskDateLayout)
	}
	return item
}

func upcomingItem(task *models.Task, now time.Time) *models.ScheduleItem {
	course := "General"
	if task.Course != nil && *task.Course != "" {
		course = *task.Course
	}
	item := &models.ScheduleItem{
		Key:       "upcoming-" + task.ID.String(),
		SourceID:  task.ID,
		Kind:      models.ScheduleItemKindTask,
		Title:     task.Title,
		Course:    &course,
		Priority:  &task.Priority,
		Completed: &task.Completed,
	}
	if task.DueDate != nil {
		item.Message = DayCountMessage("Due", DaysUntil(now, *task.DueDate))
		item.EventTime = *task.DueDate
		item.DisplayTime = task.DueDate.Format(taskDateLayout)
	}
	return item
}

// sortByEventTime orders items chronologically by their source timestamp.
// Ties break on the namespaced key so a pass is deterministic.
func sortByEventTime(items []*models.ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].EventTime.Equal(items[j].EventTime) {
			return items[i].Key < items[j].Key
		}
		return items[i].EventTime.Before(items[j].EventTime)
	})
}

func validItemKey(key string) bool {
	for _, prefix := range []string{"exam-", "overdue-", "upcoming-"} {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			_, err := uuid.Parse(rest)
			return err == nil
		}
	}
	return false
}
