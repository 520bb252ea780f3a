package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
	"tasknotify/internal/metrics"
	"tasknotify/internal/notify"
	"tasknotify/internal/ports"
)

const defaultMaxRetries = 3

// Notifier sends the notifications bound to a lifecycle event.
type Notifier interface {
	Notify(ctx context.Context, event lifecycle.Event, task domain.Task) (notify.Notification, error)
}

// Outcome is the result of a task command.
type Outcome struct {
	Task    domain.Task
	Events  []lifecycle.Event
	Results []domain.DispatchResult
}

// TaskServiceOptions configures the TaskService.
type TaskServiceOptions struct {
	Repository ports.TaskRepository
	Deliveries ports.DeliveryLog
	Notifier   Notifier
	Logger     *slog.Logger
	Clock      func() time.Time
	MaxRetries int // reload attempts after a version conflict
}

// TaskService runs lifecycle transitions against stored tasks and sends the
// resulting notifications. Commands on one task are serialized in-process;
// across processes the store's version check guards each save.
type TaskService struct {
	repo       ports.TaskRepository
	deliveries ports.DeliveryLog
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
	maxRetries int
	locks      *keyedMutex
}

// NewTaskService creates a task service with injected dependencies.
func NewTaskService(opts TaskServiceOptions) *TaskService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &TaskService{
		repo:       opts.Repository,
		deliveries: opts.Deliveries,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		now:        opts.Clock,
		maxRetries: opts.MaxRetries,
		locks:      newKeyedMutex(),
	}
}

// transition computes the next task from the current one.
type transition func(task domain.Task, now time.Time) (domain.Task, []lifecycle.Event, error)

// Assign creates a task in the pending state. An id is generated when empty.
func (s *TaskService) Assign(ctx context.Context, task domain.Task) (*Outcome, error) {
	const op = "Assign"

	if task.ID == "" {
		task.ID = "task_" + uuid.NewString()
	}
	task.Version = 0

	unlock := s.locks.Lock(task.ID)
	defer unlock()

	next, events, err := lifecycle.Assign(task, s.now())
	if err != nil {
		metrics.IncrementTransition(op, "rejected")
		return nil, err
	}

	if err := s.repo.SaveTask(ctx, &next, 0); err != nil {
		metrics.IncrementTransition(op, "error")
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, &domain.TaskError{TaskID: task.ID, Op: op, Err: domain.ErrInvalidTransition}
		}
		return nil, &domain.TaskError{TaskID: task.ID, Op: op, Err: err}
	}
	metrics.IncrementTransition(op, "success")

	s.logger.Info("task assigned",
		"task_id", next.ID,
		"assigned_to", next.AssignedTo,
		"due_at", next.DueAt,
	)

	return s.finish(ctx, next, events)
}

// Start moves a task into progress.
func (s *TaskService) Start(ctx context.Context, taskID string) (*Outcome, error) {
	return s.apply(ctx, taskID, "Start", true, lifecycle.Start)
}

// Submit completes a task with documents and opens a review. Documents
// without an id get one.
func (s *TaskService) Submit(ctx context.Context, taskID string, documents []domain.Document) (*Outcome, error) {
	docs := make([]domain.Document, len(documents))
	copy(docs, documents)
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = "doc_" + uuid.NewString()
		}
	}

	return s.apply(ctx, taskID, "Submit", true, func(task domain.Task, now time.Time) (domain.Task, []lifecycle.Event, error) {
		return lifecycle.Submit(task, docs, now)
	})
}

// Approve accepts the submission under review.
func (s *TaskService) Approve(ctx context.Context, taskID string) (*Outcome, error) {
	return s.apply(ctx, taskID, "Approve", true, lifecycle.Approve)
}

// Reject sends the submission back for revision.
func (s *TaskService) Reject(ctx context.Context, taskID, reason string) (*Outcome, error) {
	return s.apply(ctx, taskID, "Reject", true, func(task domain.Task, now time.Time) (domain.Task, []lifecycle.Event, error) {
		return lifecycle.Reject(task, reason, now)
	})
}

// SetProgress records progress on a task in progress.
func (s *TaskService) SetProgress(ctx context.Context, taskID string, percent int) (*Outcome, error) {
	return s.apply(ctx, taskID, "SetProgress", true, func(task domain.Task, now time.Time) (domain.Task, []lifecycle.Event, error) {
		return lifecycle.SetProgress(task, percent, now)
	})
}

// ReviewDocument approves or rejects one submitted document.
func (s *TaskService) ReviewDocument(ctx context.Context, taskID, documentID string, approve bool) (*Outcome, error) {
	return s.apply(ctx, taskID, "ReviewDocument", true, func(task domain.Task, now time.Time) (domain.Task, []lifecycle.Event, error) {
		return lifecycle.ReviewDocument(task, documentID, approve, now)
	})
}

// RequestReminder sends a reminder for a task that is not completed. The task
// is not modified.
func (s *TaskService) RequestReminder(ctx context.Context, taskID string) (*Outcome, error) {
	return s.apply(ctx, taskID, "Remind", false, lifecycle.Remind)
}

// Get returns a stored task.
func (s *TaskService) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, &domain.TaskError{TaskID: taskID, Op: "Get", Err: err}
	}
	return task, nil
}

// Deliveries returns the notification history of a task.
func (s *TaskService) Deliveries(ctx context.Context, taskID string) ([]ports.DeliveryEntry, error) {
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}
	return s.deliveries.ListDeliveries(ctx, taskID)
}

// apply loads the task, runs fn and saves the result with a version check.
// On a version conflict the task is reloaded and fn re-applied.
func (s *TaskService) apply(ctx context.Context, taskID, op string, persist bool, fn transition) (*Outcome, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	logger := s.logger.With("task_id", taskID, "op", op)

	var (
		next   domain.Task
		events []lifecycle.Event
	)
	for attempt := 0; ; attempt++ {
		current, err := s.repo.GetTask(ctx, taskID)
		if err != nil {
			metrics.IncrementTransition(op, "error")
			return nil, &domain.TaskError{TaskID: taskID, Op: op, Err: err}
		}

		next, events, err = fn(*current, s.now())
		if err != nil {
			metrics.IncrementTransition(op, "rejected")
			logger.Debug("transition rejected", "state", current.State, "error", err)
			return nil, err
		}

		if !persist {
			break
		}

		err = s.repo.SaveTask(ctx, &next, current.Version)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrVersionConflict) && attempt < s.maxRetries {
			logger.Warn("version conflict, reloading task", "attempt", attempt+1)
			continue
		}

		metrics.IncrementTransition(op, "error")
		return nil, &domain.TaskError{TaskID: taskID, Op: op, State: current.State, Err: err}
	}
	metrics.IncrementTransition(op, "success")

	logger.Info("task transition applied",
		"state", next.State,
		"review", next.Review,
		"events", len(events),
	)

	return s.finish(ctx, next, events)
}

// finish sends notifications for events. A notification error is returned
// together with the outcome; the stored task is not rolled back.
func (s *TaskService) finish(ctx context.Context, task domain.Task, events []lifecycle.Event) (*Outcome, error) {
	outcome := &Outcome{Task: task, Events: events}

	for _, event := range events {
		n, err := s.notifier.Notify(ctx, event, task)
		if err != nil {
			s.logger.Error("notification failed",
				"task_id", task.ID,
				"event", event,
				"error", err,
			)
			return outcome, err
		}
		outcome.Results = append(outcome.Results, n.Results...)
		s.recordDeliveries(ctx, task.ID, n)
	}

	return outcome, nil
}

func (s *TaskService) recordDeliveries(ctx context.Context, taskID string, n notify.Notification) {
	if len(n.Results) == 0 || s.deliveries == nil {
		return
	}

	sentAt := s.now()
	entries := make([]ports.DeliveryEntry, 0, len(n.Results))
	for _, r := range n.Results {
		entries = append(entries, ports.DeliveryEntry{
			Event:      string(n.Event),
			TemplateID: n.TemplateID,
			Recipient:  r.Recipient,
			Succeeded:  r.Succeeded,
			DeliveryID: r.DeliveryID,
			Failure:    r.FailureReason,
			SentAt:     sentAt,
		})
	}

	if err := s.deliveries.AppendDeliveries(ctx, taskID, entries); err != nil {
		s.logger.Warn("failed to record deliveries", "task_id", taskID, "error", err)
	}
}
