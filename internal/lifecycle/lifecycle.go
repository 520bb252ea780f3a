// Package lifecycle implements the task state machine.
//
// Every transition is a pure function of the current task and its inputs. It
// returns a complete new task together with the events the transition emitted,
// or an error and no changes. Nothing here performs I/O; notification and
// persistence are driven by callers from the returned events.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"tasknotify/internal/domain"
)

// Event is a symbolic token emitted by a successful transition.
type Event string

const (
	TaskAssigned      Event = "TaskAssigned"
	TaskStarted       Event = "TaskStarted"
	TaskSubmitted     Event = "TaskSubmitted"
	TaskApproved      Event = "TaskApproved"
	TaskRejected      Event = "TaskRejected"
	ReminderRequested Event = "ReminderRequested"
)

// Valid reports whether e is an event some transition emits.
func (e Event) Valid() bool {
	switch e {
	case TaskAssigned, TaskStarted, TaskSubmitted, TaskApproved, TaskRejected, ReminderRequested:
		return true
	}
	return false
}

// Assign validates a freshly created task and puts it in the pending state.
func Assign(task domain.Task, now time.Time) (domain.Task, []Event, error) {
	const op = "Assign"

	switch {
	case task.ID == "":
		return task, nil, invalidTask(task, op, "id is required")
	case strings.TrimSpace(task.Title) == "":
		return task, nil, invalidTask(task, op, "title is required")
	case task.AssignedTo == "":
		return task, nil, invalidTask(task, op, "assignee is required")
	case task.AssignedBy == "":
		return task, nil, invalidTask(task, op, "assigner is required")
	}
	if task.State != "" && task.State != domain.TaskPending {
		return task, nil, transitionError(task, op)
	}

	next := task.Clone()
	next.State = domain.TaskPending
	next.Review = domain.ReviewNone
	next.ProgressPercent = 0
	if next.Priority == "" {
		next.Priority = domain.PriorityMedium
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	return next, []Event{TaskAssigned}, nil
}

// Start moves a pending task into progress. A completed task whose submission
// was rejected for revision may also be started again; its submission history
// is kept.
func Start(task domain.Task, now time.Time) (domain.Task, []Event, error) {
	const op = "Start"

	if !canStart(&task) {
		return task, nil, transitionError(task, op)
	}

	next := task.Clone()
	next.State = domain.TaskInProgress
	next.Review = domain.ReviewNone
	next.CompletedAt = nil
	next.UpdatedAt = now

	return next, []Event{TaskStarted}, nil
}

// Submit appends the documents to the task's submission history and completes
// it, pending review.
func Submit(task domain.Task, documents []domain.Document, now time.Time) (domain.Task, []Event, error) {
	const op = "Submit"

	if task.State != domain.TaskInProgress {
		return task, nil, transitionError(task, op)
	}
	if len(documents) == 0 {
		return task, nil, &domain.TaskError{TaskID: task.ID, Op: op, State: task.State, Err: domain.ErrEmptySubmission}
	}

	next := task.Clone()
	for _, doc := range documents {
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = now
		}
		if doc.UploadedBy == "" {
			doc.UploadedBy = task.AssignedTo
		}
		doc.ReviewStatus = domain.DocumentPending
		next.SubmittedDocuments = append(next.SubmittedDocuments, doc)
	}
	next.State = domain.TaskCompleted
	next.Review = domain.ReviewPending
	next.ProgressPercent = 100
	next.RejectionReason = ""
	completedAt := now
	next.CompletedAt = &completedAt
	next.UpdatedAt = now

	return next, []Event{TaskSubmitted}, nil
}

// Approve accepts a submission under review. Approved is terminal.
func Approve(task domain.Task, now time.Time) (domain.Task, []Event, error) {
	const op = "Approve"

	if !underReview(&task) {
		return task, nil, transitionError(task, op)
	}

	next := task.Clone()
	next.Review = domain.ReviewApproved
	markPending(next.SubmittedDocuments, domain.DocumentApproved)
	next.UpdatedAt = now

	return next, []Event{TaskApproved}, nil
}

// Reject sends a submission under review back for revision with a reason.
func Reject(task domain.Task, reason string, now time.Time) (domain.Task, []Event, error) {
	const op = "Reject"

	if !underReview(&task) {
		return task, nil, transitionError(task, op)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return task, nil, &domain.TaskError{TaskID: task.ID, Op: op, State: task.State, Err: domain.ErrMissingReason}
	}

	next := task.Clone()
	next.Review = domain.ReviewRejectedForRevision
	next.RejectionReason = reason
	markPending(next.SubmittedDocuments, domain.DocumentRejected)
	next.UpdatedAt = now

	return next, []Event{TaskRejected}, nil
}

// Remind requests a reminder for a task that is not completed yet. The task
// itself is returned unchanged.
func Remind(task domain.Task, now time.Time) (domain.Task, []Event, error) {
	const op = "Remind"

	if task.State == domain.TaskCompleted && task.Review != domain.ReviewRejectedForRevision {
		return task, nil, transitionError(task, op)
	}
	return task.Clone(), []Event{ReminderRequested}, nil
}

// SetProgress records work progress on a task in progress, clamped to [0,100].
func SetProgress(task domain.Task, percent int, now time.Time) (domain.Task, []Event, error) {
	const op = "SetProgress"

	if task.State != domain.TaskInProgress {
		return task, nil, transitionError(task, op)
	}

	next := task.Clone()
	next.ProgressPercent = min(100, max(0, percent))
	next.UpdatedAt = now

	return next, nil, nil
}

// ReviewDocument approves or rejects one submitted document while the task is
// under review.
func ReviewDocument(task domain.Task, documentID string, approve bool, now time.Time) (domain.Task, []Event, error) {
	const op = "ReviewDocument"

	if !underReview(&task) {
		return task, nil, transitionError(task, op)
	}
	idx := task.FindSubmittedDocument(documentID)
	if idx < 0 {
		return task, nil, &domain.TaskError{TaskID: task.ID, Op: op, State: task.State, Err: domain.ErrDocumentNotFound}
	}

	next := task.Clone()
	if approve {
		next.SubmittedDocuments[idx].ReviewStatus = domain.DocumentApproved
	} else {
		next.SubmittedDocuments[idx].ReviewStatus = domain.DocumentRejected
	}
	next.UpdatedAt = now

	return next, nil, nil
}

func canStart(t *domain.Task) bool {
	switch t.State {
	case domain.TaskPending:
		return true
	case domain.TaskCompleted:
		return t.Review == domain.ReviewRejectedForRevision
	default:
		return false
	}
}

func underReview(t *domain.Task) bool {
	return t.State == domain.TaskCompleted && t.Review == domain.ReviewPending
}

func markPending(docs []domain.Document, status domain.DocumentReview) {
	for i := range docs {
		if docs[i].ReviewStatus == domain.DocumentPending || docs[i].ReviewStatus == "" {
			docs[i].ReviewStatus = status
		}
	}
}

func transitionError(t domain.Task, op string) error {
	return &domain.TaskError{TaskID: t.ID, Op: op, State: t.State, Err: domain.ErrInvalidTransition}
}

func invalidTask(t domain.Task, op, msg string) error {
	return &domain.TaskError{TaskID: t.ID, Op: op, Err: fmt.Errorf("%w: %s", domain.ErrInvalidTask, msg)}
}
