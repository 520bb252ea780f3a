package domain

import (
	"slices"
	"time"
)

// TaskState is the stored lifecycle state of a task.
type TaskState string

const (
	TaskPending    TaskState = "pending"
	TaskInProgress TaskState = "in-progress"
	TaskCompleted  TaskState = "completed"
)

// ReviewStatus is the review sub-status tracked while a task is completed.
type ReviewStatus string

const (
	ReviewNone                ReviewStatus = ""
	ReviewPending             ReviewStatus = "review-pending"
	ReviewApproved            ReviewStatus = "approved"
	ReviewRejectedForRevision ReviewStatus = "rejected-for-revision"
)

// Priority applies to tasks and to the messages generated for them.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// DocumentReview is the approval state of a single document.
type DocumentReview string

const (
	DocumentPending  DocumentReview = "pending"
	DocumentApproved DocumentReview = "approved"
	DocumentRejected DocumentReview = "rejected"
)

// Document is a file attached to a task, either as reference material or as
// part of a submission.
type Document struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	MediaCategory string         `json:"media_category"`
	SizeBytes     int64          `json:"size_bytes"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	UploadedBy    string         `json:"uploaded_by"`
	ReviewStatus  DocumentReview `json:"review_status"`
}

// Task is a unit of work assigned by one recipient to another.
type Task struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Department         string       `json:"department,omitempty"`
	AssignedTo         string       `json:"assigned_to"`
	AssignedBy         string       `json:"assigned_by"`
	DueAt              time.Time    `json:"due_at"`
	Priority           Priority     `json:"priority"`
	State              TaskState    `json:"state"`
	Review             ReviewStatus `json:"review,omitempty"`
	ReferenceDocuments []Document   `json:"reference_documents"`
	SubmittedDocuments []Document   `json:"submitted_documents"`
	ProgressPercent    int          `json:"progress_percent"`
	RejectionReason    string       `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`

	// Version is bumped by the store on every successful save.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers can derive a new task without sharing
// document slices with the original.
func (t Task) Clone() Task {
	c := t
	c.ReferenceDocuments = slices.Clone(t.ReferenceDocuments)
	c.SubmittedDocuments = slices.Clone(t.SubmittedDocuments)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// IsOverdue reports whether the task is past its due time and not completed.
// Overdue is always computed, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.State != TaskCompleted && !t.DueAt.IsZero() && t.DueAt.Before(now)
}

// DaysUntilDue returns whole calendar days between now and the due date in the
// due date's location. Negative values mean the task is overdue.
func (t *Task) DaysUntilDue(now time.Time) int {
	due := calendarDay(t.DueAt)
	today := calendarDay(now.In(t.DueAt.Location()))
	return int(due.Sub(today) / (24 * time.Hour))
}

// LatestSubmission returns the most recently submitted document, if any.
func (t *Task) LatestSubmission() (Document, bool) {
	if len(t.SubmittedDocuments) == 0 {
		return Document{}, false
	}
	return t.SubmittedDocuments[len(t.SubmittedDocuments)-1], true
}

// FindSubmittedDocument returns the index of a submitted document by id or -1.
func (t *Task) FindSubmittedDocument(id string) int {
	for i := range t.SubmittedDocuments {
		if t.SubmittedDocuments[i].ID == id {
			return i
		}
	}
	return -1
}

// calendarDay maps t's local date to UTC midnight, where every day is 24h.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
