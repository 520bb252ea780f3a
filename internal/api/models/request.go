package models

import (
	"errors"
	"fmt"
	"time"

	"tasknotify/internal/domain"
)

// DocumentRequest describes an uploaded document.
type DocumentRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MediaCategory string `json:"media_category"`
	SizeBytes     int64  `json:"size_bytes"`
	UploadedBy    string `json:"uploaded_by"`
}

// ToDomain converts the request to a document.
func (r DocumentRequest) ToDomain() domain.Document {
	return domain.Document{
		ID:            r.ID,
		Name:          r.Name,
		MediaCategory: r.MediaCategory,
		SizeBytes:     r.SizeBytes,
		UploadedBy:    r.UploadedBy,
	}
}

func toDocuments(reqs []DocumentRequest) []domain.Document {
	docs := make([]domain.Document, 0, len(reqs))
	for _, r := range reqs {
		docs = append(docs, r.ToDomain())
	}
	return docs
}

// AssignRequest creates a task.
type AssignRequest struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Department         string            `json:"department"`
	AssignedTo         string            `json:"assigned_to"`
	AssignedBy         string            `json:"assigned_by"`
	DueAt              time.Time         `json:"due_at"`
	Priority           domain.Priority   `json:"priority"`
	ReferenceDocuments []DocumentRequest `json:"reference_documents"`
}

// Validate checks if the assign request is valid.
func (r *AssignRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.AssignedTo == "" {
		return errors.New("assigned_to is required")
	}
	if r.AssignedBy == "" {
		return errors.New("assigned_by is required")
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return fmt.Errorf("priority %q is invalid", r.Priority)
	}
	for i, d := range r.ReferenceDocuments {
		if d.Name == "" {
			return fmt.Errorf("reference_documents[%d].name is required", i)
		}
	}
	return nil
}

// ToDomain converts the request to a new task.
func (r *AssignRequest) ToDomain() domain.Task {
	return domain.Task{
		ID:                 r.ID,
		Title:              r.Title,
		Description:        r.Description,
		Department:         r.Department,
		AssignedTo:         r.AssignedTo,
		AssignedBy:         r.AssignedBy,
		DueAt:              r.DueAt,
		Priority:           r.Priority,
		ReferenceDocuments: toDocuments(r.ReferenceDocuments),
	}
}

// SubmitRequest submits documents for review. An empty list is passed on so
// the lifecycle can report it.
type SubmitRequest struct {
	Documents []DocumentRequest `json:"documents"`
}

// Validate checks if the submit request is valid.
func (r *SubmitRequest) Validate() error {
	for i, d := range r.Documents {
		if d.Name == "" {
			return fmt.Errorf("documents[%d].name is required", i)
		}
	}
	return nil
}

// ToDomain converts the submitted documents.
func (r *SubmitRequest) ToDomain() []domain.Document {
	return toDocuments(r.Documents)
}

// RejectRequest sends a submission back with feedback.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ProgressRequest updates task progress.
type ProgressRequest struct {
	Percent *int `json:"percent"`
}

// Validate checks if the progress request is valid.
func (r *ProgressRequest) Validate() error {
	if r.Percent == nil {
		return errors.New("percent is required")
	}
	return nil
}

// ReviewRequest approves or rejects one document.
type ReviewRequest struct {
	Approve *bool `json:"approve"`
}

// Validate checks if the review request is valid.
func (r *ReviewRequest) Validate() error {
	if r.Approve == nil {
		return errors.New("approve is required")
	}
	return nil
}

// DispatchRequest sends one template to many recipients.
type DispatchRequest struct {
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables"`
	Recipients []string          `json:"recipients"`
	Priority   domain.Priority   `json:"priority"`
}

// Validate checks if the dispatch request is valid.
func (r *DispatchRequest) Validate() error {
	if r.TemplateID == "" {
		return errors.New("template_id is required")
	}
	if len(r.Recipients) == 0 {
		return errors.New("recipients are required")
	}
	for i, rcpt := range r.Recipients {
		if rcpt == "" {
			return fmt.Errorf("recipients[%d] is empty", i)
		}
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return fmt.Errorf("priority %q is invalid", r.Priority)
	}
	return nil
}

// TemplateRequest creates a custom template.
type TemplateRequest struct {
	Name      string          `json:"name"`
	Category  domain.Category `json:"category"`
	Body      string          `json:"body"`
	Variables []string        `json:"variables"`
}

// Validate checks if the template request is valid.
func (r *TemplateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("category %q is invalid", r.Category)
	}
	if r.Body == "" {
		return errors.New("body is required")
	}
	return nil
}
