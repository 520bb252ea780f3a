// Package notify turns lifecycle events into rendered messages and hands them
// to the dispatcher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"tasknotify/internal/config"
	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
	"tasknotify/internal/templates"
)

// BatchSender sends rendered messages and reports one result per message.
type BatchSender interface {
	SendAll(ctx context.Context, msgs []domain.RenderedMessage) ([]domain.DispatchResult, error)
}

// RecipientDirectory maps a participant id to a channel address.
type RecipientDirectory interface {
	Resolve(ctx context.Context, participantID string) (string, error)
}

// IdentityDirectory uses participant ids as addresses.
type IdentityDirectory struct{}

// Resolve returns participantID unchanged.
func (IdentityDirectory) Resolve(_ context.Context, participantID string) (string, error) {
	return participantID, nil
}

// StaticDirectory resolves ids from a fixed map and falls back to the id itself.
type StaticDirectory map[string]string

// Resolve looks up participantID.
func (d StaticDirectory) Resolve(_ context.Context, participantID string) (string, error) {
	if addr, ok := d[participantID]; ok {
		return addr, nil
	}
	return participantID, nil
}

// Notification describes what was sent for one event.
type Notification struct {
	Event      lifecycle.Event
	TemplateID string
	Results    []domain.DispatchResult
}

// DefaultBindings returns the built-in event routing.
func DefaultBindings() map[lifecycle.Event]config.Binding {
	return map[lifecycle.Event]config.Binding{
		lifecycle.TaskAssigned:      {Template: templates.TaskAssignmentID, Recipients: config.RecipientAssignee},
		lifecycle.TaskStarted:       {},
		lifecycle.TaskSubmitted:     {Template: templates.TaskCompletionID, Recipients: config.RecipientAssigner},
		lifecycle.TaskApproved:      {Template: templates.TaskApprovedID, Recipients: config.RecipientAssignee},
		lifecycle.TaskRejected:      {Template: templates.TaskRejectedID, Recipients: config.RecipientAssignee},
		lifecycle.ReminderRequested: {Template: templates.TaskReminderID, Recipients: config.RecipientAssignee},
	}
}

// Binder routes lifecycle events to templates and recipients.
type Binder struct {
	catalog      *templates.Catalog
	sender       BatchSender
	directory    RecipientDirectory
	organization string
	now          func() time.Time
	logger       *slog.Logger

	mu       sync.RWMutex
	bindings map[lifecycle.Event]config.Binding
}

// Option configures a Binder.
type Option func(*Binder)

// WithDirectory sets the recipient directory.
func WithDirectory(d RecipientDirectory) Option {
	return func(b *Binder) { b.directory = d }
}

// WithOrganization sets the organizationName variable.
func WithOrganization(name string) Option {
	return func(b *Binder) { b.organization = name }
}

// WithClock sets the time source used for due-date variables.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) { b.now = now }
}

// NewBinder creates a binder with the default bindings.
func NewBinder(catalog *templates.Catalog, sender BatchSender, logger *slog.Logger, opts ...Option) *Binder {
	b := &Binder{
		catalog:   catalog,
		sender:    sender,
		directory: IdentityDirectory{},
		now:       time.Now,
		logger:    logger,
		bindings:  DefaultBindings(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply registers the document's templates and overrides bindings by event
// name. A rejected document changes neither the catalog nor the bindings.
func (b *Binder) Apply(cfg *config.NotificationConfig) error {
	if cfg == nil {
		return nil
	}

	if err := b.catalog.RegisterAll(cfg.Templates); err != nil {
		return fmt.Errorf("apply notification config: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for event, binding := range cfg.Bindings {
		b.bindings[lifecycle.Event(event)] = binding
	}

	b.logger.Info("notification config applied",
		"templates", len(cfg.Templates),
		"bindings", len(cfg.Bindings),
	)
	return nil
}

// Binding returns the routing for event.
func (b *Binder) Binding(event lifecycle.Event) (config.Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	binding, ok := b.bindings[event]
	return binding, ok && binding.Template != ""
}

// Notify renders and sends the messages bound to event. Events without a
// binding, or bound to an unknown template, send nothing and return no error.
// Channel errors from the dispatcher are returned.
func (b *Binder) Notify(ctx context.Context, event lifecycle.Event, task domain.Task) (Notification, error) {
	n := Notification{Event: event}

	binding, ok := b.Binding(event)
	if !ok {
		return n, nil
	}
	n.TemplateID = binding.Template

	tmpl, err := b.catalog.Get(binding.Template)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			b.logger.Warn("binding references unknown template",
				"event", event,
				"template_id", binding.Template,
			)
			return n, nil
		}
		return n, err
	}

	recipients := recipientIDs(binding.Recipients, task)
	if len(recipients) == 0 {
		return n, nil
	}

	body, err := templates.Render(tmpl, Variables(task, b.now(), b.organization))
	if err != nil {
		return n, err
	}

	msgs := make([]domain.RenderedMessage, 0, len(recipients))
	for _, id := range recipients {
		addr, err := b.directory.Resolve(ctx, id)
		if err != nil {
			return n, &domain.MessagingError{Recipient: id, Op: "Resolve", Err: err}
		}
		msgs = append(msgs, domain.RenderedMessage{
			Recipient: addr,
			Body:      body,
			Category:  tmpl.Category,
			Priority:  task.Priority,
		})
	}

	results, err := b.sender.SendAll(ctx, msgs)
	if err != nil {
		return n, err
	}
	n.Results = results

	b.logger.Info("notification sent",
		"event", event,
		"task_id", task.ID,
		"template_id", tmpl.ID,
		"recipients", len(msgs),
		"succeeded", domain.CountSucceeded(results),
	)

	return n, nil
}

// recipientIDs lists the participants for role, assignee first, without
// empty or repeated ids.
func recipientIDs(role config.RecipientRole, task domain.Task) []string {
	var candidates []string
	switch role {
	case config.RecipientAssignee:
		candidates = []string{task.AssignedTo}
	case config.RecipientAssigner:
		candidates = []string{task.AssignedBy}
	case config.RecipientBoth:
		candidates = []string{task.AssignedTo, task.AssignedBy}
	}

	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Variables derives the template variables for task. Values that the task
// does not have are left out so their placeholders stay visible.
func Variables(task domain.Task, now time.Time, organization string) map[string]string {
	vars := make(map[string]string)
	set := func(name, value string) {
		if value != "" {
			vars[name] = value
		}
	}

	set("taskName", task.Title)
	set("activityName", task.Title)
	set("taskId", task.ID)
	set("department", task.Department)
	set("priority", string(task.Priority))
	set("status", StatusText(task))
	set("instructions", task.Description)
	set("assignee", task.AssignedTo)
	set("assigner", task.AssignedBy)
	set("feedback", task.RejectionReason)
	set("progress", strconv.Itoa(task.ProgressPercent))
	set("organizationName", organization)

	if !task.DueAt.IsZero() {
		days := task.DaysUntilDue(now)
		set("dueDate", task.DueAt.Format("2006-01-02"))
		set("daysUntilDue", strconv.Itoa(days))
		set("dueSummary", DueSummary(days))
	}

	if task.CompletedAt != nil {
		set("completedBy", task.AssignedTo)
		set("completionDate", task.CompletedAt.Format("2006-01-02"))
	}

	if doc, ok := task.LatestSubmission(); ok {
		submittedBy := doc.UploadedBy
		if submittedBy == "" {
			submittedBy = task.AssignedTo
		}
		set("submittedBy", submittedBy)
		set("documentName", doc.Name)
		set("documentCount", strconv.Itoa(pendingDocuments(task)))
	}

	return vars
}

// StatusText words the task state for messages, folding in the review outcome
// once the task is completed.
func StatusText(task domain.Task) string {
	if task.State != domain.TaskCompleted {
		return string(task.State)
	}
	switch task.Review {
	case domain.ReviewPending:
		return "awaiting review"
	case domain.ReviewApproved:
		return "approved"
	case domain.ReviewRejectedForRevision:
		return "revision requested"
	}
	return string(task.State)
}

// pendingDocuments counts documents awaiting review, which is the latest
// submission while a review is open.
func pendingDocuments(task domain.Task) int {
	n := 0
	for _, d := range task.SubmittedDocuments {
		if d.ReviewStatus == domain.DocumentPending {
			n++
		}
	}
	if n == 0 {
		return len(task.SubmittedDocuments)
	}
	return n
}

// DueSummary words a day count relative to the due date.
func DueSummary(daysUntilDue int) string {
	switch {
	case daysUntilDue == 0:
		return "due today"
	case daysUntilDue < 0:
		return "overdue"
	case daysUntilDue == 1:
		return "due in 1 day"
	default:
		return fmt.Sprintf("due in %d days", daysUntilDue)
	}
}
