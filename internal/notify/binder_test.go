package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tasknotify/internal/adapters/messaging"
	"tasknotify/internal/channel"
	"tasknotify/internal/config"
	"tasknotify/internal/dispatch"
	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
	"tasknotify/internal/templates"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender captures batches instead of dispatching them.
type recordingSender struct {
	batches [][]domain.RenderedMessage
	err     error
}

func (s *recordingSender) SendAll(_ context.Context, msgs []domain.RenderedMessage) ([]domain.DispatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, msgs)
	results := make([]domain.DispatchResult, len(msgs))
	for i, m := range msgs {
		results[i] = domain.DispatchResult{Recipient: m.Recipient, Succeeded: true, DeliveryID: "WA_test"}
	}
	return results, nil
}

func newTask() domain.Task {
	return domain.Task{
		ID:          "task-1",
		Title:       "Survey",
		Description: "Visit ten households",
		Department:  "Field Operations",
		AssignedTo:  "+2348123456792",
		AssignedBy:  "+2348123456789",
		DueAt:       testNow.Add(48 * time.Hour),
		Priority:    domain.PriorityHigh,
		State:       domain.TaskPending,
	}
}

func newBinder(sender BatchSender, opts ...Option) *Binder {
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithOrganization("Acme")}, opts...)
	return NewBinder(templates.NewDefaultCatalog(), sender, newTestLogger(), opts...)
}

func TestNotify_SubmittedGoesToAssigner(t *testing.T) {
	conn := channel.NewManager("whatsapp", channel.SimulatedConnector(0), newTestLogger())
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	sender := messaging.NewSimulatedSenderWithOutcome(0, messaging.AlwaysSucceed(), newTestLogger())
	binder := newBinder(dispatch.NewDispatcher(conn, sender, newTestLogger()))

	task := newTask()
	task, _, err := lifecycle.Start(task, testNow)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	task, events, err := lifecycle.Submit(task, []domain.Document{{ID: "d1", Name: "report.pdf"}}, testNow)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if task.State != domain.TaskCompleted || task.Review != domain.ReviewPending {
		t.Fatalf("unexpected state %s/%s", task.State, task.Review)
	}
	if task.ProgressPercent != 100 || len(task.SubmittedDocuments) != 1 {
		t.Fatalf("unexpected submission %+v", task)
	}
	if len(events) != 1 || events[0] != lifecycle.TaskSubmitted {
		t.Fatalf("unexpected events %v", events)
	}

	n, err := binder.Notify(context.Background(), events[0], task)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if n.TemplateID != templates.TaskCompletionID {
		t.Errorf("expected completion template, got %s", n.TemplateID)
	}
	if len(n.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(n.Results))
	}
	if n.Results[0].Recipient != task.AssignedBy || !n.Results[0].Succeeded {
		t.Errorf("unexpected result %+v", n.Results[0])
	}
}

func TestNotify_RendersTaskVariables(t *testing.T) {
	sender := &recordingSender{}
	binder := newBinder(sender)

	if _, err := binder.Notify(context.Background(), lifecycle.TaskAssigned, newTask()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(sender.batches) != 1 || len(sender.batches[0]) != 1 {
		t.Fatalf("expected one message, got %v", sender.batches)
	}
	msg := sender.batches[0][0]

	if msg.Recipient != "+2348123456792" {
		t.Errorf("assignment should go to the assignee, got %s", msg.Recipient)
	}
	if msg.Category != domain.CategoryAssignment || msg.Priority != domain.PriorityHigh {
		t.Errorf("unexpected category/priority %s/%s", msg.Category, msg.Priority)
	}
	for _, want := range []string{"*Task:* Survey", "*Department:* Field Operations", "*Due Date:* 2026-03-12", "Visit ten households", "Acme"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if strings.Contains(msg.Body, "{") {
		t.Errorf("all placeholders should be filled:\n%s", msg.Body)
	}
}

func TestNotify_UnboundEventSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	binder := newBinder(sender)

	n, err := binder.Notify(context.Background(), lifecycle.TaskStarted, newTask())
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(n.Results) != 0 || len(sender.batches) != 0 {
		t.Errorf("TaskStarted should not notify: %+v", n)
	}
}

func TestNotify_MissingTemplateSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	binder := newBinder(sender)

	err := binder.Apply(&config.NotificationConfig{
		Bindings: map[string]config.Binding{
			"TaskApproved": {Template: "does_not_exist", Recipients: config.RecipientAssignee},
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	n, err := binder.Notify(context.Background(), lifecycle.TaskApproved, newTask())
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(n.Results) != 0 || len(sender.batches) != 0 {
		t.Errorf("missing template should send nothing: %+v", n)
	}
}

func TestNotify_ChannelErrorPropagates(t *testing.T) {
	conn := channel.NewManager("whatsapp", channel.SimulatedConnector(0), newTestLogger())
	sender := messaging.NewSimulatedSenderWithOutcome(0, nil, newTestLogger())
	binder := newBinder(dispatch.NewDispatcher(conn, sender, newTestLogger()))

	_, err := binder.Notify(context.Background(), lifecycle.ReminderRequested, newTask())
	if !errors.Is(err, domain.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestApply_OverridesBindingsAndRegistersTemplates(t *testing.T) {
	sender := &recordingSender{}
	binder := newBinder(sender, WithDirectory(StaticDirectory{"+2348123456789": "manager@acme"}))

	err := binder.Apply(&config.NotificationConfig{
		Templates: []templates.Template{{
			ID:                "started_notice",
			Name:              "Started",
			Category:          domain.CategoryAssignment,
			Body:              "{assignee} started {taskName}",
			RequiredVariables: []string{"assignee", "taskName"},
		}},
		Bindings: map[string]config.Binding{
			"TaskStarted": {Template: "started_notice", Recipients: config.RecipientAssigner},
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := binder.Notify(context.Background(), lifecycle.TaskStarted, newTask()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(sender.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(sender.batches))
	}
	msg := sender.batches[0][0]
	if msg.Recipient != "manager@acme" {
		t.Errorf("directory should resolve the assigner, got %s", msg.Recipient)
	}
	if msg.Body != "+2348123456792 started Survey" {
		t.Errorf("unexpected body %q", msg.Body)
	}
}

func TestApply_DuplicateTemplate(t *testing.T) {
	binder := newBinder(&recordingSender{})

	err := binder.Apply(&config.NotificationConfig{
		Templates: []templates.Template{{ID: templates.TaskReminderID, Category: domain.CategoryReminder, Body: "x"}},
	})
	if !errors.Is(err, domain.ErrDuplicateTemplateID) {
		t.Fatalf("expected ErrDuplicateTemplateID, got %v", err)
	}
}

func TestApply_RejectedDocumentChangesNothing(t *testing.T) {
	catalog := templates.NewDefaultCatalog()
	binder := NewBinder(catalog, &recordingSender{}, newTestLogger())
	before := catalog.Len()

	err := binder.Apply(&config.NotificationConfig{
		Templates: []templates.Template{
			{ID: "kickoff", Category: domain.CategoryAssignment, Body: "{taskName} started"},
			{ID: templates.TaskReminderID, Category: domain.CategoryReminder, Body: "x"},
		},
		Bindings: map[string]config.Binding{
			"TaskStarted": {Template: "kickoff", Recipients: config.RecipientAssigner},
		},
	})
	if !errors.Is(err, domain.ErrDuplicateTemplateID) {
		t.Fatalf("expected ErrDuplicateTemplateID, got %v", err)
	}

	if _, err := catalog.Get("kickoff"); !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("kickoff should not be registered, got %v", err)
	}
	if catalog.Len() != before {
		t.Errorf("catalog grew from %d to %d", before, catalog.Len())
	}
	if _, ok := binder.Binding(lifecycle.TaskStarted); ok {
		t.Error("TaskStarted binding should be unchanged")
	}

	// the corrected document still applies
	err = binder.Apply(&config.NotificationConfig{
		Templates: []templates.Template{{ID: "kickoff", Category: domain.CategoryAssignment, Body: "{taskName} started"}},
		Bindings: map[string]config.Binding{
			"TaskStarted": {Template: "kickoff", Recipients: config.RecipientAssigner},
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func TestNotify_BothParticipants(t *testing.T) {
	tests := []struct {
		name       string
		assignedBy string
		want       []string
	}{
		{"distinct", "+2348123456789", []string{"+2348123456792", "+2348123456789"}},
		{"self assigned", "+2348123456792", []string{"+2348123456792"}},
		{"no assigner", "", []string{"+2348123456792"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			binder := newBinder(sender)
			err := binder.Apply(&config.NotificationConfig{
				Bindings: map[string]config.Binding{
					"TaskSubmitted": {Template: templates.TaskCompletionID, Recipients: config.RecipientBoth},
				},
			})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			task := newTask()
			task.AssignedBy = tt.assignedBy
			n, err := binder.Notify(context.Background(), lifecycle.TaskSubmitted, task)
			if err != nil {
				t.Fatalf("Notify failed: %v", err)
			}
			if len(n.Results) != len(tt.want) || len(sender.batches) != 1 {
				t.Fatalf("expected %d results in one batch, got %+v", len(tt.want), n.Results)
			}
			for i, want := range tt.want {
				if got := sender.batches[0][i].Recipient; got != want {
					t.Errorf("recipient %d: expected %s, got %s", i, want, got)
				}
			}
		})
	}
}

func TestVariables(t *testing.T) {
	task := newTask()
	completed := testNow
	task.CompletedAt = &completed
	task.RejectionReason = "missing signatures"
	task.SubmittedDocuments = []domain.Document{
		{ID: "d1", Name: "draft.pdf", ReviewStatus: domain.DocumentRejected},
		{ID: "d2", Name: "final.pdf", UploadedBy: "field-agent", ReviewStatus: domain.DocumentPending},
	}

	vars := Variables(task, testNow, "Acme")

	want := map[string]string{
		"taskName":         "Survey",
		"taskId":           "task-1",
		"dueDate":          "2026-03-12",
		"daysUntilDue":     "2",
		"dueSummary":       "due in 2 days",
		"completedBy":      "+2348123456792",
		"completionDate":   "2026-03-10",
		"submittedBy":      "field-agent",
		"documentName":     "final.pdf",
		"documentCount":    "1",
		"feedback":         "missing signatures",
		"organizationName": "Acme",
		"progress":         "0",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, vars[k])
		}
	}
}

func TestVariables_StatusFollowsReview(t *testing.T) {
	tests := []struct {
		state  domain.TaskState
		review domain.ReviewStatus
		want   string
	}{
		{domain.TaskPending, domain.ReviewNone, "pending"},
		{domain.TaskInProgress, domain.ReviewNone, "in-progress"},
		{domain.TaskCompleted, domain.ReviewPending, "awaiting review"},
		{domain.TaskCompleted, domain.ReviewApproved, "approved"},
		{domain.TaskCompleted, domain.ReviewRejectedForRevision, "revision requested"},
		{domain.TaskCompleted, domain.ReviewNone, "completed"},
	}
	for _, tt := range tests {
		task := newTask()
		task.State = tt.state
		task.Review = tt.review
		if got := Variables(task, testNow, "")["status"]; got != tt.want {
			t.Errorf("%s/%s: expected %q, got %q", tt.state, tt.review, tt.want, got)
		}
	}
}

func TestVariables_DueAcrossDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	// clocks spring forward on 2024-03-10, so that day is 23h long
	task := newTask()
	task.DueAt = time.Date(2024, 3, 11, 17, 0, 0, 0, loc)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, loc)

	vars := Variables(task, now, "")
	if vars["daysUntilDue"] != "1" || vars["dueSummary"] != "due in 1 day" {
		t.Errorf("expected due in 1 day, got %q / %q", vars["daysUntilDue"], vars["dueSummary"])
	}
}

func TestVariables_OmitsAbsentValues(t *testing.T) {
	task := newTask()
	task.Department = ""
	task.DueAt = time.Time{}

	vars := Variables(task, testNow, "")
	for _, name := range []string{"department", "dueDate", "dueSummary", "completedBy", "documentName", "organizationName"} {
		if _, ok := vars[name]; ok {
			t.Errorf("%s should be absent", name)
		}
	}
}

func TestDueSummary(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "due today"},
		{-3, "overdue"},
		{1, "due in 1 day"},
		{5, "due in 5 days"},
	}
	for _, tt := range tests {
		if got := DueSummary(tt.days); got != tt.want {
			t.Errorf("DueSummary(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}
