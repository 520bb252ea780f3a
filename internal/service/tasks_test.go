package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tasknotify/internal/adapters/memory"
	"tasknotify/internal/adapters/messaging"
	"tasknotify/internal/channel"
	"tasknotify/internal/dispatch"
	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
	"tasknotify/internal/notify"
	"tasknotify/internal/ports"
	"tasknotify/internal/templates"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc     *TaskService
	store   *memory.Store
	conn    *channel.Manager
	catalog *templates.Catalog
	sender  *dispatch.Dispatcher
}

func newFixture(t *testing.T, repo ports.TaskRepository) *fixture {
	t.Helper()

	store := memory.NewStore()
	if repo == nil {
		repo = store
	}

	conn := channel.NewManager("whatsapp", channel.SimulatedConnector(0), newTestLogger())
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	clock := func() time.Time { return testNow }
	catalog := templates.NewDefaultCatalog()
	sender := dispatch.NewDispatcher(conn, messaging.NewSimulatedSenderWithOutcome(0, messaging.AlwaysSucceed(), newTestLogger()), newTestLogger())
	binder := notify.NewBinder(catalog, sender, newTestLogger(), notify.WithClock(clock), notify.WithOrganization("Acme"))

	svc := NewTaskService(TaskServiceOptions{
		Repository: repo,
		Deliveries: store,
		Notifier:   binder,
		Logger:     newTestLogger(),
		Clock:      clock,
	})

	return &fixture{svc: svc, store: store, conn: conn, catalog: catalog, sender: sender}
}

func newTask() domain.Task {
	return domain.Task{
		ID:         "task-1",
		Title:      "Survey",
		Department: "Field Operations",
		AssignedTo: "+2348123456792",
		AssignedBy: "+2348123456789",
		DueAt:      testNow.Add(72 * time.Hour),
		Priority:   domain.PriorityHigh,
	}
}

func (f *fixture) assign(t *testing.T) {
	t.Helper()
	if _, err := f.svc.Assign(context.Background(), newTask()); err != nil {
		t.Fatalf("assign: %v", err)
	}
}

func TestTaskService_Assign(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	out, err := f.svc.Assign(ctx, newTask())
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if out.Task.State != domain.TaskPending || out.Task.Version != 1 {
		t.Errorf("unexpected task %+v", out.Task)
	}
	if len(out.Events) != 1 || out.Events[0] != lifecycle.TaskAssigned {
		t.Errorf("unexpected events %v", out.Events)
	}
	if len(out.Results) != 1 || out.Results[0].Recipient != "+2348123456792" {
		t.Errorf("assignment should notify the assignee: %+v", out.Results)
	}

	deliveries, err := f.svc.Deliveries(ctx, "task-1")
	if err != nil {
		t.Fatalf("Deliveries failed: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].TemplateID != templates.TaskAssignmentID || deliveries[0].Event != "TaskAssigned" {
		t.Errorf("unexpected delivery log %+v", deliveries)
	}
}

func TestTaskService_AssignGeneratesID(t *testing.T) {
	f := newFixture(t, nil)

	task := newTask()
	task.ID = ""
	out, err := f.svc.Assign(context.Background(), task)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if out.Task.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := f.svc.Get(context.Background(), out.Task.ID); err != nil {
		t.Errorf("generated task not stored: %v", err)
	}
}

func TestTaskService_AssignErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	invalid := newTask()
	invalid.AssignedTo = ""
	if _, err := f.svc.Assign(ctx, invalid); !errors.Is(err, domain.ErrInvalidTask) {
		t.Errorf("expected ErrInvalidTask, got %v", err)
	}

	f.assign(t)
	if _, err := f.svc.Assign(ctx, newTask()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("duplicate id should be rejected, got %v", err)
	}
}

func TestTaskService_StartSubmitNotifiesAssigner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.assign(t)

	started, err := f.svc.Start(ctx, "task-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Task.State != domain.TaskInProgress || len(started.Results) != 0 {
		t.Errorf("start should not notify: %+v", started)
	}

	out, err := f.svc.Submit(ctx, "task-1", []domain.Document{{Name: "report.pdf"}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	task := out.Task
	if task.State != domain.TaskCompleted || task.Review != domain.ReviewPending {
		t.Errorf("unexpected state %s/%s", task.State, task.Review)
	}
	if task.ProgressPercent != 100 || len(task.SubmittedDocuments) != 1 {
		t.Errorf("unexpected submission %+v", task)
	}
	if task.SubmittedDocuments[0].ID == "" {
		t.Error("submitted document should get an id")
	}
	if len(out.Results) != 1 || out.Results[0].Recipient != "+2348123456789" || !out.Results[0].Succeeded {
		t.Errorf("completion should go to the assigner: %+v", out.Results)
	}
}

func TestTaskService_RejectAndRestart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.assign(t)

	mustOK := func(_ *Outcome, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	mustOK(f.svc.Start(ctx, "task-1"))
	mustOK(f.svc.Submit(ctx, "task-1", []domain.Document{{Name: "draft.pdf"}}))

	if _, err := f.svc.Reject(ctx, "task-1", "  "); !errors.Is(err, domain.ErrMissingReason) {
		t.Fatalf("expected ErrMissingReason, got %v", err)
	}

	out, err := f.svc.Reject(ctx, "task-1", "missing signatures")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if out.Task.Review != domain.ReviewRejectedForRevision || len(out.Results) != 1 {
		t.Errorf("unexpected reject outcome %+v", out)
	}

	mustOK(f.svc.Start(ctx, "task-1"))
	mustOK(f.svc.SetProgress(ctx, "task-1", 40))
	final, err := f.svc.Submit(ctx, "task-1", []domain.Document{{Name: "final.pdf"}})
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if len(final.Task.SubmittedDocuments) != 2 {
		t.Errorf("submission history should be kept, got %d documents", len(final.Task.SubmittedDocuments))
	}

	mustOK(f.svc.ReviewDocument(ctx, "task-1", final.Task.SubmittedDocuments[1].ID, true))
	approved, err := f.svc.Approve(ctx, "task-1")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Task.Review != domain.ReviewApproved {
		t.Errorf("expected approved, got %s", approved.Task.Review)
	}
	if _, err := f.svc.Start(ctx, "task-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("approved task cannot restart, got %v", err)
	}
}

func TestTaskService_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Start(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var taskErr *domain.TaskError
	if !errors.As(err, &taskErr) || taskErr.TaskID != "missing" || taskErr.Op != "Start" {
		t.Errorf("expected TaskError naming the task, got %v", err)
	}
}

func TestTaskService_ConcurrentSubmit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.assign(t)
	if _, err := f.svc.Start(ctx, "task-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(ctx, "task-1", []domain.Document{{Name: "report.pdf"}})
		}(i)
	}
	wg.Wait()

	succeeded, invalid := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInvalidTransition):
			invalid++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || invalid != 1 {
		t.Errorf("expected one success and one invalid transition, got %d/%d", succeeded, invalid)
	}

	task, _ := f.svc.Get(ctx, "task-1")
	if len(task.SubmittedDocuments) != 1 {
		t.Errorf("expected a single submission, got %d", len(task.SubmittedDocuments))
	}
}

// conflictingRepo reports a version conflict for the first n saves after
// letting a concurrent writer bump the stored version.
type conflictingRepo struct {
	*memory.Store
	conflicts int
	saves     int
}

func (r *conflictingRepo) SaveTask(ctx context.Context, task *domain.Task, expectedVersion int64) error {
	if expectedVersion > 0 && r.saves < r.conflicts {
		r.saves++
		stored, err := r.Store.GetTask(ctx, task.ID)
		if err != nil {
			return err
		}
		stored.ProgressPercent = 10
		if err := r.Store.SaveTask(ctx, stored, stored.Version); err != nil {
			return err
		}
	}
	return r.Store.SaveTask(ctx, task, expectedVersion)
}

func TestTaskService_RetriesVersionConflict(t *testing.T) {
	store := memory.NewStore()
	repo := &conflictingRepo{Store: store, conflicts: 1}
	f := newFixture(t, repo)
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, newTask()); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	out, err := f.svc.Start(ctx, "task-1")
	if err != nil {
		t.Fatalf("Start should succeed after reload: %v", err)
	}
	if out.Task.State != domain.TaskInProgress || out.Task.ProgressPercent != 10 {
		t.Errorf("transition should be re-applied to the reloaded task: %+v", out.Task)
	}
	if out.Task.Version != 3 {
		t.Errorf("expected version 3, got %d", out.Task.Version)
	}
}

func TestTaskService_GivesUpAfterRetries(t *testing.T) {
	store := memory.NewStore()
	repo := &conflictingRepo{Store: store, conflicts: 100}
	f := newFixture(t, repo)
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, newTask()); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if _, err := f.svc.Start(ctx, "task-1"); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestTaskService_NotificationFailureKeepsTransition(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.assign(t)
	if _, err := f.svc.Start(ctx, "task-1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.conn.Disconnect()

	out, err := f.svc.Submit(ctx, "task-1", []domain.Document{{Name: "report.pdf"}})
	if !errors.Is(err, domain.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	if out == nil || out.Task.State != domain.TaskCompleted {
		t.Fatalf("outcome should carry the persisted task: %+v", out)
	}

	stored, _ := f.svc.Get(ctx, "task-1")
	if stored.State != domain.TaskCompleted {
		t.Errorf("stored task should not be rolled back, got %s", stored.State)
	}
}

func TestTaskService_RequestReminderDoesNotSave(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.assign(t)

	out, err := f.svc.RequestReminder(ctx, "task-1")
	if err != nil {
		t.Fatalf("RequestReminder failed: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Recipient != "+2348123456792" {
		t.Errorf("reminder should go to the assignee: %+v", out.Results)
	}

	stored, _ := f.svc.Get(ctx, "task-1")
	if stored.Version != 1 {
		t.Errorf("reminder should not modify the task, version=%d", stored.Version)
	}
}
