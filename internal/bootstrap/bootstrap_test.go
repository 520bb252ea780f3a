package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasknotify/internal/channel"
	"tasknotify/internal/config"
	"tasknotify/internal/domain"
	"tasknotify/internal/lifecycle"
)

const notificationDocument = `
templates:
  - id: kickoff
    name: Kickoff
    category: assignment
    body: "{assignee} started {taskName}"
bindings:
  TaskStarted:
    template: kickoff
    recipients: assigner
`

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Store: config.StoreMemory,
		Worker: config.WorkerConfig{
			ScanCount:      100,
			ReminderWindow: 24 * time.Hour,
			Interval:       time.Hour,
		},
		Channel: config.ChannelConfig{
			Name:        "whatsapp",
			Sender:      config.SenderSimulated,
			SuccessRate: 1,
			Seed:        7,
			AutoConnect: true,
		},
		Organization: "Field Ops",
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_MemoryStore(t *testing.T) {
	ctx := context.Background()

	c, err := Build(ctx, testConfig(), newTestLogger())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Channel.State() != channel.Connected {
		t.Fatalf("expected connected channel, got %s", c.Channel.State())
	}

	outcome, err := c.Tasks.Assign(ctx, domain.Task{
		Title:      "Inventory count",
		AssignedTo: "+2348123456792",
		AssignedBy: "+2348123456789",
		DueAt:      time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if len(outcome.Results) != 1 || !outcome.Results[0].Succeeded {
		t.Fatalf("expected one successful assignment notice, got %+v", outcome.Results)
	}

	tasks, err := c.Store.ScanTasks(ctx)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one stored task, got %d (%v)", len(tasks), err)
	}
}

func TestBuild_AppliesNotificationConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasknotify.templates.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(notificationDocument))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.AppConfig = config.AppConfigSettings{Endpoint: srv.URL, Profile: "tasknotify.templates"}

	c, err := Build(context.Background(), cfg, newTestLogger())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if _, err := c.Catalog.Get("kickoff"); err != nil {
		t.Errorf("configured template not registered: %v", err)
	}
	binding, ok := c.Binder.Binding(lifecycle.TaskStarted)
	if !ok || binding.Template != "kickoff" || binding.Recipients != config.RecipientAssigner {
		t.Errorf("unexpected TaskStarted binding %+v", binding)
	}
}

func TestBuild_NotificationConfigUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := testConfig()
	cfg.AppConfig = config.AppConfigSettings{Endpoint: srv.URL, Profile: "missing"}

	if _, err := Build(context.Background(), cfg, newTestLogger()); err == nil {
		t.Fatal("expected error when the notification document cannot be loaded")
	}
}

func TestBuild_ManualConnect(t *testing.T) {
	cfg := testConfig()
	cfg.Channel.AutoConnect = false

	c, err := Build(context.Background(), cfg, newTestLogger())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	if c.Channel.State() != channel.Disconnected {
		t.Errorf("expected disconnected channel, got %s", c.Channel.State())
	}
}
