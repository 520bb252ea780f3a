package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasknotify/internal/api"
	"tasknotify/internal/bootstrap"
	"tasknotify/internal/config"
	"tasknotify/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.AppConfig{
		Store:  config.StoreMemory,
		Worker: config.WorkerConfig{ScanCount: 100, ReminderWindow: 24 * time.Hour, Interval: time.Hour},
		Channel: config.ChannelConfig{
			Name:        "whatsapp",
			Sender:      config.SenderSimulated,
			SuccessRate: 1,
			AutoConnect: true,
		},
		Organization: "Field Ops",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	srv := httptest.NewServer(api.NewHandler(c.Tasks, c.Dispatch, c.Channel, logger).HTTPHandler())
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplatesList(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "templates", "list", "--category", "approval")
	if err != nil {
		t.Fatalf("templates list failed: %v", err)
	}
	for _, id := range []string{"document_approval", "task_approved", "task_rejected"} {
		if !strings.Contains(out, id) {
			t.Errorf("expected %s in output:\n%s", id, out)
		}
	}
	if strings.Contains(out, "task_reminder") {
		t.Errorf("reminder template should be filtered out:\n%s", out)
	}
}

func TestTemplatesRender(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "templates", "render", "task_reminder", "--var", "taskName=Audit")
	if err != nil {
		t.Fatalf("templates render failed: %v", err)
	}
	if !strings.Contains(out, "Audit") {
		t.Errorf("expected rendered task name, got %q", out)
	}

	if _, err := execute(t, srv, "templates", "render", "nope"); !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, err := execute(t, srv, "templates", "render", "task_reminder", "--var", "broken"); err == nil {
		t.Error("expected error for malformed variable")
	}
}

func TestDispatch(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "--json", "dispatch", "task_reminder", "--to", "ana,bruno", "--var", "taskName=Audit")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	var resp struct {
		Succeeded int `json:"succeeded"`
		Results   []domain.DispatchResult
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if resp.Succeeded != 2 || len(resp.Results) != 2 || resp.Results[0].Recipient != "ana" {
		t.Errorf("unexpected dispatch response %+v", resp)
	}
}

func TestDelivery(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "--json", "dispatch", "task_reminder", "--to", "ana")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	var resp struct {
		Results []domain.DispatchResult
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil || len(resp.Results) != 1 {
		t.Fatalf("invalid dispatch output %q: %v", out, err)
	}

	out, err = execute(t, srv, "delivery", resp.Results[0].DeliveryID)
	if err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if !strings.Contains(out, "delivered (ana)") {
		t.Errorf("unexpected output %q", out)
	}

	_, err = execute(t, srv, "delivery", "WA_unknown")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 api error, got %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)

	steps := [][]string{
		{"task", "assign", "--id", "t1", "--title", "Audit", "--assignee", "ana", "--assigner", "bruno", "--due", "2030-01-01T00:00:00Z"},
		{"task", "start", "t1"},
		{"task", "progress", "t1", "40"},
		{"task", "submit", "t1", "--doc", "report.pdf"},
		{"task", "reject", "t1", "--reason", "missing totals"},
	}
	for _, args := range steps {
		if out, err := execute(t, srv, args...); err != nil {
			t.Fatalf("%v failed: %v\n%s", args, err, out)
		}
	}

	out, err := execute(t, srv, "task", "get", "t1")
	if err != nil {
		t.Fatalf("task get failed: %v", err)
	}
	if !strings.Contains(out, "rejected-for-revision") {
		t.Errorf("expected rejected review in output:\n%s", out)
	}

	out, err = execute(t, srv, "task", "deliveries", "t1")
	if err != nil {
		t.Fatalf("task deliveries failed: %v", err)
	}
	for _, event := range []string{"TaskAssigned", "TaskSubmitted", "TaskRejected"} {
		if !strings.Contains(out, event) {
			t.Errorf("expected %s delivery in output:\n%s", event, out)
		}
	}
}

func TestTaskErrors(t *testing.T) {
	srv := newTestServer(t)

	_, err := execute(t, srv, "task", "get", "missing")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 api error, got %v", err)
	}

	if _, err := execute(t, srv, "task", "assign", "--title", "x"); err == nil {
		t.Error("expected validation error for missing assignee")
	}
	if _, err := execute(t, srv, "task", "progress", "t1", "lots"); err == nil {
		t.Error("expected error for non-numeric percent")
	}
}

func TestChannel(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, srv, "channel", "disconnect")
	if err != nil || !strings.Contains(out, "whatsapp: disconnected") {
		t.Fatalf("disconnect: %v %q", err, out)
	}

	_, err = execute(t, srv, "dispatch", "task_reminder", "--to", "ana")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while disconnected, got %v", err)
	}

	out, err = execute(t, srv, "channel")
	if err != nil || !strings.Contains(out, "disconnected") {
		t.Errorf("status: %v %q", err, out)
	}
}
