package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasknotify/internal/domain"
	"tasknotify/internal/ports"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.GetTask(ctx, "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	task := &domain.Task{ID: "t1", Title: "Survey", SubmittedDocuments: []domain.Document{{ID: "d1"}}}
	if err := s.SaveTask(ctx, task, 0); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if task.Version != 1 {
		t.Errorf("expected version 1, got %d", task.Version)
	}

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	got.SubmittedDocuments[0].ID = "changed"

	again, _ := s.GetTask(ctx, "t1")
	if again.SubmittedDocuments[0].ID != "d1" {
		t.Error("stored task should not share slices with callers")
	}
}

func TestStore_VersionConflict(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	task := &domain.Task{ID: "t1"}
	if err := s.SaveTask(ctx, task, 0); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	stale := &domain.Task{ID: "t1"}
	if err := s.SaveTask(ctx, stale, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := s.SaveTask(ctx, task, 1); err != nil {
		t.Fatalf("SaveTask with current version failed: %v", err)
	}
}

func TestStore_DeliveriesAndReminderLock(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	entries := []ports.DeliveryEntry{{Event: "TaskAssigned", Recipient: "ana", Succeeded: true}}
	if err := s.AppendDeliveries(ctx, "t1", entries); err != nil {
		t.Fatalf("AppendDeliveries failed: %v", err)
	}
	got, _ := s.ListDeliveries(ctx, "t1")
	if len(got) != 1 || got[0].Recipient != "ana" {
		t.Errorf("unexpected deliveries %+v", got)
	}

	day := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	first, _ := s.AcquireReminderLock(ctx, "t1", day)
	second, _ := s.AcquireReminderLock(ctx, "t1", day.Add(time.Hour))
	nextDay, _ := s.AcquireReminderLock(ctx, "t1", day.Add(24*time.Hour))
	if !first || second || !nextDay {
		t.Errorf("unexpected lock results: %v %v %v", first, second, nextDay)
	}
}
