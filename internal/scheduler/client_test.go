package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type fakeSchedulerConfig struct {
	redisURL string
}

func (c fakeSchedulerConfig) GetRedisURL() string            { return c.redisURL }
func (c fakeSchedulerConfig) GetAsynqQueueName() string      { return "sync" }
func (c fakeSchedulerConfig) GetAsynqConcurrency() int       { return 2 }
func (c fakeSchedulerConfig) GetSyncInterval() time.Duration { return time.Minute }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(fakeSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestEnqueueSyncCycleWritesTask(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := NewClient(fakeSchedulerConfig{redisURL: "redis://" + server.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.EnqueueSyncCycle(context.Background(), "scheduled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := false
	for _, key := range server.Keys() {
		if strings.Contains(key, "pending") {
			pending = true
		}
	}
	if !pending {
		t.Fatalf("expected a pending task key, got %v", server.Keys())
	}
}

func TestSyncCyclePayloadRoundTrip(t *testing.T) {
	task, err := NewSyncCycleTask(SyncCyclePayload{Trigger: "manual"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskSyncCycleRun {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	payload, err := ParseSyncCyclePayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Trigger != "manual" {
		t.Fatalf("unexpected trigger %q", payload.Trigger)
	}
}

func TestParseSyncCyclePayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskSyncCycleRun, []byte("not json"))
	if _, err := ParseSyncCyclePayload(task); err == nil {
		t.Fatal("expected parse error")
	}
}
