package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestManualRunnerTick(t *testing.T) {
	r := NewManualRunner()

	var a, b atomic.Int32
	if err := r.Every(time.Minute, "a", func() { a.Add(1) }); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Every(time.Minute, "b", func() { b.Add(1) }); err != nil {
		t.Fatalf("register b: %v", err)
	}

	r.Tick("a")
	r.Tick("a")
	r.Tick("unknown")
	if a.Load() != 2 || b.Load() != 0 {
		t.Fatalf("a=%d b=%d", a.Load(), b.Load())
	}
}

func TestManualRunnerTickAllRunsInRegistrationOrder(t *testing.T) {
	r := NewManualRunner()

	var order []string
	r.Every(time.Minute, "first", func() { order = append(order, "first") })
	r.Every(time.Minute, "second", func() { order = append(order, "second") })
	r.Every(time.Minute, "third", func() { order = append(order, "third") })

	r.TickAll()
	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManualRunnerReregisterReplacesTask(t *testing.T) {
	r := NewManualRunner()
	var hits atomic.Int32
	r.Every(time.Minute, "task", func() { hits.Add(10) })
	r.Every(time.Minute, "task", func() { hits.Add(1) })

	r.TickAll()
	if hits.Load() != 1 {
		t.Fatalf("expected replacement task only, hits=%d", hits.Load())
	}
}

func TestCronRunnerRunsTask(t *testing.T) {
	r := NewCronRunner(nil)

	var hits atomic.Int32
	if err := r.Every(20*time.Millisecond, "tick", func() { hits.Add(1) }); err != nil {
		t.Fatalf("register: %v", err)
	}

	r.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r.Stop(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for hits.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("task never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCronRunnerStopWaitsForCompletion(t *testing.T) {
	r := NewCronRunner(nil)
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx) // no tasks in flight: returns promptly
}
