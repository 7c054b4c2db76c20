package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

type fakeChannel struct {
	mu       sync.Mutex
	name     string
	err      error
	block    bool
	received [][]models.Alert
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, alerts []models.Alert) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	f.received = append(f.received, alerts)
	f.mu.Unlock()
	return f.err
}

func (f *fakeChannel) deliveries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func testAlerts() []models.Alert {
	return []models.Alert{{
		Level:     string(models.RiskAlert),
		Type:      "anomaly",
		Message:   "error rate climbing",
		Timestamp: time.Now(),
	}}
}

func TestDispatchDeliversToAllChannels(t *testing.T) {
	a := &fakeChannel{name: "chat"}
	b := &fakeChannel{name: "email"}
	d := NewDispatcher(nil, time.Second, a, b)

	failures := d.Dispatch(context.Background(), testAlerts())
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if a.deliveries() != 1 || b.deliveries() != 1 {
		t.Fatalf("deliveries a=%d b=%d", a.deliveries(), b.deliveries())
	}
}

func TestDispatchIsolatesFailingChannel(t *testing.T) {
	bad := &fakeChannel{name: "webhook", err: errors.New("503 from endpoint")}
	good := &fakeChannel{name: "chat"}
	d := NewDispatcher(nil, time.Second, bad, good)

	failures := d.Dispatch(context.Background(), testAlerts())
	if len(failures) != 1 {
		t.Fatalf("expected exactly 1 failure, got %d", len(failures))
	}
	if failures[0].Channel != "webhook" {
		t.Fatalf("failure channel = %s", failures[0].Channel)
	}
	if good.deliveries() != 1 {
		t.Fatalf("healthy channel must still receive the batch")
	}
}

func TestDispatchTimesOutSlowChannel(t *testing.T) {
	slow := &fakeChannel{name: "pager", block: true}
	fast := &fakeChannel{name: "chat"}
	d := NewDispatcher(nil, 50*time.Millisecond, slow, fast)

	start := time.Now()
	failures := d.Dispatch(context.Background(), testAlerts())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("dispatch blocked for %v", elapsed)
	}

	if len(failures) != 1 || failures[0].Channel != "pager" {
		t.Fatalf("failures = %v", failures)
	}
	if !errors.Is(failures[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", failures[0].Err)
	}
	if fast.deliveries() != 1 {
		t.Fatalf("fast channel must not wait on the slow one")
	}
}

func TestDispatchEmptyBatchIsNoOp(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	d := NewDispatcher(nil, time.Second, ch)

	if failures := d.Dispatch(context.Background(), nil); failures != nil {
		t.Fatalf("expected nil failures, got %v", failures)
	}
	if ch.deliveries() != 0 {
		t.Fatalf("empty batch must not be delivered")
	}
}
