package reminder

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(delay time.Duration, fn func()) Timer {
	t := &fakeTimer{delay: delay, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

type recorder struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (r *recorder) Notify(_ context.Context, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.bodies = append(r.bodies, body)
	return nil
}

type permittedRecorder struct {
	recorder
	allow    bool
	requests int
}

func (p *permittedRecorder) RequestPermission(context.Context) bool {
	p.requests++
	return p.allow
}

func block(start time.Time, course string) model.BlockAssignment {
	return model.BlockAssignment{Start: start, End: start.Add(30 * time.Minute), Course: course}
}

func TestDelayWrapsPastTimesToNextDay(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	if got := Delay(now.Add(15*time.Minute), now); got != 15*time.Minute {
		t.Fatalf("expected 15m, got %v", got)
	}
	if got := Delay(now.Add(-time.Hour), now); got != 23*time.Hour {
		t.Fatalf("expected 23h, got %v", got)
	}
}

func TestStartArmsTimersAndNotifies(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	notifier := &permittedRecorder{allow: true}
	fallback := &recorder{}
	d := NewDispatcher(notifier, fallback, WithClock(func() time.Time { return clock.now }, clock.afterFunc))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tasks := d.Start(context.Background(), []model.BlockAssignment{block(start, "Math"), block(start.Add(30*time.Minute), "Art")})
	if len(tasks) != 2 || len(clock.timers) != 2 {
		t.Fatalf("expected 2 armed tasks, got %d tasks / %d timers", len(tasks), len(clock.timers))
	}
	if clock.timers[0].delay != time.Hour || clock.timers[1].delay != 90*time.Minute {
		t.Fatalf("unexpected delays: %v, %v", clock.timers[0].delay, clock.timers[1].delay)
	}
	clock.timers[0].fn()
	if len(notifier.titles) != 1 || notifier.titles[0] != "Start studying: Math" || notifier.bodies[0] != "Time: 09:00 ~ 09:30" {
		t.Fatalf("unexpected notification: %v %v", notifier.titles, notifier.bodies)
	}
	select {
	case <-tasks[0].Done():
	default:
		t.Fatalf("expected fired task to be done")
	}
	if len(fallback.titles) != 0 {
		t.Fatalf("expected fallback unused")
	}
}

func TestPermissionRequestedOnceAndDeniedUsesFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	notifier := &permittedRecorder{allow: false}
	fallback := &recorder{}
	d := NewDispatcher(notifier, fallback, WithClock(func() time.Time { return clock.now }, clock.afterFunc))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	d.Start(context.Background(), []model.BlockAssignment{block(start, "Math")})
	d.Start(context.Background(), []model.BlockAssignment{block(start, "Art")})
	if notifier.requests != 1 {
		t.Fatalf("expected a single permission request, got %d", notifier.requests)
	}
	if d.Granted() {
		t.Fatalf("expected permission denied")
	}
	clock.timers[1].fn()
	if len(fallback.titles) != 1 || fallback.titles[0] != "Start studying: Art" {
		t.Fatalf("expected fallback alert, got %v", fallback.titles)
	}
}

func TestCancelStopsPendingTask(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	notifier := &recorder{}
	d := NewDispatcher(notifier, notifier, WithClock(func() time.Time { return clock.now }, clock.afterFunc))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	tasks := d.Start(context.Background(), []model.BlockAssignment{block(start, "Math"), block(start, "Art")})
	if !tasks[0].Cancel() {
		t.Fatalf("expected pending task to cancel")
	}
	if tasks[0].Cancel() {
		t.Fatalf("expected second cancel to report false")
	}
	if !clock.timers[0].stopped {
		t.Fatalf("expected timer stopped")
	}
	clock.timers[0].fn()
	if len(notifier.titles) != 0 {
		t.Fatalf("expected cancelled task not to notify")
	}
	if got := d.Stop(); got != 1 {
		t.Fatalf("expected Stop to cancel 1 task, got %d", got)
	}
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestAlertNotifierWritesBell(t *testing.T) {
	var buf bytes.Buffer
	if err := (AlertNotifier{W: &buf}).Notify(context.Background(), "Start studying: Math", "Time: 09:00 ~ 09:30"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if buf.String() != "\aStart studying: Math\nTime: 09:00 ~ 09:30\n" {
		t.Fatalf("unexpected alert: %q", buf.String())
	}
}

func TestCommandNotifierWithoutCommandIsNotPermitted(t *testing.T) {
	if (CommandNotifier{}).RequestPermission(context.Background()) {
		t.Fatalf("expected empty command to be refused")
	}
}

func TestAlignToDayKeepsClockTimes(t *testing.T) {
	old := time.Date(2024, 1, 2, 21, 30, 0, 0, time.UTC)
	day := time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	got := AlignToDay([]model.BlockAssignment{block(old, "Math")}, day)
	want := time.Date(2024, 3, 4, 21, 30, 0, 0, time.UTC)
	if !got[0].Start.Equal(want) || !got[0].End.Equal(want.Add(30*time.Minute)) || got[0].Course != "Math" {
		t.Fatalf("unexpected aligned block: %+v", got[0])
	}
}
