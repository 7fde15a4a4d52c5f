// Package reminder fires a notification at the start of every study block.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/classgrid/internal/model"
)

const clockLayout = "15:04"

// Notifier delivers one reminder.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Permitter is implemented by notifiers that need permission before first use.
type Permitter interface {
	RequestPermission(ctx context.Context) bool
}

// Timer is the subset of *time.Timer used by tasks.
type Timer interface {
	Stop() bool
}

// Task is one armed reminder.
type Task struct {
	Assignment model.BlockAssignment
	FireAt     time.Time

	mu        sync.Mutex
	timer     Timer
	fired     bool
	cancelled bool
	done      chan struct{}
}

// Cancel stops the reminder. It reports whether the reminder was still pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	close(t.done)
	return true
}

// Done is closed once the task fired or was cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) markFired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.fired = true
	close(t.done)
	return true
}

// Dispatcher arms one timer per study block.
type Dispatcher struct {
	notifier Notifier
	fallback Notifier
	onError  func(error)

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	mu        sync.Mutex
	requested bool
	granted   bool
	tasks     []*Task
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces the wall clock and timer factory.
func WithClock(now func() time.Time, afterFunc func(time.Duration, func()) Timer) Option {
	return func(d *Dispatcher) {
		d.now = now
		d.afterFunc = afterFunc
	}
}

// WithErrorHandler receives notifier failures.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// NewDispatcher builds a dispatcher that uses notifier when permitted and fallback otherwise.
func NewDispatcher(notifier, fallback Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		fallback: fallback,
		onError:  func(error) {},
		now:      time.Now,
		afterFunc: func(delay time.Duration, fn func()) Timer {
			return time.AfterFunc(delay, fn)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Title returns the reminder title for a block.
func Title(a model.BlockAssignment) string {
	return fmt.Sprintf("Start studying: %s", a.Course)
}

// Body returns the reminder body for a block.
func Body(a model.BlockAssignment) string {
	return fmt.Sprintf("Time: %s ~ %s", a.Start.Format(clockLayout), a.End.Format(clockLayout))
}

// Delay returns how long to wait before the block starts. Start times already
// in the past are pushed to the same time on the next day.
func Delay(start, now time.Time) time.Duration {
	delta := start.Sub(now)
	if delta < 0 {
		delta += 24 * time.Hour
	}
	if delta < 0 {
		return 0
	}
	return delta
}

// AlignToDay moves every assignment onto day, keeping its wall-clock times.
func AlignToDay(assignments []model.BlockAssignment, day time.Time) []model.BlockAssignment {
	out := make([]model.BlockAssignment, len(assignments))
	for i, a := range assignments {
		length := a.End.Sub(a.Start)
		start := onDay(a.Start, day)
		out[i] = model.BlockAssignment{Start: start, End: start.Add(length), Course: a.Course}
	}
	return out
}

func onDay(t, day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

// Start arms a reminder for every assignment and returns the task handles.
func (d *Dispatcher) Start(ctx context.Context, assignments []model.BlockAssignment) []*Task {
	target := d.target(ctx)
	now := d.now()
	tasks := make([]*Task, 0, len(assignments))
	for _, a := range assignments {
		delay := Delay(a.Start, now)
		task := &Task{Assignment: a, FireAt: now.Add(delay), done: make(chan struct{})}
		task.mu.Lock()
		task.timer = d.afterFunc(delay, func() {
			if !task.markFired() || target == nil {
				return
			}
			if err := target.Notify(ctx, Title(task.Assignment), Body(task.Assignment)); err != nil {
				d.onError(err)
			}
		})
		task.mu.Unlock()
		tasks = append(tasks, task)
	}
	d.mu.Lock()
	d.tasks = append(d.tasks, tasks...)
	d.mu.Unlock()
	return tasks
}

// Stop cancels every pending reminder and returns how many were cancelled.
func (d *Dispatcher) Stop() int {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	cancelled := 0
	for _, t := range tasks {
		if t.Cancel() {
			cancelled++
		}
	}
	return cancelled
}

// Wait blocks until every armed reminder fired or was cancelled, or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	tasks := append([]*Task(nil), d.tasks...)
	d.mu.Unlock()
	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Granted reports whether the primary notifier is in use.
func (d *Dispatcher) Granted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted
}

func (d *Dispatcher) target(ctx context.Context) Notifier {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.requested {
		d.requested = true
		d.granted = d.notifier != nil
		if p, ok := d.notifier.(Permitter); ok {
			d.granted = p.RequestPermission(ctx)
		}
	}
	if d.granted {
		return d.notifier
	}
	return d.fallback
}
