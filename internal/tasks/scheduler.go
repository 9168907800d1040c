// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks provides a background scheduler for delayed best-effort
// operations.
package tasks

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// Status represents the current state of a scheduled task.
type Status string

const (
	// StatusScheduled indicates the task is waiting for its delay to elapse.
	StatusScheduled Status = "Scheduled"

	// StatusRunning indicates the task is currently executing.
	StatusRunning Status = "Running"

	// StatusComplete indicates the task finished successfully.
	StatusComplete Status = "Complete"

	// StatusFailed indicates the task exhausted its retries.
	StatusFailed Status = "Failed"

	// StatusCanceled indicates the task was canceled before it ran.
	StatusCanceled Status = "Canceled"
)

// Func is the work a task performs. It receives a bounded context.
type Func func(ctx context.Context) error

// Task is one scheduled operation.
type Task struct {
	ID          string
	Description string
	RunAt       time.Time

	mu      sync.Mutex
	status  Status
	lastErr error
	timer   *time.Timer
}

// Status returns the task's current state (thread-safe).
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the last execution error, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Cancel stops a task that has not started running. Canceling a finished
// or running task has no effect.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusScheduled && t.timer != nil && t.timer.Stop() {
		t.status = StatusCanceled
	}
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler runs delayed tasks with bounded retries.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	stopped bool
	wg      sync.WaitGroup

	maxRetries int
	retryDelay time.Duration
	runTimeout time.Duration
}

// NewScheduler creates a scheduler with default retry policy: three
// attempts spaced a minute apart, each bounded to thirty seconds.
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks:      make(map[string]*Task),
		maxRetries: 3,
		retryDelay: time.Minute,
		runTimeout: 30 * time.Second,
	}
}

// Schedule registers fn to run after delay. The returned task can be
// canceled until it starts.
func (s *Scheduler) Schedule(description string, delay time.Duration, fn Func) *Task {
	task := &Task{
		ID:          uuid.NewString(),
		Description: description,
		RunAt:       time.Now().Add(delay),
		status:      StatusScheduled,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		task.status = StatusCanceled
		return task
	}
	s.tasks[task.ID] = task
	s.mu.Unlock()

	task.mu.Lock()
	task.timer = time.AfterFunc(delay, func() {
		// RELIABILITY: join the wait group under the scheduler lock so a
		// timer firing while Stop runs either registers before Stop's
		// Wait or observes stopped and never executes.
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			task.mu.Lock()
			task.status = StatusCanceled
			task.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		s.run(task, fn)
	})
	task.mu.Unlock()
	return task
}

// run executes the task with the retry policy.
func (s *Scheduler) run(task *Task, fn Func) {
	task.mu.Lock()
	if task.status != StatusScheduled {
		task.mu.Unlock()
		return
	}
	task.status = StatusRunning
	task.mu.Unlock()

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryDelay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		err = fn(ctx)
		cancel()
		if err == nil {
			break
		}
		log.Printf("tasks: %s: attempt %d failed: %v", task.Description, attempt+1, err)
	}

	task.mu.Lock()
	task.lastErr = err
	if err != nil {
		task.status = StatusFailed
	} else {
		task.status = StatusComplete
	}
	task.mu.Unlock()

	s.mu.Lock()
	delete(s.tasks, task.ID)
	s.mu.Unlock()
}

// Pending returns the number of tasks not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels all scheduled tasks and waits for running ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.wg.Wait()
}
