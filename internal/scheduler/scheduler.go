// Package scheduler runs the daemon's periodic maintenance tasks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
)

// ErrUnknownTask is returned by RunTask for an unregistered ID.
var ErrUnknownTask = errors.New("unknown task")

// TaskFunc performs a task. ctx is cancelled when the scheduler stops or
// the task's timeout expires.
type TaskFunc func(ctx context.Context) error

// Task is a job run on a Schedule.
type Task struct {
	ID         string
	Name       string
	Schedule   Schedule
	Func       TaskFunc
	RunOnStart bool
	// Timeout bounds one run. Zero means no limit.
	Timeout time.Duration
}

// TaskStatus is the run history of a task.
type TaskStatus struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Running      bool          `json:"running"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	NextRun      time.Time     `json:"next_run,omitempty"`
	RunCount     int64         `json:"run_count"`
	ErrorCount   int64         `json:"error_count"`
}

type taskEntry struct {
	task    *Task
	status  TaskStatus
	nextRun time.Time
}

// Scheduler runs registered tasks until its context is cancelled. A task
// never overlaps with itself; a run that is due while the previous one is
// still going is skipped.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*taskEntry
	logger *logging.Logger
	tick   time.Duration
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates a scheduler with no tasks.
func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		tasks:  make(map[string]*taskEntry),
		logger: logger.WithComponent("scheduler"),
		tick:   time.Second,
		now:    time.Now,
	}
}

// AddTask registers task. IDs must be unique.
func (s *Scheduler) AddTask(task *Task) error {
	switch {
	case task.ID == "":
		return fmt.Errorf("task ID is required")
	case task.Schedule == nil:
		return fmt.Errorf("task %s: schedule is required", task.ID)
	case task.Func == nil:
		return fmt.Errorf("task %s: function is required", task.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	entry := &taskEntry{
		task:    task,
		status:  TaskStatus{ID: task.ID, Name: task.Name},
		nextRun: task.Schedule.Next(s.now()),
	}
	entry.status.NextRun = entry.nextRun
	s.tasks[task.ID] = entry
	return nil
}

// Status returns every task sorted by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, e.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunTask runs a task now and returns its error. It does not wait for, or
// skip because of, a scheduled run of the same task.
func (s *Scheduler) RunTask(ctx context.Context, id string) error {
	s.mu.Lock()
	entry, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return s.execute(ctx, entry)
}

// Run starts RunOnStart tasks, then checks for due tasks every tick until
// ctx is cancelled. It returns once every running task has finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	for _, e := range s.tasks {
		if e.task.RunOnStart {
			s.dispatch(ctx, e)
		}
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, e := range s.tasks {
		if !now.Before(e.nextRun) {
			s.dispatch(ctx, e)
		}
	}
}

// dispatch starts e in the background. Callers hold s.mu.
func (s *Scheduler) dispatch(ctx context.Context, e *taskEntry) {
	if e.status.Running {
		e.nextRun = e.task.Schedule.Next(s.now())
		e.status.NextRun = e.nextRun
		s.logger.Warn("task still running, skipping", "task", e.task.ID)
		return
	}
	e.status.Running = true
	e.nextRun = e.task.Schedule.Next(s.now())
	e.status.NextRun = e.nextRun
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, e)
	}()
}

func (s *Scheduler) execute(ctx context.Context, e *taskEntry) error {
	task := e.task
	var cancel context.CancelFunc
	if task.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := s.now()
	err := task.Func(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.status.Running = false
	e.status.LastRun = start
	e.status.LastDuration = duration
	e.status.RunCount++
	e.nextRun = task.Schedule.Next(s.now())
	e.status.NextRun = e.nextRun
	if err != nil {
		e.status.LastError = err.Error()
		e.status.ErrorCount++
		s.logger.Warn("task failed", "task", task.ID, "error", err, "duration", duration)
	} else {
		e.status.LastError = ""
		s.logger.Debug("task completed", "task", task.ID, "duration", duration)
	}
	return err
}
