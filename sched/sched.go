// Package sched runs periodic functions from the application loop. Tasks
// run on the goroutine that calls Process, never concurrently.
package sched

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxTasks bounds the task table.
const DefaultMaxTasks = 8

var ErrTableFull = errors.New("scheduler table full")

// TaskID identifies a scheduled task. Zero is never valid.
type TaskID uint

type task struct {
	id     TaskID
	period time.Duration
	next   time.Time
	fn     func()
}

// Scheduler is a fixed size table of periodic tasks.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []*task
	max    int
	nextID TaskID
	now    func() time.Time
}

// New returns a scheduler with room for max tasks.
func New(max int) *Scheduler {
	if max <= 0 {
		max = DefaultMaxTasks
	}
	return &Scheduler{max: max, now: time.Now}
}

// Add schedules fn to run every period, first one period from now.
func (s *Scheduler) Add(period time.Duration, fn func()) (TaskID, error) {
	if period <= 0 || fn == nil {
		return 0, errors.New("invalid task")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) >= s.max {
		return 0, ErrTableFull
	}

	s.nextID++
	s.tasks = append(s.tasks, &task{
		id:     s.nextID,
		period: period,
		next:   s.now().Add(period),
		fn:     fn,
	})
	return s.nextID, nil
}

// Remove unschedules a task and reports whether it was scheduled.
func (s *Scheduler) Remove(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.id == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Process runs every task that is due and returns how many ran.
func (s *Scheduler) Process() int {
	s.mu.Lock()
	now := s.now()
	var due []func()
	for _, t := range s.tasks {
		if now.Before(t.next) {
			continue
		}
		due = append(due, t.fn)
		t.next = t.next.Add(t.period)
		if t.next.Before(now) {
			// fell behind; don't run a burst to catch up
			t.next = now.Add(t.period)
		}
	}
	s.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

// Len returns the number of scheduled tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
