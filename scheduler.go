package resilient

import "time"

// ScheduleHandle is returned by a Scheduler when a task is scheduled. Cancel prevents a not-yet-started task from
// running and reports whether the cancellation took effect, i.e. whether the task had not already started.
type ScheduleHandle interface {
	Cancel() bool
}

// Scheduler is the minimal abstraction the async runner needs to defer an attempt: schedule a task to run after a
// delay, and be able to cancel it before it fires. The core never holds the scheduler's internal locks and only
// submits short-lived tasks.
type Scheduler interface {
	Schedule(task func(), delay time.Duration) ScheduleHandle
}

type timerHandle struct {
	timer *time.Timer
}

func (h *timerHandle) Cancel() bool {
	return h.timer.Stop()
}

type timerScheduler struct{}

func (timerScheduler) Schedule(task func(), delay time.Duration) ScheduleHandle {
	return &timerHandle{timer: time.AfterFunc(delay, task)}
}

// DefaultScheduler schedules tasks using the standard library's timer facility, each task running on its own
// goroutine when it fires. This is the Scheduler used by the async runner unless Executor.WithScheduler overrides it.
var DefaultScheduler Scheduler = timerScheduler{}
