package discovery

import "time"

// DefaultSettleDelay is the pause between recording a decision and advancing the queue.
const DefaultSettleDelay = 600 * time.Millisecond

// Scheduler runs f once after d without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules callbacks on the runtime timer.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
