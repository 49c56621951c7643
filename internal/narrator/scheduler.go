package narrator

import (
	"sync"
	"time"
)

// Scheduler runs periodic callbacks and one-shot delays. Every returns a
// cancel function; after it returns the callback is never started again.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
	After(d time.Duration) <-chan time.Time
}

type realScheduler struct{}

// RealScheduler is backed by time.Ticker and time.After.
func RealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

func (realScheduler) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
