package coral

import (
	"time"
)

// Reconnect paces retry attempts: After fires once the timeout has elapsed
// since the Reconnect was created, immediately if it already has.
type Reconnect struct {
	startTime time.Time
	timeout   time.Duration
}

func NewReconnect(timeout time.Duration) *Reconnect {
	return &Reconnect{
		startTime: time.Now(),
		timeout:   timeout,
	}
}

func (self *Reconnect) After() <-chan time.Time {
	remaining := self.timeout - time.Since(self.startTime)
	if remaining <= 0 {
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c
	}
	return time.After(remaining)
}
