package session

import (
	"sync"
	"time"
)

// countdown ticks once per interval, invoking tick with the seconds left
// and expire exactly once when they reach zero. Stop halts it without
// firing expiry; a stopped or expired countdown never calls back again.
type countdown struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func startCountdown(seconds int, interval time.Duration, tick func(remaining int), expire func()) *countdown {
	c := &countdown{stop: make(chan struct{})}
	go c.run(seconds, interval, tick, expire)
	return c
}

func (c *countdown) run(remaining int, interval time.Duration, tick func(int), expire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			remaining--
			tick(remaining)
			if remaining <= 0 {
				expire()
				return
			}
		}
	}
}

// Stop halts the countdown. Safe to call more than once and after expiry.
func (c *countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
