package session

import (
	"context"
	"time"
)

// Countdown is a read-only projection of the time left on a lockout.
// It has no effect on the session; unlocking happens server-side.
type Countdown struct {
	until time.Time
	now   func() time.Time
}

func NewCountdown(until time.Time) *Countdown {
	return &Countdown{until: until, now: time.Now}
}

// Remaining is one countdown reading.
type Remaining struct {
	Minutes int
	Seconds int
	Expired bool
}

// Remaining recomputes the time left from the wall clock.
func (c *Countdown) Remaining() Remaining {
	left := c.until.Sub(c.now())
	if left <= 0 {
		return Remaining{Expired: true}
	}
	total := int(left.Round(time.Second).Seconds())
	return Remaining{
		Minutes: total / 60,
		Seconds: total % 60,
	}
}

// Watch emits a reading every second until the countdown expires or the
// context is done, then closes the channel. The expired reading is sent
// before closing.
func (c *Countdown) Watch(ctx context.Context) <-chan Remaining {
	out := make(chan Remaining, 1)
	out <- c.Remaining()

	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r := c.Remaining()
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
				if r.Expired {
					return
				}
			}
		}
	}()

	return out
}
