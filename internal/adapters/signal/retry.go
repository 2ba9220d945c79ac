package signal

import "time"

// Backoff doubles the delay on every attempt, capped at Max.
type Backoff struct {
	Base     time.Duration
	Max      time.Duration
	Attempts int
}

func (b *Backoff) defaults() {
	if b.Base <= 0 {
		b.Base = 500 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 10 * time.Second
	}
	if b.Attempts <= 0 {
		b.Attempts = 8
	}
}

// Delay is the wait before the given attempt, counted from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	return min(d, b.Max)
}
