package breaker

import "time"

// SetNow lets tests drive the cooldown clock.
func (b *Breaker) SetNow(now func() time.Time) {
	b.now = now
}
