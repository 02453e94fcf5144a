package service

import (
	"sync"
	"time"
)

// Clock выдаёт строго возрастающие отметки времени с точностью до микросекунды (точность
// timestamptz), поэтому updated_at растёт даже при двух изменениях в одну микросекунду.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
