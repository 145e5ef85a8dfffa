// Package monitor keeps running totals for generation runs so long-lived
// commands can report how they went.
package monitor

import (
	"sync/atomic"
	"time"
)

const maxNanos = int64(^uint64(0) >> 1)

// Counter is a thread-safe counter metric
type Counter struct {
	value int64
	name  string
}

// NewCounter creates a new counter metric
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter
func (c *Counter) Add(value int64) {
	atomic.AddInt64(&c.value, value)
}

// Get returns the current counter value
func (c *Counter) Get() int64 {
	return atomic.LoadInt64(&c.value)
}

// Name returns the counter name
func (c *Counter) Name() string {
	return c.name
}

// Timer tracks how long runs take
type Timer struct {
	count     int64
	totalTime int64
	minTime   int64
	maxTime   int64
	name      string
}

// NewTimer creates a new timer metric
func NewTimer(name string) *Timer {
	return &Timer{name: name, minTime: maxNanos}
}

// Record records a duration measurement
func (t *Timer) Record(d time.Duration) {
	nanos := d.Nanoseconds()
	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTime, nanos)

	for {
		current := atomic.LoadInt64(&t.minTime)
		if nanos >= current || atomic.CompareAndSwapInt64(&t.minTime, current, nanos) {
			break
		}
	}
	for {
		current := atomic.LoadInt64(&t.maxTime)
		if nanos <= current || atomic.CompareAndSwapInt64(&t.maxTime, current, nanos) {
			break
		}
	}
}

// Count returns the number of recorded measurements
func (t *Timer) Count() int64 {
	return atomic.LoadInt64(&t.count)
}

// MinTime returns the shortest recorded duration
func (t *Timer) MinTime() time.Duration {
	v := atomic.LoadInt64(&t.minTime)
	if v == maxNanos {
		return 0
	}
	return time.Duration(v)
}

// MaxTime returns the longest recorded duration
func (t *Timer) MaxTime() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.maxTime))
}

// AvgTime returns the mean recorded duration
func (t *Timer) AvgTime() time.Duration {
	count := atomic.LoadInt64(&t.count)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&t.totalTime) / count)
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}
