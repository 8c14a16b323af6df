package stats

import "sync/atomic"

// Counter is a monotonic diagnostic counter.
// It is safe to copy, copies share the same value.
type Counter struct {
	v *atomic.Uint64
}

func NewCounter() Counter {
	return Counter{v: &atomic.Uint64{}}
}

// Inc adds one and returns the new value.
func (c Counter) Inc() uint64 {
	return c.v.Add(1)
}

func (c Counter) Get() uint64 {
	return c.v.Load()
}
