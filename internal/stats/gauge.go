package stats

import "sync/atomic"

type Gauge struct {
	v *atomic.Int64
}

func NewGauge() Gauge {
	return Gauge{v: &atomic.Int64{}}
}

// Inc returns the value after increment.
func (g Gauge) Inc() int64 {
	return g.v.Add(1)
}

// Dec returns the value after decrement.
func (g Gauge) Dec() int64 {
	return g.v.Add(-1)
}

func (g Gauge) Get() int64 {
	return g.v.Load()
}
