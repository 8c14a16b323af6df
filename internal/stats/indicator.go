package stats

import (
	"sync"
)

// Indicator is a boolean with hysteresis.
// It turns on when observed value reaches thresholdHi
// and turns off when it drops to thresholdLo.
type Indicator struct {
	mx *sync.Mutex
	v  *bool

	thresholdHi int64
	thresholdLo int64
}

func NewIndicator(hi, lo int64) Indicator {
	return Indicator{
		mx:          &sync.Mutex{},
		v:           new(bool),
		thresholdHi: hi,
		thresholdLo: lo,
	}
}

// Observe feeds val to indicator and reports whether its state was changed.
func (i Indicator) Observe(val int64) bool {
	i.mx.Lock()
	defer i.mx.Unlock()

	prev := *i.v
	if *i.v {
		if val <= i.thresholdLo {
			*i.v = false
		}
	} else if val >= i.thresholdHi {
		*i.v = true
	}

	return prev != *i.v
}

func (i Indicator) Get() bool {
	i.mx.Lock()
	defer i.mx.Unlock()

	return *i.v
}
