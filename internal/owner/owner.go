// Package owner implements the counter actor.
//
// The counter value lives in a single goroutine (Run) and is reachable
// only through two unbuffered channels: one accepts increment signals,
// the other hands the current value to whoever is ready to receive it.
// Callers use Handle to perform these rendezvous.
package owner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	localErrs "github.com/adwski/counterd/internal/errors"
	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/stats"
)

var (
	ErrOwnerGone = errors.Join(errors.New("counter owner is gone"), localErrs.ChannelBrokenError{})
)

type (
	Owner struct {
		logger logger.Logger

		up   chan struct{}
		get  chan uint64
		done chan struct{}

		stats Stats

		// count is accessed only by Run goroutine.
		count uint64

		started atomic.Bool
	}

	Config struct {
		Logger logger.Logger
	}

	// Stats holds diagnostic counters of handled events.
	Stats struct {
		increments stats.Counter
		reads      stats.Counter
	}
)

func New(cfg Config) *Owner {
	return &Owner{
		logger: cfg.Logger,
		up:     make(chan struct{}),
		get:    make(chan uint64),
		done:   make(chan struct{}),
		stats: Stats{
			increments: stats.NewCounter(),
			reads:      stats.NewCounter(),
		},
	}
}

// Handle returns caller side of owner's channels.
func (o *Owner) Handle() *Handle {
	return &Handle{
		up:   o.up,
		get:  o.get,
		done: o.done,
	}
}

// Done is closed after Run returns.
func (o *Owner) Done() <-chan struct{} {
	return o.done
}

func (o *Owner) Stats() Stats {
	return o.stats
}

// Run serves increment and read rendezvous until ctx is canceled.
// When both are ready, select picks one of them uniformly at random,
// so neither kind of operation can starve the other.
func (o *Owner) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if !o.started.CompareAndSwap(false, true) {
		o.logger.Error("owner is already running")
		return
	}
	defer close(o.done)

	o.logger.Debug("owner started")

	for {
		select {
		case <-ctx.Done():
			o.logger.Debug("owner stopped", "count", o.count)
			return
		case <-o.up:
			o.count++
			o.stats.increments.Inc()
			o.logger.Debug("count up", "count", o.count)
		case o.get <- o.count:
			o.stats.reads.Inc()
			o.logger.Debug("get count", "count", o.count)
		}
	}
}

// Increments returns amount of accepted increment signals.
func (s Stats) Increments() uint64 {
	return s.increments.Get()
}

// Reads returns amount of values handed off to readers.
func (s Stats) Reads() uint64 {
	return s.reads.Get()
}
