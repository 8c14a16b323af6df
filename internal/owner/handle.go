package owner

import "context"

// Handle performs rendezvous with the Owner.
// It is safe for concurrent use.
type Handle struct {
	up   chan<- struct{}
	get  <-chan uint64
	done <-chan struct{}
}

// Increment blocks until owner accepts increment signal.
// If ctx is done first, no increment is applied.
func (h *Handle) Increment(ctx context.Context) error {
	select {
	case h.up <- struct{}{}:
		return nil
	case <-h.done:
		return ErrOwnerGone
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller checks context errors directly
	}
}

// Value blocks until owner hands off current counter value.
func (h *Handle) Value(ctx context.Context) (uint64, error) {
	select {
	case v := <-h.get:
		return v, nil
	case <-h.done:
		return 0, ErrOwnerGone
	case <-ctx.Done():
		return 0, ctx.Err() //nolint:wrapcheck // caller checks context errors directly
	}
}
