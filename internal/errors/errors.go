package errors

const (
	errChannelBroken = "rendezvous channel broken"
)

// ChannelBrokenError is used to identify failures caused by
// a rendezvous partner that is gone, i.e. the counter owner
// has stopped serving its channels.
type ChannelBrokenError struct {
}

func (e ChannelBrokenError) Error() string {
	return errChannelBroken
}
