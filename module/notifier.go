package module

// Notifier wakes up a worker routine when new work has been queued. It behaves like a
// gate with memory: Notify opens the gate (a no-op when it is already open) and a single
// receive from Channel passes through and closes it again. Notifiers can be passed by
// value and still share the same internal state.
type Notifier struct {
	notifier chan struct{} // buffered channel with capacity 1
}

// NewNotifier instantiates a Notifier.
func NewNotifier() Notifier {
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification without blocking. If a notification is already pending
// the new one is dropped.
func (n Notifier) Notify() {
	select {
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns a channel for receiving notifications
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
