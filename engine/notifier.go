package engine

// Notifier is a concurrency primitive for informing a worker routine about the
// arrival of new work unit(s). Multiple notifications before the worker consumes
// one collapse into a single pending notification.
//
// Notifier is safe to pass by value.
type Notifier struct {
	notifier chan struct{}
}

// NewNotifier instantiates a Notifier. Notifiers essentially behave like
// channels in that they can be passed by value and still allow concurrent
// updates of the same internal state.
func NewNotifier() Notifier {
	// the 1 message buffer is important to avoid the possibility of missing
	// notifications (e.g. when the worker is busy while Notify is called)
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification. It never blocks.
func (n Notifier) Notify() {
	select {
	case n.notifier <- struct{}{}:
	default:
		// a notification is already pending
	}
}

// Channel returns a channel for receiving notifications.
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
