package subsystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// ErrUnsupportedKind is returned by a Factory asked for a kind it does not build.
var ErrUnsupportedKind = errors.New("unsupported subsystem kind")

// Subsystem is one unit of node logic hosted on the overseer bus.
type Subsystem interface {
	// Kind is the identity under which the subsystem receives messages.
	Kind() relay.SubsystemKind

	// Run processes sctx.Inbound() in arrival order until ctx is cancelled.
	// It returns nil on a clean stop. A non-nil error is an unrecoverable failure
	// of the subsystem, and halts the node.
	Run(ctx context.Context, sctx Context) error
}

// Context is the capability a running subsystem holds on the bus.
type Context interface {
	// Inbound yields the messages routed to this subsystem, in arrival order.
	Inbound() <-chan messages.Message

	// Send routes msg to msg.Destination(), blocking while the destination is full.
	// Returns the context error if ctx is done before the message could be delivered.
	Send(ctx context.Context, msg messages.Message) error
}

// Factory creates the genuine subsystems of a node.
type Factory interface {
	// Kinds lists the subsystem kinds included in this build.
	Kinds() []relay.SubsystemKind

	// Create returns a ready-to-run instance of the given kind.
	// Returns ErrUnsupportedKind for kinds not listed by Kinds.
	Create(kind relay.SubsystemKind) (Subsystem, error)
}

// FailureError reports that a subsystem stopped with an error. The original error stays
// reachable with errors.Is and errors.As.
type FailureError struct {
	Kind relay.SubsystemKind
	Err  error
}

func NewFailureError(kind relay.SubsystemKind, err error) *FailureError {
	return &FailureError{Kind: kind, Err: err}
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("subsystem %s failed: %v", e.Kind, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// IsFailureError returns whether the given error is a subsystem failure.
func IsFailureError(err error) bool {
	var e *FailureError
	return errors.As(err, &e)
}
