package interceptor

import (
	"errors"
	"fmt"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// ErrInvalidAction is wrapped by a HookError when a hook returned an action that can not be carried out.
var ErrInvalidAction = errors.New("invalid hook action")

// HookError reports that a hook failed. It stops the intercepted subsystem.
type HookError struct {
	Kind      relay.SubsystemKind
	Direction Direction
	Type      messages.Type
	Err       error
}

func NewHookError(kind relay.SubsystemKind, direction Direction, t messages.Type, err error) *HookError {
	return &HookError{Kind: kind, Direction: direction, Type: t, Err: err}
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook on %s failed for %s %s: %v", e.Kind, e.Direction, e.Type, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsHookError returns whether the given error is caused by a failing hook.
func IsHookError(err error) bool {
	var e *HookError
	return errors.As(err, &e)
}
