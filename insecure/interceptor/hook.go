package interceptor

import (
	"fmt"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
)

// Direction is the side of the intercepted subsystem a message crosses.
type Direction uint8

const (
	// Ingress is traffic from the bus into the intercepted subsystem.
	Ingress Direction = iota + 1
	// Egress is traffic sent by the intercepted subsystem onto the bus.
	Egress
)

func (d Direction) String() string {
	switch d {
	case Ingress:
		return "ingress"
	case Egress:
		return "egress"
	default:
		return fmt.Sprintf("direction-%d", uint8(d))
	}
}

// Hook decides what happens to a message crossing an intercepted subsystem.
// Hooks of one interceptor are invoked one at a time, so a hook may keep plain state.
// A hook must not block.
type Hook interface {
	Intercept(direction Direction, msg messages.Message) (Action, error)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(direction Direction, msg messages.Message) (Action, error)

func (f HookFunc) Intercept(direction Direction, msg messages.Message) (Action, error) {
	return f(direction, msg)
}

// HookFactory creates the hook of one interceptor. Every interceptor calls the factory
// once, so hook state is never shared between intercepted subsystems.
type HookFactory func() Hook

// Selector matches messages of one type crossing in one direction.
type Selector struct {
	Direction Direction
	Type      messages.Type
}

func (s Selector) Matches(direction Direction, t messages.Type) bool {
	return s.Direction == direction && s.Type == t
}

func (s Selector) String() string {
	return fmt.Sprintf("%s/%s", s.Direction, s.Type)
}

// Binding attaches a hook to the messages matched by its selectors on subsystems of one kind.
type Binding struct {
	Kind      relay.SubsystemKind
	Selectors []Selector
	NewHook   HookFactory
}

// boundHook is an instantiated binding.
type boundHook struct {
	selectors []Selector
	hook      Hook
}

func (b boundHook) matches(direction Direction, t messages.Type) bool {
	for _, s := range b.selectors {
		if s.Matches(direction, t) {
			return true
		}
	}
	return false
}
