package unittest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
)

// SubsystemContext is a subsystem.Context that stands in for the overseer in tests.
// Tests deliver messages with Deliver and observe everything the subsystem sends
// on Outbound, with the origin stamped as the overseer would.
type SubsystemContext struct {
	kind     relay.SubsystemKind
	inbound  chan messages.Message
	outbound chan messages.Message
}

var _ subsystem.Context = (*SubsystemContext)(nil)

func NewSubsystemContext(kind relay.SubsystemKind, capacity int) *SubsystemContext {
	return &SubsystemContext{
		kind:     kind,
		inbound:  make(chan messages.Message, capacity),
		outbound: make(chan messages.Message, capacity),
	}
}

func (c *SubsystemContext) Inbound() <-chan messages.Message {
	return c.inbound
}

func (c *SubsystemContext) Send(ctx context.Context, msg messages.Message) error {
	select {
	case c.outbound <- msg.WithOrigin(c.kind):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver hands msg to the subsystem as if routed by the overseer.
func (c *SubsystemContext) Deliver(t testing.TB, msg messages.Message) {
	select {
	case c.inbound <- msg:
	case <-time.After(time.Second):
		require.Fail(t, "could not deliver message on time", "message: %s", msg)
	}
}

// TryDeliver is Deliver for callers without a testing.TB. It reports whether msg was
// accepted within timeout.
func (c *SubsystemContext) TryDeliver(msg messages.Message, timeout time.Duration) bool {
	select {
	case c.inbound <- msg:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *SubsystemContext) Outbound() <-chan messages.Message {
	return c.outbound
}

// RequireSent waits for the next message sent by the subsystem.
func (c *SubsystemContext) RequireSent(t testing.TB, timeout time.Duration) messages.Message {
	select {
	case msg := <-c.outbound:
		return msg
	case <-time.After(timeout):
		require.Fail(t, "subsystem did not send a message on time")
	}
	return messages.Message{}
}

// RequireNothingSent requires that the subsystem sends nothing within the given duration.
func (c *SubsystemContext) RequireNothingSent(t testing.TB, within time.Duration) {
	select {
	case msg := <-c.outbound:
		require.Fail(t, "unexpected message sent", "message: %s", msg)
	case <-time.After(within):
	}
}
