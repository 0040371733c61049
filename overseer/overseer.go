package overseer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/module/component"
	"github.com/onflow/relay-node/module/irrecoverable"
	"github.com/onflow/relay-node/subsystem"
)

// DefaultChannelCapacity is the default size of each subsystem's inbound channel.
const DefaultChannelCapacity = 1024

var (
	// ErrUnknownDestination is returned when a message is sent to a subsystem kind that is
	// not registered with the overseer.
	ErrUnknownDestination = errors.New("unknown destination subsystem")

	// ErrDuplicateSubsystem is returned when two subsystems of the same kind are registered.
	ErrDuplicateSubsystem = errors.New("duplicate subsystem")
)

// handle is the overseer's side of one registered subsystem.
type handle struct {
	subsystem subsystem.Subsystem
	inbound   chan messages.Message
}

// Overseer is the message bus of the node. It owns one bounded inbound channel per
// subsystem, routes every message to the channel of its destination and supervises
// the subsystems: the first subsystem to fail halts all others.
type Overseer struct {
	component.Component

	log     zerolog.Logger
	metrics module.OverseerMetrics
	handles map[relay.SubsystemKind]*handle
	kinds   []relay.SubsystemKind
}

// New creates an overseer hosting the given subsystems. The set of subsystems is fixed
// for the lifetime of the overseer.
//
// Expected errors during normal operations:
//   - ErrDuplicateSubsystem if two subsystems share a kind
func New(
	log zerolog.Logger,
	metrics module.OverseerMetrics,
	capacity int,
	subsystems ...subsystem.Subsystem,
) (*Overseer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("channel capacity must be positive, got %d", capacity)
	}

	o := &Overseer{
		log:     log.With().Str("component", "overseer").Logger(),
		metrics: metrics,
		handles: make(map[relay.SubsystemKind]*handle, len(subsystems)),
	}

	builder := component.NewComponentManagerBuilder()
	for _, s := range subsystems {
		kind := s.Kind()
		if kind == relay.External {
			return nil, fmt.Errorf("subsystem may not claim the %s kind", relay.External)
		}
		if _, ok := o.handles[kind]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSubsystem, kind)
		}
		h := &handle{
			subsystem: s,
			inbound:   make(chan messages.Message, capacity),
		}
		o.handles[kind] = h
		o.kinds = append(o.kinds, kind)
		builder.AddWorker(o.runWorker(h))
	}
	o.Component = builder.Build()

	return o, nil
}

// Kinds returns the kinds of all hosted subsystems, in registration order.
func (o *Overseer) Kinds() []relay.SubsystemKind {
	kinds := make([]relay.SubsystemKind, len(o.kinds))
	copy(kinds, o.kinds)
	return kinds
}

// Send delivers a message that enters the node from outside, stamping it with the
// External origin. It blocks while the destination's channel is full.
//
// Expected errors during normal operations:
//   - ErrUnknownDestination if no subsystem handles the message's destination
//   - the context error if ctx is done before the message was delivered
func (o *Overseer) Send(ctx context.Context, msg messages.Message) error {
	return o.route(ctx, relay.External, msg)
}

func (o *Overseer) route(ctx context.Context, origin relay.SubsystemKind, msg messages.Message) error {
	destination := msg.Destination()
	h, ok := o.handles[destination]
	if !ok {
		return fmt.Errorf("%w: %s (message %s from %s)", ErrUnknownDestination, destination, msg.Type(), origin)
	}

	select {
	case h.inbound <- msg.WithOrigin(origin):
	case <-ctx.Done():
		return ctx.Err()
	}

	o.metrics.MessageRouted(origin.String(), destination.String(), msg.Type().String())
	o.metrics.InboundQueueLength(destination.String(), len(h.inbound))
	return nil
}

// runWorker returns the component worker that runs one subsystem for the lifetime
// of the overseer.
func (o *Overseer) runWorker(h *handle) component.ComponentWorker {
	kind := h.subsystem.Kind()
	log := o.log.With().Str("subsystem", kind.String()).Logger()

	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		log.Debug().Msg("subsystem started")

		err := h.subsystem.Run(ctx, &busContext{overseer: o, kind: kind, inbound: h.inbound})
		if err != nil && !(ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			o.metrics.SubsystemFailed(kind.String())
			log.Error().Err(err).Msg("subsystem failed, halting node")
			ctx.Throw(subsystem.NewFailureError(kind, err))
		}

		if ctx.Err() == nil {
			log.Warn().Msg("subsystem exited prematurely")
			return
		}
		log.Debug().Msg("subsystem stopped")
	}
}

// busContext is the subsystem.Context handed to one running subsystem.
type busContext struct {
	overseer *Overseer
	kind     relay.SubsystemKind
	inbound  <-chan messages.Message
}

var _ subsystem.Context = (*busContext)(nil)

func (c *busContext) Inbound() <-chan messages.Message {
	return c.inbound
}

func (c *busContext) Send(ctx context.Context, msg messages.Message) error {
	return c.overseer.route(ctx, c.kind, msg)
}
