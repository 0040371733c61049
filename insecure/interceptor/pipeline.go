package interceptor

import (
	"fmt"
	"time"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
)

// output is one message produced by the pipeline with its delay relative to now.
type output struct {
	delay time.Duration
	msg   messages.Message
}

// pipeline evaluates the hooks of one interceptor in declared order.
type pipeline struct {
	kind    relay.SubsystemKind
	hooks   []boundHook
	metrics module.InterceptorMetrics
}

// evaluate runs every hook matching the message through the pipeline and returns the
// resulting emissions in emission order. A dropped message yields no emissions.
// Must be called with the interceptor's hook lock held.
func (p *pipeline) evaluate(direction Direction, msg messages.Message) ([]output, error) {
	subsystem := p.kind.String()
	dir := direction.String()

	current := msg
	var delay time.Duration
	var duplicates []Action
	touched := false

	for _, b := range p.hooks {
		if !b.matches(direction, current.Type()) {
			continue
		}
		msgType := current.Type()
		p.metrics.HookInvoked(subsystem, dir, msgType.String())

		action, err := b.hook.Intercept(direction, current)
		if err != nil {
			return nil, NewHookError(p.kind, direction, msgType, err)
		}
		if err := action.validate(); err != nil {
			return nil, NewHookError(p.kind, direction, msgType, fmt.Errorf("%w: %v", ErrInvalidAction, err))
		}

		switch action.kind {
		case ActionForward:
		case ActionReplace:
			touched = true
			current = action.msg
			p.metrics.MessageReplaced(subsystem, dir, msgType.String())
		case ActionDrop:
			p.metrics.MessageDropped(subsystem, dir, msgType.String())
			return nil, nil
		case ActionDelay:
			touched = true
			delay += action.delay
		case ActionDuplicate:
			touched = true
			duplicates = append(duplicates, action)
		}
	}

	msgType := current.Type().String()
	if !touched {
		p.metrics.MessageForwarded(subsystem, dir, msgType)
	}
	if delay > 0 {
		p.metrics.MessageDelayed(subsystem, dir, msgType, delay)
	}

	outputs := []output{{delay: delay, msg: current}}
	for _, dup := range duplicates {
		p.metrics.MessageDuplicated(subsystem, dir, msgType, dup.copies)
		for i := 1; i <= dup.copies; i++ {
			copied := current
			if dup.variation != nil {
				copied = dup.variation(i, current)
			}
			outputs = append(outputs, output{
				delay: delay + time.Duration(i)*dup.spacing,
				msg:   copied,
			})
		}
	}
	return outputs, nil
}
