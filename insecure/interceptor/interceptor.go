// Package interceptor wraps a genuine subsystem with a pipeline of behavior hooks. Hooks see
// every message crossing the subsystem boundary and may forward, replace, drop, delay or
// duplicate it. Messages no hook selects cross the boundary unchanged and in order.
package interceptor

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/subsystem"
)

// Interceptor is a subsystem that runs a genuine subsystem behind a hook pipeline.
type Interceptor struct {
	log   zerolog.Logger
	inner subsystem.Subsystem

	// hookLock serializes hook invocations. It is never held while a message is sent.
	hookLock sync.Mutex
	pipeline *pipeline
}

var _ subsystem.Subsystem = (*Interceptor)(nil)

// New wraps inner with the given bindings. Every binding must target the kind of inner.
// Each binding's hook is created here, so hook state belongs to this interceptor only.
func New(log zerolog.Logger, metrics module.InterceptorMetrics, inner subsystem.Subsystem, bindings ...Binding) (*Interceptor, error) {
	kind := inner.Kind()
	hooks := make([]boundHook, 0, len(bindings))
	selectors := make([]string, 0)

	for i, b := range bindings {
		if b.Kind != kind {
			return nil, fmt.Errorf("binding %d targets %s, cannot wrap %s", i, b.Kind, kind)
		}
		if b.NewHook == nil {
			return nil, fmt.Errorf("binding %d has no hook factory", i)
		}
		if len(b.Selectors) == 0 {
			return nil, fmt.Errorf("binding %d has no selectors", i)
		}
		hook := b.NewHook()
		if hook == nil {
			return nil, fmt.Errorf("hook factory of binding %d returned nil", i)
		}
		hooks = append(hooks, boundHook{selectors: b.Selectors, hook: hook})
		for _, s := range b.Selectors {
			selectors = append(selectors, s.String())
		}
	}

	i := &Interceptor{
		log:   log.With().Str("subsystem", kind.String()).Str("component", "interceptor").Logger(),
		inner: inner,
		pipeline: &pipeline{
			kind:    kind,
			hooks:   hooks,
			metrics: metrics,
		},
	}
	i.log.Info().Strs("selectors", selectors).Msg("subsystem intercepted")
	return i, nil
}

// Kind returns the kind of the wrapped subsystem.
func (i *Interceptor) Kind() relay.SubsystemKind {
	return i.inner.Kind()
}

// Run runs the wrapped subsystem until ctx is cancelled, the wrapped subsystem returns or a
// hook fails. Errors of the wrapped subsystem are returned unchanged. A hook failure stops
// the wrapped subsystem and is returned as *HookError, taking precedence over any error of
// the wrapped subsystem. Delayed emissions still pending on shutdown are abandoned.
func (i *Interceptor) Run(ctx context.Context, sctx subsystem.Context) error {
	innerCtx, cancelInner := context.WithCancel(ctx)
	defer cancelInner()

	r := &run{
		interceptor: i,
		bus:         sctx,
		inbound:     make(chan messages.Message),
		failed:      make(chan struct{}),
		innerDone:   make(chan struct{}),
		cancel:      cancelInner,
	}
	r.delays = newDelayLine(r.emit)

	innerDone := make(chan error, 1)
	go func() {
		defer close(r.innerDone)
		innerDone <- i.inner.Run(innerCtx, r)
	}()

	delaysDone := make(chan struct{})
	go func() {
		defer close(delaysDone)
		if err := r.delays.run(innerCtx); err != nil {
			r.fail(fmt.Errorf("could not emit delayed message: %w", err))
		}
	}()

	var innerErr error
	innerExited := false
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-r.failed:
			break loop
		case innerErr = <-innerDone:
			innerExited = true
			break loop
		case msg := <-sctx.Inbound():
			if err := r.ingress(innerCtx, msg); err != nil {
				r.fail(err)
			}
		}
	}

	cancelInner()
	<-delaysDone
	if abandoned := r.delays.pending(); abandoned > 0 {
		i.pipeline.metrics.DelayedEmissionsAbandoned(i.Kind().String(), abandoned)
		i.log.Info().Int("abandoned", abandoned).Msg("abandoning delayed emissions")
	}
	if !innerExited {
		innerErr = <-innerDone
	}

	failure := r.failure()
	if IsHookError(failure) {
		return failure
	}
	if innerExited && innerErr != nil {
		return innerErr
	}
	if failure != nil {
		return failure
	}
	return innerErr
}

// evaluate runs the hook pipeline under the hook lock.
func (i *Interceptor) evaluate(direction Direction, msg messages.Message) ([]output, error) {
	i.hookLock.Lock()
	defer i.hookLock.Unlock()
	return i.pipeline.evaluate(direction, msg)
}

// run is the state of one execution of an interceptor. It is the subsystem.Context
// handed to the wrapped subsystem.
type run struct {
	interceptor *Interceptor
	bus         subsystem.Context
	inbound     chan messages.Message
	delays      *delayLine
	cancel      context.CancelFunc
	// closed once the wrapped subsystem returned
	innerDone chan struct{}

	mu       sync.Mutex
	err      error
	failed   chan struct{}
	isFailed bool
}

var _ subsystem.Context = (*run)(nil)

func (r *run) Inbound() <-chan messages.Message {
	return r.inbound
}

// Send runs an egress message of the wrapped subsystem through the hooks and relays the
// resulting emissions to the bus. Errors of the bus are returned unchanged.
func (r *run) Send(ctx context.Context, msg messages.Message) error {
	outputs, err := r.interceptor.evaluate(Egress, msg)
	if err != nil {
		r.fail(err)
		return err
	}
	for _, o := range outputs {
		if o.delay > 0 {
			r.delays.schedule(o.delay, Egress, o.msg)
			continue
		}
		if err := r.bus.Send(ctx, o.msg); err != nil {
			return err
		}
	}
	return nil
}

// ingress runs a bus message through the hooks and delivers the resulting emissions to
// the wrapped subsystem.
func (r *run) ingress(ctx context.Context, msg messages.Message) error {
	outputs, err := r.interceptor.evaluate(Ingress, msg)
	if err != nil {
		return err
	}
	for _, o := range outputs {
		if o.delay > 0 {
			r.delays.schedule(o.delay, Ingress, o.msg)
			continue
		}
		if !r.deliver(ctx, o.msg) {
			// the wrapped subsystem is shutting down
			return nil
		}
	}
	return nil
}

// deliver hands msg to the wrapped subsystem. Returns false if the subsystem stopped
// before it took the message.
func (r *run) deliver(ctx context.Context, msg messages.Message) bool {
	select {
	case r.inbound <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-r.innerDone:
		return false
	}
}

// emit delivers a delayed emission.
func (r *run) emit(ctx context.Context, direction Direction, msg messages.Message) error {
	if direction == Ingress {
		r.deliver(ctx, msg)
		return nil
	}
	return r.bus.Send(ctx, msg)
}

// fail records a failure and stops the wrapped subsystem. Hook errors take precedence
// over other failures.
func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err == nil || (IsHookError(err) && !IsHookError(r.err)) {
		r.err = err
	}
	if !r.isFailed {
		r.isFailed = true
		close(r.failed)
		r.cancel()
	}
}

func (r *run) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
