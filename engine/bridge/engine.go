// Package bridge implements the network boundary of the node: the statement-distribution
// and dispute-distribution subsystems. A bridge verifies outbound items, drops items it
// already gossiped and hands the rest to the network.
package bridge

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/onflow/relay-node/engine"
	"github.com/onflow/relay-node/engine/common/fifoqueue"
	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/subsystem"
)

const (
	// DefaultCacheSize is the default number of gossiped items remembered for deduplication.
	DefaultCacheSize = 4096
	// DefaultQueueCapacity is the default number of items buffered for the network.
	DefaultQueueCapacity = 1024
)

// Engine is one distribution subsystem.
type Engine struct {
	log        zerolog.Logger
	kind       relay.SubsystemKind
	accepts    messages.Type
	metrics    module.BridgeMetrics
	validators relay.ValidatorSet
	gossiper   Gossiper

	seen     *lru.Cache
	queue    *fifoqueue.FifoQueue[messages.Message]
	notifier engine.Notifier
	gossiped *atomic.Uint64
}

var _ subsystem.Subsystem = (*Engine)(nil)

// New creates the bridge for the given distribution kind.
func New(
	log zerolog.Logger,
	kind relay.SubsystemKind,
	metrics module.BridgeMetrics,
	validators relay.ValidatorSet,
	gossiper Gossiper,
	cacheSize int,
	queueCapacity int,
) (*Engine, error) {
	var accepts messages.Type
	switch kind {
	case relay.StatementDistribution:
		accepts = messages.TypeBackingStatement
	case relay.DisputeDistribution:
		accepts = messages.TypeDisputeVote
	default:
		return nil, fmt.Errorf("%w: %s is not a distribution subsystem", subsystem.ErrUnsupportedKind, kind)
	}

	seen, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create dedup cache: %w", err)
	}

	channel := kind.String()
	queue, err := fifoqueue.NewFifoQueue[messages.Message](
		fifoqueue.WithCapacity(queueCapacity),
		fifoqueue.WithLengthObserver(func(l int) { metrics.OutboundQueueLength(channel, l) }),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbound queue: %w", err)
	}

	return &Engine{
		log:        log.With().Str("engine", channel).Logger(),
		kind:       kind,
		accepts:    accepts,
		metrics:    metrics,
		validators: validators,
		gossiper:   gossiper,
		seen:       seen,
		queue:      queue,
		notifier:   engine.NewNotifier(),
		gossiped:   atomic.NewUint64(0),
	}, nil
}

func (e *Engine) Kind() relay.SubsystemKind {
	return e.kind
}

// Gossiped returns the number of items handed to the network so far.
func (e *Engine) Gossiped() uint64 {
	return e.gossiped.Load()
}

// Run accepts outbound items from the bus and gossips them from a separate routine, so a
// slow network never backs up the bus. Buffered items are abandoned on shutdown.
func (e *Engine) Run(ctx context.Context, sctx subsystem.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.gossipLoop(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-sctx.Inbound():
			err := e.onOutbound(msg)
			if err != nil {
				if engine.IsInvalidInputError(err) {
					engine.LogError(e.log, err)
					continue
				}
				return err
			}
		}
	}
}

func (e *Engine) onOutbound(msg messages.Message) error {
	channel := e.kind.String()
	msgType := msg.Type().String()

	if msg.Type() != e.accepts {
		return engine.NewUnexpectedMessageError(msg.Payload())
	}

	if !e.verify(msg.Payload()) {
		e.metrics.OutboundInvalidSignature(channel, msgType)
		return engine.NewInvalidInputErrorf("invalid signature on outbound %s %s", msgType, msg.ID())
	}

	key := relay.HashBytes(encoding.DefaultEncoder.MustEncode(msg.Payload()))
	if seen, _ := e.seen.ContainsOrAdd(key, struct{}{}); seen {
		e.metrics.OutboundDuplicateDropped(channel, msgType)
		e.log.Debug().Str("message", msgType).Msg("dropping duplicate outbound item")
		return nil
	}

	if !e.queue.Push(msg) {
		e.log.Warn().Str("message", msgType).Msg("outbound queue full, dropping item")
		return nil
	}
	e.notifier.Notify()
	return nil
}

// verify checks the signature of an outbound item against the validator set.
func (e *Engine) verify(payload messages.Payload) bool {
	switch p := payload.(type) {
	case messages.BackingStatement:
		id, ok := e.validators.ByIndex(p.ValidatorIndex)
		return ok && p.Verify(id)
	case messages.DisputeVote:
		id, ok := e.validators.ByIndex(p.ValidatorIndex)
		return ok && p.Verify(id)
	default:
		return false
	}
}

func (e *Engine) gossipLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := e.queue.Len(); n > 0 {
				e.log.Debug().Int("abandoned", n).Msg("abandoning buffered outbound items")
			}
			return
		case <-e.notifier.Channel():
			for {
				msg, ok := e.queue.Pop()
				if !ok {
					break
				}
				e.gossiper.Gossip(e.kind, msg)
				e.gossiped.Inc()
				e.metrics.OutboundGossiped(e.kind.String(), msg.Type().String())
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}
