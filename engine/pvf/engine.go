// Package pvf implements the pvf-execution subsystem, which runs parachain validation
// functions on a bounded pool of workers.
package pvf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/engine"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/logging"
)

// DefaultWorkers is the default number of concurrent executions.
const DefaultWorkers = 4

// Engine is the pvf-execution subsystem.
type Engine struct {
	log     zerolog.Logger
	metrics module.PvfMetrics
	workers int
}

var _ subsystem.Subsystem = (*Engine)(nil)

func New(log zerolog.Logger, metrics module.PvfMetrics, workers int) (*Engine, error) {
	if workers < 1 {
		return nil, fmt.Errorf("number of pvf workers must be positive, got %d", workers)
	}
	return &Engine{
		log:     log.With().Str("engine", relay.PvfExecution.String()).Logger(),
		metrics: metrics,
		workers: workers,
	}, nil
}

func (e *Engine) Kind() relay.SubsystemKind {
	return relay.PvfExecution
}

// Run executes every inbound ExecutePvf request on the worker pool and replies with the
// result under the request's correlation ID. Results of concurrent executions may be
// sent in any order. Queued executions are abandoned on shutdown.
func (e *Engine) Run(ctx context.Context, sctx subsystem.Context) error {
	pool := workerpool.New(e.workers)
	defer pool.Stop()

	fatal := make(chan error, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-fatal:
			return err
		case msg := <-sctx.Inbound():
			err := e.process(ctx, sctx, pool, fatal, msg)
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

func (e *Engine) process(
	ctx context.Context,
	sctx subsystem.Context,
	pool *workerpool.WorkerPool,
	fatal chan<- error,
	msg messages.Message,
) error {
	req, ok := msg.Payload().(messages.ExecutePvf)
	if !ok {
		return engine.NewUnexpectedMessageError(msg.Payload())
	}

	pool.Submit(func() {
		start := time.Now()
		result := Execute(req.Candidate, req.PoV, req.ValidationData)
		e.metrics.PvfExecuted(time.Since(start), result.Valid)

		e.log.Debug().
			Hex("candidate", logging.Hash(result.CandidateHash)).
			Bool("valid", result.Valid).
			Str("reason", result.Reason).
			Msg("validation function executed")

		err := sctx.Send(ctx, messages.Reply(msg, result))
		if err != nil && !errors.Is(err, ctx.Err()) {
			select {
			case fatal <- fmt.Errorf("could not send execution result: %w", err):
			default:
			}
		}
	})
	return nil
}
