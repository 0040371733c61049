// Package validation implements the candidate-validation subsystem. It checks a candidate
// against its validation inputs, has pvf-execution run the candidate's validation function
// and answers the requester with a verdict.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/engine"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/logging"
)

// DefaultExecutionTimeout is the default time candidate-validation waits for an execution result.
const DefaultExecutionTimeout = 2 * time.Second

// Reasons reported with invalid verdicts.
const (
	ReasonValidationDataHashMismatch = "persisted validation data hash mismatch"
	ReasonPoVHashMismatch            = "PoV hash mismatch"
	ReasonExecutionTimeout           = "execution timeout"
)

// pendingValidation is a validation waiting for the result of its execution.
type pendingValidation struct {
	request  messages.Message
	deadline time.Time
}

// Engine is the candidate-validation subsystem.
type Engine struct {
	log     zerolog.Logger
	metrics module.PvfMetrics
	timeout time.Duration

	// pending validations keyed by the correlation ID of their ExecutePvf request.
	// Only accessed by the goroutine executing Run.
	pending map[uuid.UUID]*pendingValidation
}

var _ subsystem.Subsystem = (*Engine)(nil)

func New(log zerolog.Logger, metrics module.PvfMetrics, timeout time.Duration) (*Engine, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("execution timeout must be positive, got %s", timeout)
	}
	return &Engine{
		log:     log.With().Str("engine", relay.CandidateValidation.String()).Logger(),
		metrics: metrics,
		timeout: timeout,
		pending: make(map[uuid.UUID]*pendingValidation),
	}, nil
}

func (e *Engine) Kind() relay.SubsystemKind {
	return relay.CandidateValidation
}

func (e *Engine) Run(ctx context.Context, sctx subsystem.Context) error {
	ticker := time.NewTicker(sweepInterval(e.timeout))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(e.pending) > 0 {
				e.log.Debug().Int("pending", len(e.pending)).Msg("abandoning pending validations")
			}
			return nil
		case now := <-ticker.C:
			err := e.expire(ctx, sctx, now)
			if err != nil {
				return fmt.Errorf("could not expire pending validations: %w", err)
			}
		case msg := <-sctx.Inbound():
			err := e.process(ctx, sctx, msg)
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

// sweepInterval is the resolution at which timed out executions are detected.
func sweepInterval(timeout time.Duration) time.Duration {
	interval := timeout / 10
	if interval < time.Millisecond {
		return time.Millisecond
	}
	if interval > 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	return interval
}

func (e *Engine) process(ctx context.Context, sctx subsystem.Context, msg messages.Message) error {
	switch payload := msg.Payload().(type) {
	case messages.ValidateCandidate:
		return e.onValidateCandidate(ctx, sctx, msg, payload)
	case messages.PvfExecutionResult:
		return e.onExecutionResult(ctx, sctx, msg, payload)
	default:
		return engine.NewUnexpectedMessageError(msg.Payload())
	}
}

func (e *Engine) onValidateCandidate(ctx context.Context, sctx subsystem.Context, msg messages.Message, req messages.ValidateCandidate) error {
	log := e.log.With().
		Hex("candidate", logging.CandidateHash(req.Candidate)).
		Str("requester", req.Requester.String()).
		Logger()

	descriptor := req.Candidate.Descriptor
	if req.ValidationData.Hash() != descriptor.PersistedValidationDataHash {
		log.Debug().Msg(ReasonValidationDataHashMismatch)
		return e.answer(ctx, sctx, msg, req, invalid(ReasonValidationDataHashMismatch))
	}
	if req.PoV.Hash() != descriptor.PoVHash {
		log.Debug().Msg(ReasonPoVHashMismatch)
		return e.answer(ctx, sctx, msg, req, invalid(ReasonPoVHashMismatch))
	}

	exec := messages.Derive(msg, messages.ExecutePvf{
		Candidate:      req.Candidate,
		PoV:            req.PoV,
		ValidationData: req.ValidationData,
	})
	if _, ok := e.pending[exec.ID()]; ok {
		return engine.NewInvalidInputErrorf("validation %s is already in progress", msg.ID())
	}
	e.pending[exec.ID()] = &pendingValidation{
		request:  msg,
		deadline: time.Now().Add(e.timeout),
	}

	err := sctx.Send(ctx, exec)
	if err != nil {
		delete(e.pending, exec.ID())
		return fmt.Errorf("could not request execution of candidate %s: %w", req.Candidate.Hash(), err)
	}
	log.Debug().Msg("requested validation function execution")
	return nil
}

func (e *Engine) onExecutionResult(ctx context.Context, sctx subsystem.Context, msg messages.Message, result messages.PvfExecutionResult) error {
	p, ok := e.pending[msg.ID()]
	if !ok {
		// the validation already timed out
		e.log.Debug().
			Hex("candidate", logging.Hash(result.CandidateHash)).
			Msg("dropping execution result without pending validation")
		return nil
	}
	delete(e.pending, msg.ID())

	req := p.request.Payload().(messages.ValidateCandidate)
	if result.CandidateHash != req.Candidate.Hash() {
		return e.answer(ctx, sctx, p.request, req, invalid("execution result for different candidate"))
	}
	if !result.Valid {
		return e.answer(ctx, sctx, p.request, req, invalid(result.Reason))
	}
	return e.answer(ctx, sctx, p.request, req, messages.ValidationOutcome{
		Commitments: result.Commitments,
		Valid:       true,
	})
}

// expire answers every validation whose execution did not complete before its deadline.
func (e *Engine) expire(ctx context.Context, sctx subsystem.Context, now time.Time) error {
	for id, p := range e.pending {
		if now.Before(p.deadline) {
			continue
		}
		delete(e.pending, id)
		e.metrics.ValidationTimedOut()

		req := p.request.Payload().(messages.ValidateCandidate)
		e.log.Info().
			Hex("candidate", logging.CandidateHash(req.Candidate)).
			Dur("timeout", e.timeout).
			Msg("validation function execution timed out")

		err := e.answer(ctx, sctx, p.request, req, invalid(ReasonExecutionTimeout))
		if err != nil {
			return err
		}
	}
	return nil
}

// answer sends the verdict to the requester under the request's correlation ID.
func (e *Engine) answer(ctx context.Context, sctx subsystem.Context, request messages.Message, req messages.ValidateCandidate, outcome messages.ValidationOutcome) error {
	outcome.Requester = req.Requester
	outcome.Candidate = req.Candidate
	err := sctx.Send(ctx, messages.Reply(request, outcome))
	if err != nil {
		return fmt.Errorf("could not answer validation of candidate %s: %w", req.Candidate.Hash(), err)
	}
	return nil
}

func invalid(reason string) messages.ValidationOutcome {
	return messages.ValidationOutcome{Valid: false, Reason: reason}
}
