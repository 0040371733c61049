// Package backing implements the candidate-backing subsystem. It validates candidates
// handed to it by collators and seconds the valid ones with a signed statement.
package backing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/engine"
	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/logging"
)

// Engine is the candidate-backing subsystem.
type Engine struct {
	log zerolog.Logger
	key *relay.ValidatorKey

	// candidates waiting for their validation outcome, keyed by the correlation ID of the
	// ValidateCandidate request. Only accessed by the goroutine executing Run.
	pending map[uuid.UUID]relay.CandidateReceipt
	// candidates this validator has already seconded or is validating
	seen map[relay.Hash]struct{}
}

var _ subsystem.Subsystem = (*Engine)(nil)

func New(log zerolog.Logger, key *relay.ValidatorKey) *Engine {
	return &Engine{
		log:     log.With().Str("engine", relay.CandidateBacking.String()).Uint32("validator_index", uint32(key.Index())).Logger(),
		key:     key,
		pending: make(map[uuid.UUID]relay.CandidateReceipt),
		seen:    make(map[relay.Hash]struct{}),
	}
}

func (e *Engine) Kind() relay.SubsystemKind {
	return relay.CandidateBacking
}

func (e *Engine) Run(ctx context.Context, sctx subsystem.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
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

func (e *Engine) process(ctx context.Context, sctx subsystem.Context, msg messages.Message) error {
	switch payload := msg.Payload().(type) {
	case messages.SecondCandidate:
		return e.onSecondCandidate(ctx, sctx, msg, payload)
	case messages.ValidationOutcome:
		return e.onValidationOutcome(ctx, sctx, msg, payload)
	default:
		return engine.NewUnexpectedMessageError(msg.Payload())
	}
}

func (e *Engine) onSecondCandidate(ctx context.Context, sctx subsystem.Context, msg messages.Message, req messages.SecondCandidate) error {
	candidateHash := req.Candidate.Hash()
	if _, ok := e.seen[candidateHash]; ok {
		return engine.NewInvalidInputErrorf("candidate %s was already handled", candidateHash)
	}

	validate := messages.Derive(msg, messages.ValidateCandidate{
		Requester:      relay.CandidateBacking,
		Candidate:      req.Candidate,
		PoV:            req.PoV,
		ValidationData: req.ValidationData,
	})
	e.pending[validate.ID()] = req.Candidate
	e.seen[candidateHash] = struct{}{}

	err := sctx.Send(ctx, validate)
	if err != nil {
		delete(e.pending, validate.ID())
		delete(e.seen, candidateHash)
		return fmt.Errorf("could not request validation of candidate %s: %w", candidateHash, err)
	}

	e.log.Debug().Hex("candidate", logging.Hash(candidateHash)).Msg("requested candidate validation")
	return nil
}

func (e *Engine) onValidationOutcome(ctx context.Context, sctx subsystem.Context, msg messages.Message, outcome messages.ValidationOutcome) error {
	candidate, ok := e.pending[msg.ID()]
	if !ok {
		return engine.NewInvalidInputErrorf("validation outcome %s without pending request", msg.ID())
	}
	delete(e.pending, msg.ID())

	candidateHash := candidate.Hash()
	log := e.log.With().Hex("candidate", logging.Hash(candidateHash)).Logger()

	if outcome.Candidate.Hash() != candidateHash {
		return engine.NewInvalidInputErrorf("validation outcome for %s answers request for %s", outcome.Candidate.Hash(), candidateHash)
	}
	if !outcome.Valid {
		log.Info().Str("reason", outcome.Reason).Msg("candidate is invalid, not seconding")
		return nil
	}
	if outcome.Commitments.Hash() != candidate.CommitmentsHash {
		log.Warn().Msg("commitments of valid outcome do not match candidate, not seconding")
		return nil
	}

	committed := relay.CommittedCandidateReceipt{
		Descriptor:  candidate.Descriptor,
		Commitments: outcome.Commitments,
	}
	statement := messages.BackingStatement{
		Kind:           messages.Seconded,
		Candidate:      committed,
		ValidatorIndex: e.key.Index(),
	}
	payload := messages.StatementSigningPayload(statement.Kind, candidateHash, statement.ValidatorIndex)
	statement.Signature = e.key.Sign(encoding.BackingStatementTag, payload)

	err := sctx.Send(ctx, messages.Derive(msg, statement))
	if err != nil {
		return fmt.Errorf("could not distribute statement on candidate %s: %w", candidateHash, err)
	}

	log.Info().Msg("seconded candidate")
	return nil
}
