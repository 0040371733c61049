// Package dispute implements the dispute-coordinator subsystem. It participates in
// disputes by validating the disputed candidate and casting a signed vote on it.
package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/engine"
	"github.com/onflow/relay-node/model/encoding"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/logging"
)

// DefaultVoteCacheSize is the default number of cast votes remembered to avoid voting twice.
const DefaultVoteCacheSize = 4096

// voteKey identifies the subject of one vote of the local validator.
type voteKey struct {
	candidate relay.Hash
	session   relay.SessionIndex
}

type participation struct {
	key     voteKey
	request messages.ParticipateInDispute
}

// Engine is the dispute-coordinator subsystem.
type Engine struct {
	log     zerolog.Logger
	key     *relay.ValidatorKey
	session relay.SessionIndex
	now     func() time.Time

	// votes already cast by this validator
	votes *lru.Cache
	// participations waiting for a validation outcome, keyed by the correlation ID of the
	// ValidateCandidate request. Only accessed by the goroutine executing Run.
	pending  map[uuid.UUID]participation
	inflight map[voteKey]struct{}
}

var _ subsystem.Subsystem = (*Engine)(nil)

type Option func(*Engine)

// WithClock sets the clock used to timestamp votes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates the dispute coordinator of the given validator. Disputes about sessions
// after the current session are rejected.
func New(log zerolog.Logger, key *relay.ValidatorKey, session relay.SessionIndex, cacheSize int, opts ...Option) (*Engine, error) {
	votes, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create vote cache: %w", err)
	}

	e := &Engine{
		log: log.With().
			Str("engine", relay.DisputeCoordinator.String()).
			Uint32("validator_index", uint32(key.Index())).
			Logger(),
		key:      key,
		session:  session,
		now:      time.Now,
		votes:    votes,
		pending:  make(map[uuid.UUID]participation),
		inflight: make(map[voteKey]struct{}),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e, nil
}

func (e *Engine) Kind() relay.SubsystemKind {
	return relay.DisputeCoordinator
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
	case messages.ParticipateInDispute:
		return e.onParticipate(ctx, sctx, msg, payload)
	case messages.ValidationOutcome:
		return e.onValidationOutcome(ctx, sctx, msg, payload)
	default:
		return engine.NewUnexpectedMessageError(msg.Payload())
	}
}

func (e *Engine) onParticipate(ctx context.Context, sctx subsystem.Context, msg messages.Message, req messages.ParticipateInDispute) error {
	key := voteKey{candidate: req.Candidate.Hash(), session: req.Session}
	if req.Session > e.session {
		return engine.NewInvalidInputErrorf("dispute on candidate %s in future session %d (current %d)", key.candidate, req.Session, e.session)
	}
	if e.votes.Contains(key) {
		e.log.Debug().Hex("candidate", logging.Hash(key.candidate)).Msg("already voted in dispute")
		return nil
	}
	if _, ok := e.inflight[key]; ok {
		e.log.Debug().Hex("candidate", logging.Hash(key.candidate)).Msg("participation already in progress")
		return nil
	}

	validate := messages.Derive(msg, messages.ValidateCandidate{
		Requester:      relay.DisputeCoordinator,
		Candidate:      req.Candidate,
		PoV:            req.PoV,
		ValidationData: req.ValidationData,
	})
	e.pending[validate.ID()] = participation{key: key, request: req}
	e.inflight[key] = struct{}{}

	err := sctx.Send(ctx, validate)
	if err != nil {
		delete(e.pending, validate.ID())
		delete(e.inflight, key)
		return fmt.Errorf("could not request validation of disputed candidate %s: %w", key.candidate, err)
	}
	return nil
}

func (e *Engine) onValidationOutcome(ctx context.Context, sctx subsystem.Context, msg messages.Message, outcome messages.ValidationOutcome) error {
	p, ok := e.pending[msg.ID()]
	if !ok {
		return engine.NewInvalidInputErrorf("validation outcome %s without pending participation", msg.ID())
	}
	delete(e.pending, msg.ID())
	delete(e.inflight, p.key)

	if outcome.Candidate.Hash() != p.key.candidate {
		return engine.NewInvalidInputErrorf("validation outcome for %s answers dispute on %s", outcome.Candidate.Hash(), p.key.candidate)
	}

	vote := messages.DisputeVote{
		CandidateHash:  p.key.candidate,
		Session:        p.key.session,
		ValidatorIndex: e.key.Index(),
		Valid:          outcome.Valid,
		Timestamp:      uint64(e.now().UnixMilli()),
	}
	payload := messages.DisputeVoteSigningPayload(vote.CandidateHash, vote.Session, vote.ValidatorIndex, vote.Valid)
	vote.Signature = e.key.Sign(encoding.DisputeVoteTag, payload)

	err := sctx.Send(ctx, messages.Derive(msg, vote))
	if err != nil {
		return fmt.Errorf("could not distribute vote on candidate %s: %w", p.key.candidate, err)
	}
	e.votes.Add(p.key, vote)

	e.log.Info().
		Hex("candidate", logging.Hash(p.key.candidate)).
		Uint32("session", uint32(p.key.session)).
		Bool("valid", vote.Valid).
		Str("reason", outcome.Reason).
		Msg("cast dispute vote")
	return nil
}

// Vote returns the vote this validator cast on the given candidate in the given session, if remembered.
func (e *Engine) Vote(candidate relay.Hash, session relay.SessionIndex) (messages.DisputeVote, bool) {
	v, ok := e.votes.Get(voteKey{candidate: candidate, session: session})
	if !ok {
		return messages.DisputeVote{}, false
	}
	return v.(messages.DisputeVote), true
}
