package backing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/engine/backing"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/utils/unittest"
)

func runEngine(t *testing.T, e *backing.Engine) (*unittest.SubsystemContext, func()) {
	sctx := unittest.NewSubsystemContext(relay.CandidateBacking, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, sctx) }()

	return sctx, func() {
		cancel()
		unittest.RequireReturnsBefore(t, func() {
			assert.NoError(t, <-done)
		}, time.Second, "engine did not stop")
	}
}

// TestSecondsValidCandidate verifies that a valid outcome yields a Seconded statement with a
// signature that verifies against the validator key.
func TestSecondsValidCandidate(t *testing.T) {
	key := unittest.ValidatorKeyFixture(3)
	sctx, stop := runEngine(t, backing.New(unittest.Logger(), key))
	defer stop()

	committed, pov, data := unittest.CommittedCandidateFixture()
	second := messages.New(messages.SecondCandidate{Candidate: committed.ToPlain(), PoV: pov, ValidationData: data})
	sctx.Deliver(t, second)

	validate := sctx.RequireSent(t, time.Second)
	require.Equal(t, messages.TypeValidateCandidate, validate.Type())
	req := validate.Payload().(messages.ValidateCandidate)
	assert.Equal(t, relay.CandidateBacking, req.Requester)

	sctx.Deliver(t, messages.Reply(validate, messages.ValidationOutcome{
		Requester:   relay.CandidateBacking,
		Candidate:   req.Candidate,
		Commitments: committed.Commitments,
		Valid:       true,
	}))

	msg := sctx.RequireSent(t, time.Second)
	require.Equal(t, messages.TypeBackingStatement, msg.Type())
	assert.Equal(t, relay.StatementDistribution, msg.Destination())
	statement := msg.Payload().(messages.BackingStatement)
	assert.Equal(t, messages.Seconded, statement.Kind)
	assert.Equal(t, key.Index(), statement.ValidatorIndex)
	assert.Equal(t, committed, statement.Candidate)
	assert.True(t, statement.Verify(key.PublicKey()))
}

func TestIgnoresInvalidCandidate(t *testing.T) {
	sctx, stop := runEngine(t, backing.New(unittest.Logger(), unittest.ValidatorKeyFixture(0)))
	defer stop()

	second := unittest.SecondCandidateFixture()
	sctx.Deliver(t, messages.New(second))
	validate := sctx.RequireSent(t, time.Second)

	sctx.Deliver(t, messages.Reply(validate, messages.ValidationOutcome{
		Requester: relay.CandidateBacking,
		Candidate: second.Candidate,
		Reason:    "commitments hash mismatch",
	}))
	sctx.RequireNothingSent(t, 100*time.Millisecond)
}

// TestRejectsMismatchedCommitments verifies that a valid outcome is not signed when its
// commitments do not match the candidate receipt.
func TestRejectsMismatchedCommitments(t *testing.T) {
	sctx, stop := runEngine(t, backing.New(unittest.Logger(), unittest.ValidatorKeyFixture(0)))
	defer stop()

	second := unittest.SecondCandidateFixture()
	sctx.Deliver(t, messages.New(second))
	validate := sctx.RequireSent(t, time.Second)

	other, _, _ := unittest.CommittedCandidateFixture()
	sctx.Deliver(t, messages.Reply(validate, messages.ValidationOutcome{
		Requester:   relay.CandidateBacking,
		Candidate:   second.Candidate,
		Commitments: other.Commitments,
		Valid:       true,
	}))
	sctx.RequireNothingSent(t, 100*time.Millisecond)
}

func TestSecondsCandidateOnce(t *testing.T) {
	sctx, stop := runEngine(t, backing.New(unittest.Logger(), unittest.ValidatorKeyFixture(0)))
	defer stop()

	second := unittest.SecondCandidateFixture()
	sctx.Deliver(t, messages.New(second))
	sctx.RequireSent(t, time.Second)

	sctx.Deliver(t, messages.New(second))
	sctx.RequireNothingSent(t, 100*time.Millisecond)
}
