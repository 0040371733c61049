package messages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/utils/unittest"
)

// TestEncode_Canonical verifies that equal messages encode to equal bytes and that a
// change in any payload field changes the encoding.
func TestEncode_Canonical(t *testing.T) {
	candidate, pov, data := unittest.CandidateFixture()
	msg := messages.New(messages.ValidateCandidate{
		Requester:      relay.CandidateBacking,
		Candidate:      candidate,
		PoV:            pov,
		ValidationData: data,
	}).WithOrigin(relay.CandidateBacking)

	first, err := messages.Encode(msg)
	require.NoError(t, err)
	second, err := messages.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	changed := msg.Payload().(messages.ValidateCandidate)
	changed.Requester = relay.DisputeCoordinator
	third, err := messages.Encode(msg.WithPayload(changed))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

// TestDecode_RoundTrip verifies that decoding restores ID, origin and payload.
func TestDecode_RoundTrip(t *testing.T) {
	vote := unittest.DisputeVoteFixture()
	msg := messages.New(vote).WithOrigin(relay.DisputeCoordinator)

	decoded, err := messages.Decode(messages.MustEncode(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.ID(), decoded.ID())
	assert.Equal(t, msg.Origin(), decoded.Origin())
	assert.Equal(t, messages.TypeDisputeVote, decoded.Type())
	assert.True(t, vote.SameContent(decoded.Payload().(messages.DisputeVote)))
	assert.Equal(t, vote.Timestamp, decoded.Payload().(messages.DisputeVote).Timestamp)
}

func TestEncode_MissingPayload(t *testing.T) {
	_, err := messages.Encode(messages.Message{})
	require.Error(t, err)
}

// TestDerive_Deterministic verifies that derived correlation IDs depend only on the
// parent ID and the payload type.
func TestDerive_Deterministic(t *testing.T) {
	parent := messages.New(unittest.SecondCandidateFixture())
	a := messages.Derive(parent, messages.ValidateCandidate{})
	b := messages.Derive(parent, messages.ValidateCandidate{Requester: relay.CandidateBacking})
	c := messages.Derive(parent, messages.BackingStatement{})

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, parent.ID(), a.ID())

	reply := messages.Reply(a, messages.ValidationOutcome{Requester: relay.CandidateBacking})
	assert.Equal(t, a.ID(), reply.ID())
	assert.Equal(t, relay.CandidateBacking, reply.Destination())
}
