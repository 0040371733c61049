package genuine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/engine/bridge/mock"
	"github.com/onflow/relay-node/engine/genuine"
	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module/irrecoverable"
	"github.com/onflow/relay-node/module/metrics"
	"github.com/onflow/relay-node/overseer"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/unittest"
)

func TestFactory_CreatesAllKinds(t *testing.T) {
	key := unittest.ValidatorKeyFixture(0)
	f := genuine.NewFactory(unittest.Logger(), genuine.DefaultConfig(), metrics.NewNoopCollector(),
		key, relay.NewValidatorSet(key), mock.NewGossiper(t))

	for _, kind := range f.Kinds() {
		s, err := f.Create(kind)
		require.NoError(t, err, kind.String())
		assert.Equal(t, kind, s.Kind())
	}

	_, err := f.Create(relay.External)
	assert.ErrorIs(t, err, subsystem.ErrUnsupportedKind)
}

// TestHonestNode runs all genuine subsystems on the overseer and verifies that a valid
// candidate is seconded and an honest dispute vote is cast and gossiped.
func TestHonestNode(t *testing.T) {
	key := unittest.ValidatorKeyFixture(2)
	gossiped := make(chan messages.Message, 4)
	gossiper := mock.NewGossiper(t)
	gossiper.On("Gossip", testifymock.Anything, testifymock.Anything).
		Run(func(args testifymock.Arguments) { gossiped <- args.Get(1).(messages.Message) })

	config := genuine.DefaultConfig()
	config.Session = 3
	f := genuine.NewFactory(unittest.Logger(), config, metrics.NewNoopCollector(),
		key, relay.NewValidatorSet(key), gossiper)

	var subsystems []subsystem.Subsystem
	for _, kind := range f.Kinds() {
		s, err := f.Create(kind)
		require.NoError(t, err)
		subsystems = append(subsystems, s)
	}
	o, err := overseer.New(unittest.Logger(), metrics.NewNoopCollector(), 16, subsystems...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(irrecoverable.NewMockSignalerContext(t, ctx))
	unittest.RequireComponentsReadyBefore(t, time.Second, o)

	second := unittest.SecondCandidateFixture()
	require.NoError(t, o.Send(ctx, messages.New(second)))

	dispute := unittest.ParticipateInDisputeFixture(3)
	require.NoError(t, o.Send(ctx, messages.New(dispute)))

	var statement *messages.BackingStatement
	var vote *messages.DisputeVote
	for statement == nil || vote == nil {
		select {
		case msg := <-gossiped:
			switch p := msg.Payload().(type) {
			case messages.BackingStatement:
				statement = &p
			case messages.DisputeVote:
				vote = &p
			}
		case <-time.After(2 * time.Second):
			require.Fail(t, "node did not gossip a statement and a vote")
		}
	}

	assert.Equal(t, second.Candidate.Hash(), statement.Candidate.Hash())
	assert.True(t, statement.Verify(key.PublicKey()))
	assert.Equal(t, dispute.Candidate.Hash(), vote.CandidateHash)
	assert.True(t, vote.Valid)
	assert.True(t, vote.Verify(key.PublicKey()))

	cancel()
	unittest.RequireCloseBefore(t, o.Done(), time.Second, "node did not stop")
}
