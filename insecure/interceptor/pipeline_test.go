package interceptor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/model/messages"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module/metrics"
	"github.com/onflow/relay-node/utils/unittest"
)

func newPipeline(hooks ...boundHook) *pipeline {
	return &pipeline{kind: relay.DisputeCoordinator, hooks: hooks, metrics: metrics.NewNoopCollector()}
}

func bind(t messages.Type, f HookFunc) boundHook {
	return boundHook{selectors: []Selector{{Direction: Egress, Type: t}}, hook: f}
}

func TestPipeline_Unmatched(t *testing.T) {
	p := newPipeline(bind(messages.TypeBackingStatement, func(Direction, messages.Message) (Action, error) {
		return Drop(), nil
	}))
	msg := messages.New(unittest.DisputeVoteFixture())

	out, err := p.evaluate(Egress, msg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, time.Duration(0), out[0].delay)
	assert.Equal(t, msg.ID(), out[0].msg.ID())

	// selectors are direction specific
	out, err = p.evaluate(Ingress, messages.New(unittest.BackingStatementFixture(unittest.ValidatorKeyFixture(0))))
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPipeline_DelaysAccumulate(t *testing.T) {
	delay := func(d time.Duration) HookFunc {
		return func(Direction, messages.Message) (Action, error) { return DelayThenForward(d), nil }
	}
	p := newPipeline(
		bind(messages.TypeDisputeVote, delay(time.Second)),
		bind(messages.TypeDisputeVote, delay(2*time.Second)),
	)

	out, err := p.evaluate(Egress, messages.New(unittest.DisputeVoteFixture()))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3*time.Second, out[0].delay)
}

func TestPipeline_DuplicateAfterDelay(t *testing.T) {
	p := newPipeline(
		bind(messages.TypeDisputeVote, func(Direction, messages.Message) (Action, error) {
			return DelayThenForward(time.Second), nil
		}),
		bind(messages.TypeDisputeVote, func(Direction, messages.Message) (Action, error) {
			return Duplicate(2, 100*time.Millisecond, func(i int, msg messages.Message) messages.Message {
				vote := msg.Payload().(messages.DisputeVote)
				vote.Timestamp += uint64(i)
				return msg.WithPayload(vote)
			}), nil
		}),
	)
	vote := unittest.DisputeVoteFixture()

	out, err := p.evaluate(Egress, messages.New(vote))
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, o := range out {
		assert.Equal(t, time.Second+time.Duration(i)*100*time.Millisecond, o.delay)
		assert.Equal(t, vote.Timestamp+uint64(i), o.msg.Payload().(messages.DisputeVote).Timestamp)
	}
}

func TestPipeline_Errors(t *testing.T) {
	t.Run("hook error", func(t *testing.T) {
		boom := errors.New("boom")
		p := newPipeline(bind(messages.TypeDisputeVote, func(Direction, messages.Message) (Action, error) {
			return Forward(), boom
		}))

		_, err := p.evaluate(Egress, messages.New(unittest.DisputeVoteFixture()))
		var hookErr *HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, relay.DisputeCoordinator, hookErr.Kind)
		assert.Equal(t, messages.TypeDisputeVote, hookErr.Type)
		assert.ErrorIs(t, err, boom)
	})

	invalid := map[string]Action{
		"zero action":       {},
		"empty replacement": Replace(messages.Message{}),
		"negative delay":    DelayThenForward(-time.Second),
		"no copies":         Duplicate(0, time.Second, nil),
		"negative spacing":  Duplicate(1, -time.Second, nil),
	}
	for name, action := range invalid {
		action := action
		t.Run(name, func(t *testing.T) {
			p := newPipeline(bind(messages.TypeDisputeVote, func(Direction, messages.Message) (Action, error) {
				return action, nil
			}))
			_, err := p.evaluate(Egress, messages.New(unittest.DisputeVoteFixture()))
			assert.True(t, IsHookError(err))
			assert.ErrorIs(t, err, ErrInvalidAction)
		})
	}
}
