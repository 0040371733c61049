package cmd

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
	"github.com/onflow/relay-node/utils/unittest"
)

// idle returns a subsystem that runs until ctx is cancelled.
func idle(kind relay.SubsystemKind) SubsystemFactoryFunc {
	return func(*NodeConfig) (subsystem.Subsystem, error) {
		return subsystem.NewFunc(kind, func(ctx context.Context, _ subsystem.Context) error {
			<-ctx.Done()
			return nil
		}), nil
	}
}

func initializedBuilder(t *testing.T, args ...string) *NodeBuilder {
	b := NewNodeBuilder("test", WithLogWriter(io.Discard))
	require.NoError(t, b.Flags().Parse(append(args, "--metrics-port", "0")))
	require.NoError(t, b.Initialize())
	return b
}

func runNode(t *testing.T, b *NodeBuilder) (context.CancelFunc, <-chan error) {
	node, err := b.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()
	return cancel, done
}

func TestNode_CleanShutdown(t *testing.T) {
	b := initializedBuilder(t)
	b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))
	b.Subsystem(relay.CandidateValidation, idle(relay.CandidateValidation))

	cancel, done := runNode(t, b)
	cancel()

	unittest.RequireReturnsBefore(t, func() {
		assert.NoError(t, <-done)
	}, time.Second, "node did not shut down")
}

func TestNode_SubsystemFailure(t *testing.T) {
	boom := errors.New("boom")
	b := initializedBuilder(t)
	b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))
	b.Subsystem(relay.CandidateValidation, func(*NodeConfig) (subsystem.Subsystem, error) {
		return subsystem.NewFunc(relay.CandidateValidation, func(context.Context, subsystem.Context) error {
			return boom
		}), nil
	})

	cancel, done := runNode(t, b)
	defer cancel()

	unittest.RequireReturnsBefore(t, func() {
		err := <-done
		assert.True(t, subsystem.IsFailureError(err))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, ExitFatal, ExitCode(err))
	}, time.Second, "node did not halt on subsystem failure")
}

func TestNode_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	b := initializedBuilder(t, "--shutdown-timeout", "100ms")
	b.Subsystem(relay.PvfExecution, func(*NodeConfig) (subsystem.Subsystem, error) {
		return subsystem.NewFunc(relay.PvfExecution, func(context.Context, subsystem.Context) error {
			<-release
			return nil
		}), nil
	})

	cancel, done := runNode(t, b)
	cancel()

	unittest.RequireReturnsBefore(t, func() {
		err := <-done
		assert.ErrorIs(t, err, ErrShutdownTimeout)
		assert.Equal(t, ExitFatal, ExitCode(err))
	}, time.Second, "node did not enforce the shutdown timeout")
}

func TestNodeBuilder_Overrides(t *testing.T) {
	b := initializedBuilder(t)
	b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))

	wrapped := atomic.NewInt32(0)
	b.OverrideSubsystem(relay.PvfExecution, func(_ *NodeConfig, inner subsystem.Subsystem) (subsystem.Subsystem, error) {
		wrapped.Inc()
		return inner, nil
	})

	_, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int32(1), wrapped.Load())
}

func TestNodeBuilder_InvalidSubsystems(t *testing.T) {
	t.Run("override without target", func(t *testing.T) {
		b := initializedBuilder(t)
		b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))
		b.OverrideSubsystem(relay.CandidateBacking, func(_ *NodeConfig, inner subsystem.Subsystem) (subsystem.Subsystem, error) {
			return inner, nil
		})

		_, err := b.Build()
		assert.True(t, IsConfigError(err))
	})

	t.Run("duplicate kind", func(t *testing.T) {
		b := initializedBuilder(t)
		b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))
		b.Subsystem(relay.PvfExecution, idle(relay.PvfExecution))

		_, err := b.Build()
		assert.True(t, IsConfigError(err))
	})

	t.Run("not initialized", func(t *testing.T) {
		b := NewNodeBuilder("test", WithLogWriter(io.Discard))
		_, err := b.Build()
		assert.Error(t, err)
	})
}

func TestNodeBuilder_Subsystems(t *testing.T) {
	created := atomic.NewInt32(0)
	b := initializedBuilder(t)
	b.Subsystems([]relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation}, func(*NodeConfig) (subsystem.Factory, error) {
		created.Inc()
		return idleFactory{}, nil
	})
	assert.True(t, b.HasSubsystem(relay.CandidateValidation))
	assert.False(t, b.HasSubsystem(relay.CandidateBacking))
	assert.Equal(t, []relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation}, b.SubsystemKinds())

	node, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, []relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation}, node.Overseer().Kinds())
}

func TestNodeBuilder_SubsystemsLeftOutByFactory(t *testing.T) {
	kinds := []relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation, relay.CandidateBacking}
	factory := func(*NodeConfig) (subsystem.Factory, error) {
		return idleFactory{}, nil
	}

	t.Run("left out kinds are not built", func(t *testing.T) {
		b := initializedBuilder(t)
		b.Subsystems(kinds, factory)

		built, err := b.BuiltKinds()
		require.NoError(t, err)
		assert.Equal(t, []relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation}, built)
		assert.True(t, b.HasSubsystem(relay.CandidateBacking))

		node, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, built, node.Overseer().Kinds())
	})

	t.Run("override of a left out kind", func(t *testing.T) {
		b := initializedBuilder(t)
		b.Subsystems(kinds, factory)
		b.OverrideSubsystem(relay.CandidateBacking, func(_ *NodeConfig, inner subsystem.Subsystem) (subsystem.Subsystem, error) {
			return inner, nil
		})

		_, err := b.Build()
		assert.True(t, IsConfigError(err))
		assert.Equal(t, ExitConfig, ExitCode(err))
	})

	t.Run("not initialized", func(t *testing.T) {
		b := NewNodeBuilder("test", WithLogWriter(io.Discard))
		b.Subsystems(kinds, factory)
		_, err := b.BuiltKinds()
		assert.Error(t, err)
	})
}

type idleFactory struct{}

func (idleFactory) Kinds() []relay.SubsystemKind {
	return []relay.SubsystemKind{relay.PvfExecution, relay.CandidateValidation}
}

func (idleFactory) Create(kind relay.SubsystemKind) (subsystem.Subsystem, error) {
	return idle(kind)(nil)
}
