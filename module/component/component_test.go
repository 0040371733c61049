package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/module/component"
	"github.com/onflow/relay-node/module/irrecoverable"
	"github.com/onflow/relay-node/utils/unittest"
)

func TestComponentManager_ReadyDone(t *testing.T) {
	release := make(chan struct{})
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			<-release
			ready()
			<-ctx.Done()
		}).
		Build()

	// fails the test if any worker throws
	signalerCtx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(signalerCtx)

	unittest.RequireNeverClosedWithin(t, cm.Ready(), 50*time.Millisecond, "ready before all workers were ready")
	close(release)
	unittest.RequireCloseBefore(t, cm.Ready(), time.Second, "component manager not ready")

	cancel()
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "shutdown not signalled")
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "component manager not done")
}

func TestComponentManager_ThrowPropagates(t *testing.T) {
	fatal := errors.New("fatal")
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ctx.Throw(fatal)
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		Build()

	signalerCtx, errChan := irrecoverable.WithSignaler(context.Background())
	cm.Start(signalerCtx)

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, fatal)
	case <-time.After(time.Second):
		t.Fatal("error was not propagated")
	}

	// the remaining worker is shut down
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "component manager not done")
}

func TestComponentManager_StartTwicePanics(t *testing.T) {
	cm := component.NewComponentManagerBuilder().Build()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalerCtx, _ := irrecoverable.WithSignaler(ctx)

	cm.Start(signalerCtx)
	assert.Panics(t, func() { cm.Start(signalerCtx) })
}
