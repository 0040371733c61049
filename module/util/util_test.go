package util_test

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/relay-node/module/util"
	"github.com/onflow/relay-node/utils/unittest"
)

func TestAllClosed(t *testing.T) {
	a := make(chan struct{})
	b := make(chan struct{})
	all := util.AllClosed(a, b)

	close(a)
	unittest.RequireNeverClosedWithin(t, all, 50*time.Millisecond, "closed before all channels were closed")
	close(b)
	unittest.RequireCloseBefore(t, all, time.Second, "not closed after all channels were closed")
}

func TestWaitClosed(t *testing.T) {
	t.Run("channel closed", func(t *testing.T) {
		ch := make(chan struct{})
		close(ch)
		assert.NoError(t, util.WaitClosed(context.Background(), ch))
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, util.WaitClosed(ctx, make(chan struct{})), context.Canceled)
	})

	t.Run("both ready", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := make(chan struct{})
		close(ch)
		assert.NoError(t, util.WaitClosed(ctx, ch))
	})
}

func TestWaitError(t *testing.T) {
	fatal := errors.New("fatal")

	t.Run("error received", func(t *testing.T) {
		errChan := make(chan error, 1)
		errChan <- fatal
		assert.ErrorIs(t, util.WaitError(context.Background(), errChan), fatal)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, util.WaitError(ctx, make(chan error)))
	})

	// a pending error wins over a cancelled context
	t.Run("both ready", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		errChan := make(chan error, 1)
		errChan <- fatal
		assert.ErrorIs(t, util.WaitError(ctx, errChan), fatal)
	})
}

func TestWithDone(t *testing.T) {
	t.Run("channel closed first", func(t *testing.T) {
		done := make(chan struct{})
		ctx, cancel := util.WithDone(context.Background(), done)
		defer cancel()

		close(done)
		unittest.RequireCloseBefore(t, ctx.Done(), time.Second, "context not done")
		assert.ErrorIs(t, ctx.Err(), util.ErrChannelClosed)
	})

	t.Run("parent cancelled first", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := util.WithDone(parent, make(chan struct{}))
		defer cancel()

		cancelParent()
		unittest.RequireCloseBefore(t, ctx.Done(), time.Second, "context not done")
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}

func TestWithSignal(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, cancel := util.WithSignal(context.Background(), sig)
	defer cancel()

	require.NoError(t, ctx.Err())
	sig <- syscall.SIGTERM
	unittest.RequireCloseBefore(t, ctx.Done(), time.Second, "context not done")
	assert.ErrorIs(t, ctx.Err(), util.ErrSignalReceived)
}
