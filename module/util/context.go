package util

import (
	"context"
	"errors"
	"os"
	"sync"
)

// ErrChannelClosed is returned from Err() when a context returned from WithDone is closed after
// the provided channel is closed.
var ErrChannelClosed = errors.New("channel closed")

// WithDone wraps a signal channel with a context, and cancels the context when the channel is closed.
// When the context is Done, the ctx.Err() will either be ErrChannelClosed if the channel closed first,
// or the error from the underlying context (Canceled, DeadlineExceeded, etc).
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := &doneCtx{Context: ctx}
	go func() {
		select {
		case <-done:
			c.mu.Lock()
			c.err = ErrChannelClosed
			c.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return c, cancel
}

type doneCtx struct {
	context.Context
	mu  sync.Mutex
	err error
}

func (c *doneCtx) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return c.Context.Err()
}

// ErrSignalReceived is returned from Err() when a context returned from WithSignal is closed
// after a signal was received.
var ErrSignalReceived = errors.New("signal received")

// WithSignal wraps a signal channel with a context, and cancels the context when a signal is
// received. When the context is Done, ctx.Err() is ErrSignalReceived if a signal arrived first,
// or the error from the underlying context.
func WithSignal(parent context.Context, sig <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := &doneCtx{Context: ctx}
	go func() {
		select {
		case <-sig:
			c.mu.Lock()
			c.err = ErrSignalReceived
			c.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return c, cancel
}
