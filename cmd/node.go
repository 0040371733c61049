package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/onflow/relay-node/module/component"
	"github.com/onflow/relay-node/module/irrecoverable"
	"github.com/onflow/relay-node/module/util"
	"github.com/onflow/relay-node/overseer"
)

var _ component.Component = (*Node)(nil)

// Node is a built relay node: the overseer with its subsystems plus the auxiliary components.
type Node struct {
	*component.ComponentManager
	*NodeConfig
	name     string
	overseer *overseer.Overseer
}

// Overseer returns the message bus of the node. External messages enter the node through it.
func (node *Node) Overseer() *overseer.Overseer {
	return node.overseer
}

// Run starts all components of the node and blocks until ctx is cancelled, SIGINT or
// SIGTERM is received, or an irrecoverable error is thrown. It then shuts the node down,
// giving it the configured shutdown timeout.
//
// Returns nil after a clean shutdown. Otherwise returns the irrecoverable error, which
// wraps a *subsystem.FailureError if a subsystem failed, or ErrShutdownTimeout.
func (node *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	go node.Start(signalerCtx)

	go func() {
		select {
		case <-node.Ready():
			node.Logger.Info().Msgf("%s node startup complete", node.name)
		case <-ctx.Done():
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	// block till a signal is received, ctx is cancelled or a fatal error is encountered
	sigCtx, sigCancel := util.WithSignal(ctx, signalChan)
	defer sigCancel()
	fatal := util.WaitError(sigCtx, errChan)
	if fatal != nil {
		node.Logger.Error().Err(fatal).Msg("unhandled irrecoverable error")
	} else if errors.Is(sigCtx.Err(), util.ErrSignalReceived) {
		node.Logger.Info().Msg("signal received")
	}

	node.Logger.Info().Msgf("%s node shutting down", node.name)
	cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), node.ShutdownTimeout)
	defer timeoutCancel()

	if fatal != nil {
		// the error channel is drained, only wait for the components to stop
		if err := util.WaitClosed(timeoutCtx, node.Done()); err != nil {
			node.Logger.Error().Dur("timeout", node.ShutdownTimeout).Msg("node shutdown aborted")
		}
		return fatal
	}

	doneCtx, doneCancel := util.WithDone(timeoutCtx, node.Done())
	defer doneCancel()
	if err := util.WaitError(doneCtx, errChan); err != nil {
		node.Logger.Error().Err(err).Msg("unhandled irrecoverable error during shutdown")
		return err
	}
	if !util.CheckClosed(node.Done()) {
		node.Logger.Error().Dur("timeout", node.ShutdownTimeout).Msg("node shutdown aborted")
		return ErrShutdownTimeout
	}

	node.Logger.Info().Msgf("%s node shutdown complete", node.name)
	return nil
}
