package subsystem

import (
	"context"

	"github.com/onflow/relay-node/model/relay"
)

// RunFunc is the body of a subsystem.
type RunFunc func(ctx context.Context, sctx Context) error

type funcSubsystem struct {
	kind relay.SubsystemKind
	run  RunFunc
}

// NewFunc adapts a function to the Subsystem interface.
func NewFunc(kind relay.SubsystemKind, run RunFunc) Subsystem {
	return &funcSubsystem{kind: kind, run: run}
}

func (s *funcSubsystem) Kind() relay.SubsystemKind {
	return s.kind
}

func (s *funcSubsystem) Run(ctx context.Context, sctx Context) error {
	return s.run(ctx, sctx)
}
