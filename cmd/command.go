package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/onflow/relay-node/model/relay"
)

// Builder is implemented by the builders of all node variants.
type Builder interface {
	Initialize() error
	Build() (*Node, error)
}

// Run initializes and builds the node, then runs it until shutdown.
func Run(ctx context.Context, builder Builder) error {
	if err := builder.Initialize(); err != nil {
		return err
	}
	node, err := builder.Build()
	if err != nil {
		return err
	}
	return node.Run(ctx)
}

// NewRelayCommand returns the command running an honest relay node, whose subsystems are
// created by factory.
func NewRelayCommand(factory FactoryFunc, opts ...Option) *cobra.Command {
	builder := NewNodeBuilder("relay", opts...)
	builder.Subsystems(relay.SubsystemKinds(), factory)

	command := &cobra.Command{
		Use:           "relay",
		Short:         "Run a relay chain validator node",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return Run(c.Context(), builder)
		},
	}
	AddNodeFlags(command, builder.Flags())
	return command
}

// AddNodeFlags adds the node flags to the command. Invalid flags are configuration errors.
func AddNodeFlags(command *cobra.Command, flags *pflag.FlagSet) {
	command.Flags().AddFlagSet(flags)
	command.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return NewConfigError(err)
	})
}
