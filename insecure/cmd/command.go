package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/onflow/relay-node/cmd"
	"github.com/onflow/relay-node/insecure/variants"
	"github.com/onflow/relay-node/model/relay"
)

// NewMalusCommand returns the malus CLI. Nodes it runs create their genuine subsystems
// with factory before the subsystems targeted by the variant are intercepted.
func NewMalusCommand(factory cmd.FactoryFunc, opts ...cmd.Option) *cobra.Command {
	root := &cobra.Command{
		Use:           "malus",
		Short:         "Run relay nodes that misbehave on purpose",
		SilenceUsage:  true,
		SilenceErrors: true,
		// the root only dispatches, anything it is left with is not a subcommand
		Args: func(c *cobra.Command, args []string) error {
			if err := cobra.NoArgs(c, args); err != nil {
				return cmd.NewConfigError(err)
			}
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return c.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cmd.NewConfigError(err)
	})
	root.AddCommand(
		newRunCommand(factory, opts...),
		newListVariantsCommand(),
	)
	return root
}

func newRunCommand(factory cmd.FactoryFunc, opts ...cmd.Option) *cobra.Command {
	builder := NewMalusNodeBuilder(cmd.NewNodeBuilder("malus", opts...))
	builder.Subsystems(relay.SubsystemKinds(), factory)

	command := &cobra.Command{
		Use:   "run",
		Short: "Run a relay node with one misbehavior variant",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Run(c.Context(), builder)
		},
	}
	cmd.AddNodeFlags(command, builder.Flags())
	return command
}

func newListVariantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-variants",
		Short: "List the available misbehavior variants",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range variants.Names() {
				variant, err := variants.Lookup(name, variants.DefaultParams())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", variant.Name(), variant.Description())
			}
			return w.Flush()
		},
	}
}
