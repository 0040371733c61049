package cmd

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"

	"github.com/onflow/relay-node/cmd"
	"github.com/onflow/relay-node/insecure/interceptor"
	"github.com/onflow/relay-node/insecure/variants"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
)

// MalusNodeBuilder creates a relay node that runs one misbehavior variant. The subsystems
// targeted by the variant are intercepted; all others are genuine.
type MalusNodeBuilder struct {
	*cmd.NodeBuilder

	variantName string
	params      variants.Params
	variant     variants.Descriptor
}

var _ cmd.Builder = (*MalusNodeBuilder)(nil)

// NewMalusNodeBuilder adds the variant flags to the builder. The variant is selected when
// the builder is initialized.
func NewMalusNodeBuilder(builder *cmd.NodeBuilder) *MalusNodeBuilder {
	mnb := &MalusNodeBuilder{
		NodeBuilder: builder,
		params:      variants.DefaultParams(),
	}
	builder.ExtraFlags(func(flags *pflag.FlagSet) {
		flags.StringVar(&mnb.variantName, "variant", "", "misbehavior variant to run, see list-variants")
		flags.DurationVar(&mnb.params.Delay, "delay", mnb.params.Delay, "how long delayed-response holds back execution results")
		flags.DurationVar(&mnb.params.VoteShift, "vote-shift", mnb.params.VoteShift, "spacing and timestamp shift of the vote duplicated by duplicate-vote")
	})
	return mnb
}

// Variant returns the selected variant. Only valid after Initialize.
func (mnb *MalusNodeBuilder) Variant() variants.Descriptor {
	return mnb.variant
}

// Initialize initializes the node builder, selects the variant and intercepts every
// subsystem it targets.
//
// Expected errors:
//   - *cmd.ConfigError if the variant is unknown or targets subsystems the node does not have
func (mnb *MalusNodeBuilder) Initialize() error {
	if err := mnb.NodeBuilder.Initialize(); err != nil {
		return fmt.Errorf("could not initialize node builder: %w", err)
	}

	variant, err := variants.Lookup(mnb.variantName, mnb.params)
	if err != nil {
		return cmd.NewConfigError(err)
	}
	built, err := mnb.BuiltKinds()
	if err != nil {
		return fmt.Errorf("could not list subsystems of the node: %w", err)
	}
	if err := checkTargets(variant, built); err != nil {
		return cmd.NewConfigError(err)
	}
	mnb.variant = variant

	mnb.Logger = mnb.Logger.With().Str("variant", variant.Name()).Logger()
	mnb.Logger.Warn().
		Str("description", variant.Description()).
		Strs("targets", kindNames(variant)).
		Msg("node runs a misbehavior variant")

	mnb.enqueueInterceptors()

	return nil
}

// checkTargets collects every kind targeted by the variant that is not part of the build.
func checkTargets(variant variants.Descriptor, built []relay.SubsystemKind) error {
	included := make(map[relay.SubsystemKind]struct{}, len(built))
	for _, kind := range built {
		included[kind] = struct{}{}
	}

	var result *multierror.Error
	for _, kind := range variant.Targets() {
		if _, ok := included[kind]; !ok {
			result = multierror.Append(result, fmt.Errorf("variant %s targets the %s subsystem, which this node does not build", variant.Name(), kind))
		}
	}
	return result.ErrorOrNil()
}

func (mnb *MalusNodeBuilder) enqueueInterceptors() {
	for _, kind := range mnb.variant.Targets() {
		bindings := mnb.variant.BindingsFor(kind)
		mnb.OverrideSubsystem(kind, func(node *cmd.NodeConfig, genuine subsystem.Subsystem) (subsystem.Subsystem, error) {
			return interceptor.New(node.Logger, node.Metrics, genuine, bindings...)
		})
	}
}

func kindNames(variant variants.Descriptor) []string {
	targets := variant.Targets()
	names := make([]string, 0, len(targets))
	for _, kind := range targets {
		names = append(names, kind.String())
	}
	return names
}
