package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/module/component"
	"github.com/onflow/relay-node/module/irrecoverable"
	"github.com/onflow/relay-node/module/metrics"
	"github.com/onflow/relay-node/overseer"
	"github.com/onflow/relay-node/subsystem"
)

// MetricsServerComponent is the name of the component serving prometheus metrics.
const MetricsServerComponent = "metrics server"

// NodeConfig is the state of an initialized node builder. It is handed to the functions
// creating the subsystems and components of the node.
type NodeConfig struct {
	BaseConfig
	Logger     zerolog.Logger
	Key        *relay.ValidatorKey
	Validators relay.ValidatorSet
	Metrics    module.NodeMetrics
	// Registry is the prometheus registry of the node, nil if metrics are disabled.
	Registry *prometheus.Registry
}

// SubsystemFactoryFunc creates one subsystem of the node.
type SubsystemFactoryFunc func(node *NodeConfig) (subsystem.Subsystem, error)

// SubsystemWrapFunc replaces the subsystem created for a kind, typically by wrapping it.
type SubsystemWrapFunc func(node *NodeConfig, inner subsystem.Subsystem) (subsystem.Subsystem, error)

// FactoryFunc creates the subsystem factory of the node once its configuration is known.
type FactoryFunc func(node *NodeConfig) (subsystem.Factory, error)

// ComponentFactoryFunc creates an auxiliary component that runs alongside the subsystems.
type ComponentFactoryFunc func(node *NodeConfig) (component.Component, error)

type namedSubsystem struct {
	kind relay.SubsystemKind
	fn   SubsystemFactoryFunc
	// included reports whether the kind is part of the build, nil if it always is
	included func(node *NodeConfig) (bool, error)
}

type namedComponent struct {
	name string
	fn   ComponentFactoryFunc
}

// NodeBuilder assembles a relay node from its subsystems. Subsystems are registered by
// kind and may be overridden before the node is built.
type NodeBuilder struct {
	*NodeConfig
	name        string
	flags       *pflag.FlagSet
	logWriter   io.Writer
	subsystems  []namedSubsystem
	overrides   map[relay.SubsystemKind][]SubsystemWrapFunc
	components  []namedComponent
	initialized bool
}

type Option func(*NodeBuilder)

// WithLogWriter sets where the node logs to. Defaults to stderr.
func WithLogWriter(w io.Writer) Option {
	return func(b *NodeBuilder) {
		b.logWriter = w
	}
}

func NewNodeBuilder(name string, opts ...Option) *NodeBuilder {
	b := &NodeBuilder{
		NodeConfig: &NodeConfig{BaseConfig: DefaultBaseConfig()},
		name:       name,
		flags:      pflag.NewFlagSet(name, pflag.ContinueOnError),
		logWriter:  os.Stderr,
		overrides:  make(map[relay.SubsystemKind][]SubsystemWrapFunc),
	}
	for _, apply := range opts {
		apply(b)
	}

	b.baseFlags()

	return b
}

// Flags returns the flags of the node. Commands add them to their own flag set.
func (b *NodeBuilder) Flags() *pflag.FlagSet {
	return b.flags
}

func (b *NodeBuilder) ExtraFlags(f func(*pflag.FlagSet)) *NodeBuilder {
	f(b.flags)
	return b
}

// Subsystem registers the subsystem of the given kind.
func (b *NodeBuilder) Subsystem(kind relay.SubsystemKind, fn SubsystemFactoryFunc) *NodeBuilder {
	b.subsystems = append(b.subsystems, namedSubsystem{kind: kind, fn: fn})
	return b
}

// Subsystems registers the given kinds, created by the factory fn returns. The factory is
// created once, when it is first needed. Kinds the factory does not list in Kinds() are
// left out of the node.
func (b *NodeBuilder) Subsystems(kinds []relay.SubsystemKind, fn FactoryFunc) *NodeBuilder {
	var factory subsystem.Factory
	var provided map[relay.SubsystemKind]struct{}
	load := func(node *NodeConfig) (subsystem.Factory, error) {
		if factory == nil {
			f, err := fn(node)
			if err != nil {
				return nil, fmt.Errorf("could not create subsystem factory: %w", err)
			}
			provided = make(map[relay.SubsystemKind]struct{})
			for _, kind := range f.Kinds() {
				provided[kind] = struct{}{}
			}
			factory = f
		}
		return factory, nil
	}

	for _, kind := range kinds {
		kind := kind
		b.subsystems = append(b.subsystems, namedSubsystem{
			kind: kind,
			fn: func(node *NodeConfig) (subsystem.Subsystem, error) {
				f, err := load(node)
				if err != nil {
					return nil, err
				}
				return f.Create(kind)
			},
			included: func(node *NodeConfig) (bool, error) {
				if _, err := load(node); err != nil {
					return false, err
				}
				_, ok := provided[kind]
				return ok, nil
			},
		})
	}
	return b
}

// HasSubsystem reports whether a subsystem of the given kind is registered.
func (b *NodeBuilder) HasSubsystem(kind relay.SubsystemKind) bool {
	for _, s := range b.subsystems {
		if s.kind == kind {
			return true
		}
	}
	return false
}

// BuiltKinds returns the registered kinds that are part of the build, in registration
// order. It creates the subsystem factories, so it is only valid after Initialize.
func (b *NodeBuilder) BuiltKinds() ([]relay.SubsystemKind, error) {
	if !b.initialized {
		return nil, fmt.Errorf("node builder must be initialized before listing built subsystems")
	}

	kinds := make([]relay.SubsystemKind, 0, len(b.subsystems))
	for _, s := range b.subsystems {
		if s.included != nil {
			ok, err := s.included(b.NodeConfig)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		kinds = append(kinds, s.kind)
	}
	return kinds, nil
}

// SubsystemKinds returns the registered kinds in registration order.
func (b *NodeBuilder) SubsystemKinds() []relay.SubsystemKind {
	kinds := make([]relay.SubsystemKind, 0, len(b.subsystems))
	for _, s := range b.subsystems {
		kinds = append(kinds, s.kind)
	}
	return kinds
}

// OverrideSubsystem replaces the subsystem of the given kind with the result of fn, which
// receives the subsystem that would have been used otherwise. Overrides of one kind
// apply in the order they were added.
func (b *NodeBuilder) OverrideSubsystem(kind relay.SubsystemKind, fn SubsystemWrapFunc) *NodeBuilder {
	b.overrides[kind] = append(b.overrides[kind], fn)
	return b
}

// Component registers an auxiliary component. Components start after the subsystems.
func (b *NodeBuilder) Component(name string, fn ComponentFactoryFunc) *NodeBuilder {
	b.components = append(b.components, namedComponent{name: name, fn: fn})
	return b
}

// Initialize applies environment variables and the config file to the parsed flags,
// validates the configuration and sets up the logger, the validator key and metrics.
//
// Expected errors:
//   - *ConfigError if the configuration is invalid
func (b *NodeBuilder) Initialize() error {
	if b.initialized {
		return fmt.Errorf("node builder already initialized")
	}

	if err := bindFlags(b.flags, b.BaseConfig.ConfigFile); err != nil {
		return NewConfigError(err)
	}
	if err := b.BaseConfig.validate(); err != nil {
		return NewConfigError(err)
	}

	b.initLogger()

	if err := b.initValidator(); err != nil {
		return NewConfigError(err)
	}

	b.initMetrics()

	b.initialized = true
	return nil
}

func (b *NodeBuilder) initLogger() {
	// configure logger with standard level, node ID and UTC timestamp
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(b.logWriter).With().
		Timestamp().
		Str("node_id", b.BaseConfig.NodeID).
		Logger()

	// level was validated with the rest of the config
	lvl, _ := zerolog.ParseLevel(strings.ToLower(b.BaseConfig.Level))
	b.Logger = log.Level(lvl)

	b.Logger.Info().Msgf("relay %s node starting up", b.name)
}

func (b *NodeBuilder) initValidator() error {
	key, err := b.BaseConfig.validatorKey()
	if err != nil {
		return fmt.Errorf("could not initialize validator key: %w", err)
	}
	if b.BaseConfig.ValidatorSeed == "" {
		b.Logger.Warn().Msg("no validator seed configured, using a random validator key")
	}

	validators, err := b.BaseConfig.validatorSet(key)
	if err != nil {
		return fmt.Errorf("could not initialize validator set: %w", err)
	}

	b.Key = key
	b.Validators = validators
	b.Logger = b.Logger.With().Uint32("validator_index", uint32(key.Index())).Logger()
	return nil
}

func (b *NodeBuilder) initMetrics() {
	if b.BaseConfig.MetricsPort == 0 {
		b.Metrics = metrics.NewNoopCollector()
		b.Logger.Info().Msg("metrics disabled")
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b.Registry = registry
	b.Metrics = metrics.NewNodeCollector(registry)

	b.Component(MetricsServerComponent, func(node *NodeConfig) (component.Component, error) {
		return metrics.NewServer(node.Logger, node.MetricsPort, node.Registry), nil
	})
}

// Build creates the subsystems that are part of the build, applying overrides, and the
// overseer hosting them.
//
// Expected errors:
//   - *ConfigError if an override targets a kind that is not part of the build or a kind
//     is registered twice
func (b *NodeBuilder) Build() (*Node, error) {
	if !b.initialized {
		return nil, fmt.Errorf("node builder must be initialized before building")
	}

	built, err := b.BuiltKinds()
	if err != nil {
		return nil, err
	}
	included := make(map[relay.SubsystemKind]struct{}, len(built))
	for _, kind := range built {
		included[kind] = struct{}{}
	}
	if err := b.checkSubsystems(included); err != nil {
		return nil, NewConfigError(err)
	}

	subsystems := make([]subsystem.Subsystem, 0, len(built))
	for _, s := range b.subsystems {
		if _, ok := included[s.kind]; !ok {
			b.Logger.Info().Str("subsystem", s.kind.String()).Msg("subsystem not part of this build")
			continue
		}
		sub, err := s.fn(b.NodeConfig)
		if err != nil {
			return nil, fmt.Errorf("could not create %s subsystem: %w", s.kind, err)
		}
		for _, wrap := range b.overrides[s.kind] {
			sub, err = wrap(b.NodeConfig, sub)
			if err != nil {
				return nil, fmt.Errorf("could not override %s subsystem: %w", s.kind, err)
			}
		}
		b.Logger.Debug().Str("subsystem", s.kind.String()).Int("overrides", len(b.overrides[s.kind])).Msg("subsystem created")
		subsystems = append(subsystems, sub)
	}

	o, err := overseer.New(b.Logger, b.Metrics, b.BaseConfig.ChannelCapacity, subsystems...)
	if err != nil {
		return nil, NewConfigError(fmt.Errorf("could not create overseer: %w", err))
	}

	cm := component.NewComponentManagerBuilder().
		AddWorker(b.componentWorker("overseer", o))
	for _, c := range b.components {
		comp, err := c.fn(b.NodeConfig)
		if err != nil {
			return nil, fmt.Errorf("could not create %s: %w", c.name, err)
		}
		cm.AddWorker(b.componentWorker(c.name, comp))
	}

	return &Node{
		ComponentManager: cm.Build(),
		NodeConfig:       b.NodeConfig,
		name:             b.name,
		overseer:         o,
	}, nil
}

// checkSubsystems collects every kind registered twice and every override whose kind is
// not part of the build.
func (b *NodeBuilder) checkSubsystems(included map[relay.SubsystemKind]struct{}) error {
	var result *multierror.Error

	registered := make(map[relay.SubsystemKind]struct{}, len(b.subsystems))
	for _, s := range b.subsystems {
		if _, ok := registered[s.kind]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %s", overseer.ErrDuplicateSubsystem, s.kind))
		}
		registered[s.kind] = struct{}{}
	}
	for kind := range b.overrides {
		if _, ok := registered[kind]; !ok {
			result = multierror.Append(result, fmt.Errorf("cannot override %s subsystem: not registered", kind))
			continue
		}
		if _, ok := included[kind]; !ok {
			result = multierror.Append(result, fmt.Errorf("cannot override %s subsystem: not part of this build", kind))
		}
	}
	return result.ErrorOrNil()
}

// componentWorker starts the component as a child of the node and waits for it to be done.
func (b *NodeBuilder) componentWorker(name string, c component.Component) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		c.Start(ctx)

		select {
		case <-c.Ready():
			b.Logger.Info().Msgf("%s ready", name)
			ready()
		case <-ctx.Done():
		}

		<-c.Done()
		b.Logger.Info().Msgf("%s shutdown complete", name)
	}
}
