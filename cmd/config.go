package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/onflow/relay-node/engine/genuine"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/overseer"
)

// EnvPrefix prefixes the environment variables that configure a node, e.g. RELAY_LOGLEVEL
// sets --loglevel.
const EnvPrefix = "RELAY"

// configFlag names the flag pointing at an optional config file. It is not itself read
// from the environment or the config file.
const configFlag = "config"

// BaseConfig is the configuration shared by all node variants.
type BaseConfig struct {
	NodeID           string
	Level            string
	ConfigFile       string
	ValidatorIndex   uint32
	ValidatorSeed    string
	Validators       []string
	Session          uint32
	ChannelCapacity  int
	PvfWorkers       int
	ExecutionTimeout time.Duration
	MetricsPort      uint
	ShutdownTimeout  time.Duration
}

func DefaultBaseConfig() BaseConfig {
	defaults := genuine.DefaultConfig()
	return BaseConfig{
		NodeID:           "relay-node",
		Level:            "info",
		ChannelCapacity:  overseer.DefaultChannelCapacity,
		PvfWorkers:       defaults.PvfWorkers,
		ExecutionTimeout: defaults.ExecutionTimeout,
		MetricsPort:      8080,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (b *NodeBuilder) baseFlags() {
	defaults := DefaultBaseConfig()

	b.flags.StringVarP(&b.BaseConfig.NodeID, "nodeid", "n", defaults.NodeID, "identity of our node")
	b.flags.StringVarP(&b.BaseConfig.Level, "loglevel", "l", defaults.Level, "level for logging output")
	b.flags.StringVar(&b.BaseConfig.ConfigFile, configFlag, "", "path to an optional config file")
	b.flags.Uint32Var(&b.BaseConfig.ValidatorIndex, "validator-index", defaults.ValidatorIndex, "index of the local validator in the validator set")
	b.flags.StringVar(&b.BaseConfig.ValidatorSeed, "validator-seed", "", "hex encoded 32 byte seed of the validator key, a random key is used if empty")
	b.flags.StringSliceVar(&b.BaseConfig.Validators, "validators", nil, "hex encoded public keys of the validator set, in index order; defaults to the local validator only")
	b.flags.Uint32Var(&b.BaseConfig.Session, "session", defaults.Session, "current session index")
	b.flags.IntVar(&b.BaseConfig.ChannelCapacity, "channel-capacity", defaults.ChannelCapacity, "capacity of each subsystem's inbound channel")
	b.flags.IntVar(&b.BaseConfig.PvfWorkers, "pvf-workers", defaults.PvfWorkers, "number of concurrent validation function executions")
	b.flags.DurationVar(&b.BaseConfig.ExecutionTimeout, "execution-timeout", defaults.ExecutionTimeout, "deadline for executing a candidate's validation function")
	b.flags.UintVar(&b.BaseConfig.MetricsPort, "metrics-port", defaults.MetricsPort, "port of the prometheus metrics server, 0 disables it")
	b.flags.DurationVar(&b.BaseConfig.ShutdownTimeout, "shutdown-timeout", defaults.ShutdownTimeout, "time the node is given to shut down gracefully")
}

// validate checks the base configuration, collecting every violation.
func (c BaseConfig) validate() error {
	var result *multierror.Error
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid log level %q: %w", c.Level, err))
	}
	if c.ChannelCapacity < 1 {
		result = multierror.Append(result, fmt.Errorf("channel capacity must be positive, got %d", c.ChannelCapacity))
	}
	if c.PvfWorkers < 1 {
		result = multierror.Append(result, fmt.Errorf("pvf workers must be positive, got %d", c.PvfWorkers))
	}
	if c.ExecutionTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("execution timeout must be positive, got %s", c.ExecutionTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if c.MetricsPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid metrics port %d", c.MetricsPort))
	}
	if len(c.Validators) > 0 && int(c.ValidatorIndex) >= len(c.Validators) {
		result = multierror.Append(result, fmt.Errorf("validator index %d outside of validator set of size %d", c.ValidatorIndex, len(c.Validators)))
	}
	return result.ErrorOrNil()
}

// validatorKey returns the key of the local validator.
func (c BaseConfig) validatorKey() (*relay.ValidatorKey, error) {
	index := relay.ValidatorIndex(c.ValidatorIndex)
	if c.ValidatorSeed == "" {
		return relay.GenerateValidatorKey(index)
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(c.ValidatorSeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not decode validator seed: %w", err)
	}
	return relay.NewValidatorKey(index, seed)
}

// validatorSet returns the validator set of the current session. The configured public
// key at the local index must match the local key.
func (c BaseConfig) validatorSet(key *relay.ValidatorKey) (relay.ValidatorSet, error) {
	if len(c.Validators) == 0 {
		return relay.NewValidatorSet(key), nil
	}

	set := make(relay.ValidatorSet, len(c.Validators))
	for i, encoded := range c.Validators {
		id, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
		if err != nil {
			return nil, fmt.Errorf("could not decode public key of validator %d: %w", i, err)
		}
		set[relay.ValidatorIndex(i)] = relay.ValidatorID(id)
	}
	if local, _ := set.ByIndex(key.Index()); string(local) != string(key.PublicKey()) {
		return nil, fmt.Errorf("validator %d of the validator set does not match the local validator key", key.Index())
	}
	return set, nil
}

// bindFlags layers the environment and an optional config file under the flags: a flag
// that was not set on the command line takes its value from RELAY_<FLAG_NAME>, then from
// the config file.
func bindFlags(flags *pflag.FlagSet, configFile string) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var result *multierror.Error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == configFlag {
			return
		}

		// environment variables can't have dashes in them, e.g. --pvf-workers binds to RELAY_PVF_WORKERS
		if strings.Contains(f.Name, "-") {
			envVar := fmt.Sprintf("%s_%s", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
			if err := v.BindEnv(f.Name, envVar); err != nil {
				result = multierror.Append(result, fmt.Errorf("could not bind env to flag %q: %w", f.Name, err))
				return
			}
		}

		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := setFlag(flags, f, v.Get(f.Name)); err != nil {
			result = multierror.Append(result, fmt.Errorf("could not set flag %q: %w", f.Name, err))
		}
	})
	return result.ErrorOrNil()
}

// setFlag sets a flag from a value found by viper. List values from config files are
// applied element by element.
func setFlag(flags *pflag.FlagSet, f *pflag.Flag, value interface{}) error {
	list, ok := value.([]interface{})
	if !ok {
		return flags.Set(f.Name, fmt.Sprintf("%v", value))
	}
	if len(list) == 0 {
		return nil
	}
	values := make([]string, 0, len(list))
	for _, v := range list {
		values = append(values, fmt.Sprintf("%v", v))
	}
	return flags.Set(f.Name, strings.Join(values, ","))
}
