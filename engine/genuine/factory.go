// Package genuine provides the factory of the honest subsystems of a relay node.
package genuine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/onflow/relay-node/engine/backing"
	"github.com/onflow/relay-node/engine/bridge"
	"github.com/onflow/relay-node/engine/dispute"
	"github.com/onflow/relay-node/engine/pvf"
	"github.com/onflow/relay-node/engine/validation"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/module"
	"github.com/onflow/relay-node/subsystem"
)

// Config holds the tunables of the genuine subsystems.
type Config struct {
	Session          relay.SessionIndex
	PvfWorkers       int
	ExecutionTimeout time.Duration
	VoteCacheSize    int
	BridgeCacheSize  int
	BridgeQueueSize  int
}

func DefaultConfig() Config {
	return Config{
		PvfWorkers:       pvf.DefaultWorkers,
		ExecutionTimeout: validation.DefaultExecutionTimeout,
		VoteCacheSize:    dispute.DefaultVoteCacheSize,
		BridgeCacheSize:  bridge.DefaultCacheSize,
		BridgeQueueSize:  bridge.DefaultQueueCapacity,
	}
}

// Metrics bundles the collectors used by the genuine subsystems.
type Metrics interface {
	module.PvfMetrics
	module.BridgeMetrics
}

// Factory creates the genuine subsystems of one validator.
type Factory struct {
	log        zerolog.Logger
	config     Config
	metrics    Metrics
	key        *relay.ValidatorKey
	validators relay.ValidatorSet
	gossiper   bridge.Gossiper
}

var _ subsystem.Factory = (*Factory)(nil)

func NewFactory(
	log zerolog.Logger,
	config Config,
	metrics Metrics,
	key *relay.ValidatorKey,
	validators relay.ValidatorSet,
	gossiper bridge.Gossiper,
) *Factory {
	return &Factory{
		log:        log,
		config:     config,
		metrics:    metrics,
		key:        key,
		validators: validators,
		gossiper:   gossiper,
	}
}

// Kinds returns every subsystem kind of the relay node, in bootstrap order.
func (f *Factory) Kinds() []relay.SubsystemKind {
	return relay.SubsystemKinds()
}

func (f *Factory) Create(kind relay.SubsystemKind) (subsystem.Subsystem, error) {
	switch kind {
	case relay.PvfExecution:
		return pvf.New(f.log, f.metrics, f.config.PvfWorkers)
	case relay.CandidateValidation:
		return validation.New(f.log, f.metrics, f.config.ExecutionTimeout)
	case relay.CandidateBacking:
		return backing.New(f.log, f.key), nil
	case relay.DisputeCoordinator:
		return dispute.New(f.log, f.key, f.config.Session, f.config.VoteCacheSize)
	case relay.StatementDistribution, relay.DisputeDistribution:
		return bridge.New(f.log, kind, f.metrics, f.validators, f.gossiper, f.config.BridgeCacheSize, f.config.BridgeQueueSize)
	default:
		return nil, fmt.Errorf("%w: %s", subsystem.ErrUnsupportedKind, kind)
	}
}
