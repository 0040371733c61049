package cmd

import (
	"github.com/onflow/relay-node/engine/bridge"
	"github.com/onflow/relay-node/engine/genuine"
	"github.com/onflow/relay-node/model/relay"
	"github.com/onflow/relay-node/subsystem"
)

// GenuineFactory creates the factory of the honest subsystems, configured from the node.
func GenuineFactory(node *NodeConfig) (subsystem.Factory, error) {
	config := genuine.DefaultConfig()
	config.Session = relay.SessionIndex(node.Session)
	config.PvfWorkers = node.PvfWorkers
	config.ExecutionTimeout = node.ExecutionTimeout

	return genuine.NewFactory(
		node.Logger,
		config,
		node.Metrics,
		node.Key,
		node.Validators,
		bridge.NewLogGossiper(node.Logger),
	), nil
}
