package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onflow/relay-node/module"
)

// NodeCollector registers the collectors of all parts of a relay node with one registerer.
type NodeCollector struct {
	*OverseerCollector
	*InterceptorCollector
	*BridgeCollector
	*PvfCollector
}

var _ module.NodeMetrics = (*NodeCollector)(nil)

func NewNodeCollector(registerer prometheus.Registerer) *NodeCollector {
	return &NodeCollector{
		OverseerCollector:    NewOverseerCollector(registerer),
		InterceptorCollector: NewInterceptorCollector(registerer),
		BridgeCollector:      NewBridgeCollector(registerer),
		PvfCollector:         NewPvfCollector(registerer),
	}
}
