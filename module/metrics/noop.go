package metrics

import (
	"time"

	"github.com/onflow/relay-node/module"
)

type NoopCollector struct{}

var _ module.OverseerMetrics = (*NoopCollector)(nil)
var _ module.InterceptorMetrics = (*NoopCollector)(nil)
var _ module.BridgeMetrics = (*NoopCollector)(nil)
var _ module.PvfMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) MessageRouted(origin string, destination string, messageType string) {}
func (nc *NoopCollector) InboundQueueLength(subsystem string, length int)                       {}
func (nc *NoopCollector) SubsystemFailed(subsystem string)                                      {}
func (nc *NoopCollector) HookInvoked(subsystem string, direction string, messageType string)   {}
func (nc *NoopCollector) MessageForwarded(subsystem string, direction string, messageType string) {
}
func (nc *NoopCollector) MessageReplaced(subsystem string, direction string, messageType string) {}
func (nc *NoopCollector) MessageDropped(subsystem string, direction string, messageType string)  {}
func (nc *NoopCollector) MessageDelayed(subsystem string, direction string, messageType string, delay time.Duration) {
}
func (nc *NoopCollector) MessageDuplicated(subsystem string, direction string, messageType string, copies int) {
}
func (nc *NoopCollector) DelayedEmissionsAbandoned(subsystem string, count int)       {}
func (nc *NoopCollector) OutboundGossiped(channel string, messageType string)         {}
func (nc *NoopCollector) OutboundDuplicateDropped(channel string, messageType string) {}
func (nc *NoopCollector) OutboundInvalidSignature(channel string, messageType string) {}
func (nc *NoopCollector) OutboundQueueLength(channel string, length int)              {}
func (nc *NoopCollector) PvfExecuted(duration time.Duration, valid bool)              {}
func (nc *NoopCollector) ValidationTimedOut()                                         {}
