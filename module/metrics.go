package module

import (
	"time"
)

// OverseerMetrics records routing activity of the message bus.
type OverseerMetrics interface {
	// MessageRouted is called once per message delivered to a subsystem's inbound channel.
	MessageRouted(origin string, destination string, messageType string)

	// InboundQueueLength reports the number of messages waiting in a subsystem's inbound channel.
	InboundQueueLength(subsystem string, length int)

	// SubsystemFailed is called when a subsystem returned an error from Run.
	SubsystemFailed(subsystem string)
}

// InterceptorMetrics records the decisions taken by the hook pipeline of an intercepted subsystem.
type InterceptorMetrics interface {
	HookInvoked(subsystem string, direction string, messageType string)
	MessageForwarded(subsystem string, direction string, messageType string)
	MessageReplaced(subsystem string, direction string, messageType string)
	MessageDropped(subsystem string, direction string, messageType string)
	MessageDelayed(subsystem string, direction string, messageType string, delay time.Duration)
	MessageDuplicated(subsystem string, direction string, messageType string, copies int)

	// DelayedEmissionsAbandoned is called on shutdown with the number of pending delayed emissions.
	DelayedEmissionsAbandoned(subsystem string, count int)
}

// BridgeMetrics records what the network bridge would gossip.
type BridgeMetrics interface {
	OutboundGossiped(channel string, messageType string)
	OutboundDuplicateDropped(channel string, messageType string)
	OutboundInvalidSignature(channel string, messageType string)
	OutboundQueueLength(channel string, length int)
}

// PvfMetrics records validation function executions.
type PvfMetrics interface {
	PvfExecuted(duration time.Duration, valid bool)
	ValidationTimedOut()
}

// NodeMetrics bundles the metrics of all parts of a relay node.
type NodeMetrics interface {
	OverseerMetrics
	InterceptorMetrics
	BridgeMetrics
	PvfMetrics
}
