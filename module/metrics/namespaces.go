package metrics

// Prometheus metric namespaces
const (
	namespaceRelay  = "relay"
	namespaceMalus  = "malus"
	namespaceBridge = "bridge"
)

// Relay node subsystems
const (
	subsystemOverseer = "overseer"
	subsystemPvf      = "pvf"
)

// Malus subsystems
const (
	subsystemInterceptor = "interceptor"
)

// Bridge subsystems
const (
	subsystemOutbound = "outbound"
)
