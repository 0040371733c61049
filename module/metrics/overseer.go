package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/relay-node/module"
)

type OverseerCollector struct {
	routed     *prometheus.CounterVec
	queueLen   *prometheus.GaugeVec
	subsFailed *prometheus.CounterVec
}

var _ module.OverseerMetrics = (*OverseerCollector)(nil)

func NewOverseerCollector(registerer prometheus.Registerer) *OverseerCollector {
	factory := promauto.With(registerer)

	oc := &OverseerCollector{
		routed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "messages_routed_total",
			Namespace: namespaceRelay,
			Subsystem: subsystemOverseer,
			Help:      "the number of messages delivered to subsystems by the overseer",
		}, []string{LabelOrigin, LabelDestination, LabelMessage}),

		queueLen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "inbound_queue_length",
			Namespace: namespaceRelay,
			Subsystem: subsystemOverseer,
			Help:      "the number of messages waiting in a subsystem's inbound channel",
		}, []string{LabelSubsystem}),

		subsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "subsystem_failures_total",
			Namespace: namespaceRelay,
			Subsystem: subsystemOverseer,
			Help:      "the number of subsystems that returned an error from Run",
		}, []string{LabelSubsystem}),
	}

	return oc
}

func (oc *OverseerCollector) MessageRouted(origin string, destination string, messageType string) {
	oc.routed.With(prometheus.Labels{LabelOrigin: origin, LabelDestination: destination, LabelMessage: messageType}).Inc()
}

func (oc *OverseerCollector) InboundQueueLength(subsystem string, length int) {
	oc.queueLen.With(prometheus.Labels{LabelSubsystem: subsystem}).Set(float64(length))
}

func (oc *OverseerCollector) SubsystemFailed(subsystem string) {
	oc.subsFailed.With(prometheus.Labels{LabelSubsystem: subsystem}).Inc()
}
