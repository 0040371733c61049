package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/relay-node/module"
)

type BridgeCollector struct {
	gossiped   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	invalid    *prometheus.CounterVec
	queueLen   *prometheus.GaugeVec
}

var _ module.BridgeMetrics = (*BridgeCollector)(nil)

func NewBridgeCollector(registerer prometheus.Registerer) *BridgeCollector {
	factory := promauto.With(registerer)

	return &BridgeCollector{
		gossiped: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "gossiped_total",
			Namespace: namespaceBridge,
			Subsystem: subsystemOutbound,
			Help:      "the number of items handed to the network",
		}, []string{LabelChannel, LabelMessage}),

		duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "duplicates_dropped_total",
			Namespace: namespaceBridge,
			Subsystem: subsystemOutbound,
			Help:      "the number of outbound items dropped because an identical item was already gossiped",
		}, []string{LabelChannel, LabelMessage}),

		invalid: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "invalid_signatures_total",
			Namespace: namespaceBridge,
			Subsystem: subsystemOutbound,
			Help:      "the number of outbound items rejected for a bad signature",
		}, []string{LabelChannel, LabelMessage}),

		queueLen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "queue_length",
			Namespace: namespaceBridge,
			Subsystem: subsystemOutbound,
			Help:      "the number of items buffered for the network",
		}, []string{LabelChannel}),
	}
}

func (bc *BridgeCollector) OutboundGossiped(channel string, messageType string) {
	bc.gossiped.With(prometheus.Labels{LabelChannel: channel, LabelMessage: messageType}).Inc()
}

func (bc *BridgeCollector) OutboundDuplicateDropped(channel string, messageType string) {
	bc.duplicates.With(prometheus.Labels{LabelChannel: channel, LabelMessage: messageType}).Inc()
}

func (bc *BridgeCollector) OutboundInvalidSignature(channel string, messageType string) {
	bc.invalid.With(prometheus.Labels{LabelChannel: channel, LabelMessage: messageType}).Inc()
}

func (bc *BridgeCollector) OutboundQueueLength(channel string, length int) {
	bc.queueLen.With(prometheus.Labels{LabelChannel: channel}).Set(float64(length))
}
