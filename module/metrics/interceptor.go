package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/relay-node/module"
)

// InterceptorCollector counts hook pipeline decisions per subsystem, direction and message type.
type InterceptorCollector struct {
	invoked    *prometheus.CounterVec
	forwarded  *prometheus.CounterVec
	replaced   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	delayed    *prometheus.CounterVec
	delay      *prometheus.HistogramVec
	duplicated *prometheus.CounterVec
	abandoned  *prometheus.CounterVec
}

var _ module.InterceptorMetrics = (*InterceptorCollector)(nil)

func NewInterceptorCollector(registerer prometheus.Registerer) *InterceptorCollector {
	factory := promauto.With(registerer)
	labels := []string{LabelSubsystem, LabelDirection, LabelMessage}

	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Name:      name,
			Namespace: namespaceMalus,
			Subsystem: subsystemInterceptor,
			Help:      help,
		}, labels)
	}

	return &InterceptorCollector{
		invoked:    counter("hook_invocations_total", "the number of hook invocations"),
		forwarded:  counter("messages_forwarded_total", "the number of messages forwarded unchanged"),
		replaced:   counter("messages_replaced_total", "the number of messages replaced by a hook"),
		dropped:    counter("messages_dropped_total", "the number of messages dropped by a hook"),
		delayed:    counter("messages_delayed_total", "the number of messages held on the delay line"),
		duplicated: counter("messages_duplicated_total", "the number of extra copies scheduled by hooks"),
		delay: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "message_delay_seconds",
			Namespace: namespaceMalus,
			Subsystem: subsystemInterceptor,
			Help:      "the delay injected before a message was emitted",
			Buckets:   []float64{.01, .1, .5, 1, 2.5, 5, 10, 30},
		}, labels),
		abandoned: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "delayed_emissions_abandoned_total",
			Namespace: namespaceMalus,
			Subsystem: subsystemInterceptor,
			Help:      "the number of delayed emissions abandoned on shutdown",
		}, []string{LabelSubsystem}),
	}
}

func (ic *InterceptorCollector) labels(subsystem, direction, messageType string) prometheus.Labels {
	return prometheus.Labels{LabelSubsystem: subsystem, LabelDirection: direction, LabelMessage: messageType}
}

func (ic *InterceptorCollector) HookInvoked(subsystem string, direction string, messageType string) {
	ic.invoked.With(ic.labels(subsystem, direction, messageType)).Inc()
}

func (ic *InterceptorCollector) MessageForwarded(subsystem string, direction string, messageType string) {
	ic.forwarded.With(ic.labels(subsystem, direction, messageType)).Inc()
}

func (ic *InterceptorCollector) MessageReplaced(subsystem string, direction string, messageType string) {
	ic.replaced.With(ic.labels(subsystem, direction, messageType)).Inc()
}

func (ic *InterceptorCollector) MessageDropped(subsystem string, direction string, messageType string) {
	ic.dropped.With(ic.labels(subsystem, direction, messageType)).Inc()
}

func (ic *InterceptorCollector) MessageDelayed(subsystem string, direction string, messageType string, delay time.Duration) {
	l := ic.labels(subsystem, direction, messageType)
	ic.delayed.With(l).Inc()
	ic.delay.With(l).Observe(delay.Seconds())
}

func (ic *InterceptorCollector) MessageDuplicated(subsystem string, direction string, messageType string, copies int) {
	ic.duplicated.With(ic.labels(subsystem, direction, messageType)).Add(float64(copies))
}

func (ic *InterceptorCollector) DelayedEmissionsAbandoned(subsystem string, count int) {
	ic.abandoned.With(prometheus.Labels{LabelSubsystem: subsystem}).Add(float64(count))
}
