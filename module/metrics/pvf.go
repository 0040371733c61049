package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/relay-node/module"
)

type PvfCollector struct {
	executionTime *prometheus.HistogramVec
	timeouts      prometheus.Counter
}

var _ module.PvfMetrics = (*PvfCollector)(nil)

func NewPvfCollector(registerer prometheus.Registerer) *PvfCollector {
	factory := promauto.With(registerer)

	return &PvfCollector{
		executionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "execution_duration_seconds",
			Namespace: namespaceRelay,
			Subsystem: subsystemPvf,
			Help:      "the time spent executing a validation function",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelResult}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name:      "validation_timeouts_total",
			Namespace: namespaceRelay,
			Subsystem: subsystemPvf,
			Help:      "the number of candidate validations answered invalid because execution timed out",
		}),
	}
}

func (pc *PvfCollector) PvfExecuted(duration time.Duration, valid bool) {
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	pc.executionTime.With(prometheus.Labels{LabelResult: result}).Observe(duration.Seconds())
}

func (pc *PvfCollector) ValidationTimedOut() {
	pc.timeouts.Inc()
}
