package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/swxsoc/swxingest/internal/log"
)

// PrometheusSink implements Sink with the Prometheus client.
// Registration errors are logged, never propagated.
type PrometheusSink struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	secretLoadsTotal   *prometheus.CounterVec
	pointsTotal        *prometheus.CounterVec
	annotationsTotal   *prometheus.CounterVec
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swxingest_invocations_total",
			Help: "Total number of handled trigger events.",
		}, []string{"rule", "outcome", "class"}),
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swxingest_invocation_duration_seconds",
			Help:    "Duration of a handled trigger event in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"rule"}),
		secretLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swxingest_secret_loads_total",
			Help: "Total number of credential loads by outcome.",
		}, []string{"name", "ok"}),
		pointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swxingest_series_points_total",
			Help: "Total number of time-series points handed to the sink.",
		}, []string{"series", "instrument"}),
		annotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swxingest_annotations_total",
			Help: "Total number of annotations written.",
		}, []string{"dashboard", "panel"}),
	}

	s.register(reg, s.invocationsTotal, "swxingest_invocations_total")
	s.register(reg, s.invocationDuration, "swxingest_invocation_duration_seconds")
	s.register(reg, s.secretLoadsTotal, "swxingest_secret_loads_total")
	s.register(reg, s.pointsTotal, "swxingest_series_points_total")
	s.register(reg, s.annotationsTotal, "swxingest_annotations_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		log.WithComponent("metrics").Warn("failed to register collector", "name", name, "error", err)
	}
}

func (s *PrometheusSink) Invocation(rule, class string, duration time.Duration) {
	outcome := OutcomeSuccess
	if class != "" {
		outcome = OutcomeFailed
	}
	if rule == "" {
		rule = UnknownRule
	}
	s.invocationsTotal.WithLabelValues(rule, outcome, class).Inc()
	s.invocationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

func (s *PrometheusSink) SecretLoaded(name string, ok bool) {
	s.secretLoadsTotal.WithLabelValues(name, strconv.FormatBool(ok)).Inc()
}

func (s *PrometheusSink) SeriesRecorded(series, instrument string, points int) {
	s.pointsTotal.WithLabelValues(series, instrument).Add(float64(points))
}

func (s *PrometheusSink) AnnotationCreated(dashboard, panel string) {
	s.annotationsTotal.WithLabelValues(dashboard, panel).Inc()
}
