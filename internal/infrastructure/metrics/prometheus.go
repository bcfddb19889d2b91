package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evote/internal/ports"
)

const namespace = "evote"

// Recorder implements ports.Metrics on a private registry so tests and multiple
// instances never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	voteOutcomes       *prometheus.CounterVec
	biometricAttempts  *prometheus.CounterVec
	schedulerTicks     *prometheus.CounterVec
	schedulerFailures  prometheus.Gauge
	notificationsTotal *prometheus.CounterVec
}

var _ ports.Metrics = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		voteOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_attempts_total",
			Help:      "Vote attempts by outcome code.",
		}, []string{"code"}),
		biometricAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "biometric_calls_total",
			Help:      "Biometric oracle calls by outcome.",
		}, []string{"outcome"}),
		schedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks by result.",
		}, []string{"result"}),
		schedulerFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_consecutive_failures",
			Help:      "Consecutive failed scheduler ticks.",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Result notifications by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.voteOutcomes,
		r.biometricAttempts,
		r.schedulerTicks,
		r.schedulerFailures,
		r.notificationsTotal,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveVoteOutcome(code string) {
	r.voteOutcomes.WithLabelValues(code).Inc()
}

func (r *Recorder) ObserveBiometricAttempt(outcome string) {
	r.biometricAttempts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveSchedulerTick(result string) {
	r.schedulerTicks.WithLabelValues(result).Inc()
}

func (r *Recorder) SetSchedulerConsecutiveFailures(count int) {
	r.schedulerFailures.Set(float64(count))
}

func (r *Recorder) ObserveNotification(result string) {
	r.notificationsTotal.WithLabelValues(result).Inc()
}
