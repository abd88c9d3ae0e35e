package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "touchdown_picks"

// Metrics holds the worker's collectors. All methods are safe on a nil receiver
// so services can run without instrumentation in tests.
type Metrics struct {
	gamesGraded      *prometheus.CounterVec
	picksGraded      *prometheus.CounterVec
	gradingFailures  *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	importJobs       *prometheus.CounterVec
	importDuration   *prometheus.HistogramVec
	importRunning    prometheus.Gauge
	providerRequests *prometheus.CounterVec
	schedulerRuns    *prometheus.CounterVec
}

// New registers collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		gamesGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_graded_total",
			Help:      "Games graded, by trigger (sweep, import, manual).",
		}, []string{"trigger"}),
		picksGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picks_graded_total",
			Help:      "Picks settled by grading, by trigger.",
		}, []string{"trigger"}),
		gradingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grading_failures_total",
			Help:      "Games whose grading pass failed, by trigger.",
		}, []string{"trigger"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grading_sweep_duration_seconds",
			Help:      "Wall time of one grading sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		importJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_jobs_total",
			Help:      "Finished import jobs by status and failure kind.",
		}, []string{"status", "failure_kind"}),
		importDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_job_duration_seconds",
			Help:      "Import job wall time by final status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"status"}),
		importRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_jobs_running",
			Help:      "Import jobs currently executing.",
		}),
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nfl_provider_requests_total",
			Help:      "Requests sent to the NFL data provider by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		schedulerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Scheduler trigger executions by trigger and outcome (ok, error, panic, skipped).",
		}, []string{"trigger", "outcome"}),
	}
}

func (m *Metrics) ObserveGrading(trigger string, games, picks, failed int) {
	if m == nil {
		return
	}
	m.gamesGraded.WithLabelValues(trigger).Add(float64(games))
	m.picksGraded.WithLabelValues(trigger).Add(float64(picks))
	m.gradingFailures.WithLabelValues(trigger).Add(float64(failed))
}

func (m *Metrics) ObserveSweep(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ImportStarted() {
	if m == nil {
		return
	}
	m.importRunning.Inc()
}

func (m *Metrics) ImportFinished(status, failureKind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importRunning.Dec()
	m.importJobs.WithLabelValues(status, failureKind).Inc()
	m.importDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ImportRejected counts jobs failed without running in this process.
func (m *Metrics) ImportRejected(failureKind string) {
	if m == nil {
		return
	}
	m.importJobs.WithLabelValues("FAILED", failureKind).Inc()
}

func (m *Metrics) ProviderRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) SchedulerRun(trigger, outcome string) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(trigger, outcome).Inc()
}
