package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for step submissions.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics provides observability for the onboarding wizard.
// Tracks step outcomes, compensating deletes and the provisioning critical path.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	StepSubmissions      *prometheus.CounterVec
	Compensations        *prometheus.CounterVec
	ProvisioningDuration *prometheus.HistogramVec
	OnboardingCompleted  prometheus.Counter
}

// New registers the onboarding metrics on reg. A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botecopro_onboarding_step_submissions_total",
			Help: "Wizard step submissions by step and outcome",
		}, []string{"step", "outcome"}),
		Compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "botecopro_onboarding_compensations_total",
			Help: "Compensating boteco deletes by trigger and result",
		}, []string{"reason", "result"}),
		ProvisioningDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botecopro_provisioning_duration_seconds",
			Help:    "Duration of provisioning calls (payment critical path)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
		OnboardingCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "botecopro_onboarding_completed_total",
			Help: "Wizards that reached the success page",
		}),
	}
}

// ObserveStep records one submission of the given wizard step.
func (m *Metrics) ObserveStep(step int, outcome string) {
	if m == nil {
		return
	}
	m.StepSubmissions.WithLabelValues(strconv.Itoa(step), outcome).Inc()
}

// ObserveCompensation records a compensating delete triggered by reason.
func (m *Metrics) ObserveCompensation(reason string, err error) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(reason, result(err)).Inc()
}

// ObserveProvisioning records the duration of a provisioning call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveProvisioning(start time.Time, err error) {
	if m == nil {
		return
	}
	m.ProvisioningDuration.WithLabelValues(result(err)).Observe(time.Since(start).Seconds())
}

// IncrementCompleted records a wizard that reached the success page.
func (m *Metrics) IncrementCompleted() {
	if m == nil {
		return
	}
	m.OnboardingCompleted.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
