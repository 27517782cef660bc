package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "职位状态迁移次数。",
		},
		[]string{"action", "outcome"},
	)

	applicationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "applications",
			Name:      "transitions_total",
			Help:      "投递状态迁移次数。",
		},
		[]string{"action", "outcome"},
	)

	companyVerificationJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "company",
			Name:      "verification_jobs_total",
			Help:      "批量企业审核中逐个职位的处理结果。",
		},
		[]string{"outcome"},
	)
)

// Outcome 标签取值。
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// ObserveJobTransition 记录一次职位动作。
func ObserveJobTransition(action, outcome string) {
	jobTransitionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveApplicationTransition 记录一次投递动作。
func ObserveApplicationTransition(action, outcome string) {
	applicationTransitionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveCompanyVerification 记录批量审核中的单个职位结果。
func ObserveCompanyVerification(outcome string) {
	companyVerificationJobs.WithLabelValues(outcome).Inc()
}
