package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(validationsTotal, submissionsTotal, bansTrippedTotal) }

var (
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_validations_total",
			Help: "Referral validation attempts by outcome (accepted/not_found/inactive/expired/self_referral/invalid_format/device_banned).",
		},
		[]string{"outcome"},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_submissions_total",
			Help: "Referral submissions by status (committed/already_redeemed/rejected/device_banned).",
		},
		[]string{"status"},
	)

	bansTrippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_bans_tripped_total",
			Help: "Devices that crossed the failure threshold and entered a ban window.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncValidation(outcome string) {
	validationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSubmission(status string) {
	submissionsTotal.WithLabelValues(norm(status)).Inc()
}

func IncBanTripped() {
	bansTrippedTotal.Inc()
}
