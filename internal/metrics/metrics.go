package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_new_users_total",
		Help: "Total number of new member registrations.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of credential checks (successful and failed).",
	}, []string{"status"}) // status: "success" or "failed"

	// OTP Flow Metrics
	OTPIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_issued_total",
		Help: "Total number of login challenges issued per delivery channel.",
	}, []string{"channel"})
	OTPVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_verified_total",
		Help: "Total number of OTP verification attempts per channel and outcome.",
	}, []string{"channel", "status"})
	OTPDeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_delivery_failures_total",
		Help: "Total number of challenge delivery failures per channel.",
	}, []string{"channel"})

	TotalMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_total_members",
		Help: "Total number of registered members.",
	})

	// Session Metrics
	SessionsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_sessions_issued_total",
		Help: "Total number of sessions issued after OTP verification.",
	})
	SessionsRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_sessions_revoked_total",
		Help: "Total number of sessions revoked through logout.",
	})
)
