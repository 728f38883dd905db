package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Collectors are created eagerly so library consumers and tests can
// increment them without registration; InitCustomMetrics wires them into a
// registry at application startup.
var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiongate_tokens_issued_total",
		Help: "Total number of access/refresh token pairs minted.",
	})
	SessionsRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiongate_sessions_refreshed_total",
		Help: "Total number of sessions re-issued via refresh token.",
	})
	ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessiongate_active_sessions_gauge",
		Help: "Current number of active user sessions.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiongate_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiongate_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	GateDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiongate_gate_denials_total",
		Help: "Total number of requests denied by the authentication gate.",
	}, []string{"reason"})
)

// InitCustomMetrics registers the sessiongate metrics with the given
// registry. It should be called once at application startup.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"TokensIssuedTotal":      TokensIssuedTotal,
		"SessionsRefreshedTotal": SessionsRefreshedTotal,
		"ActiveSessionsGauge":    ActiveSessionsGauge,
		"LoginSuccessTotal":      LoginSuccessTotal,
		"LoginFailureTotal":      LoginFailureTotal,
		"GateDenialsTotal":       GateDenialsTotal,
	}
	for name, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			log.Warn().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
