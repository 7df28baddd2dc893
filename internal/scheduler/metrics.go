package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	wizardSessionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guildkeeper_wizard_sessions_expired_total",
		Help: "Wizard sessions removed by the idle sweep.",
	})
	giveawaysEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guildkeeper_giveaways_ended_total",
		Help: "Giveaways finished by the expiry sweep.",
	})
	birthdaysAnnounced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guildkeeper_birthdays_announced_total",
		Help: "Birthday announcements sent.",
	})
	sweepErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guildkeeper_sweep_errors_total",
		Help: "Background sweep iterations that failed.",
	}, []string{"sweep"})
)

func init() {
	prometheus.MustRegister(
		wizardSessionsExpired,
		giveawaysEnded,
		birthdaysAnnounced,
		sweepErrors,
	)
}
