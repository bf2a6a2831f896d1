package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	sessionsCreated   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	participantsJoin  prometheus.Counter
	stakeEscrowed     prometheus.Gauge
	superchatVolume   *prometheus.CounterVec
	superchatFees     prometheus.Counter
	yieldDistributed  *prometheus.CounterVec
	roundingDust      *prometheus.GaugeVec
	ratingsRecorded   prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_sessions_created_total",
				Help: "Count of sessions created.",
			}),
			sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_sessions_finished_total",
				Help: "Count of sessions reaching a terminal state by outcome.",
			}, []string{"outcome"}),
			participantsJoin: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_participants_joined_total",
				Help: "Count of listener joins across all sessions.",
			}),
			stakeEscrowed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "ledger_stake_escrowed",
				Help: "Stake currently held in escrow across open sessions.",
			}),
			superchatVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_superchat_volume_total",
				Help: "Gross superchat volume by attribution.",
			}, []string{"attribution"}),
			superchatFees: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_superchat_fees_total",
				Help: "Cumulative platform fees collected from superchats.",
			}),
			yieldDistributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_yield_distributed_total",
				Help: "Yield paid out or retained at settlement by destination.",
			}, []string{"destination"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "ledger_rounding_dust",
				Help: "Rounding remainder recorded per settlement flow.",
			}, []string{"flow"}),
			ratingsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "ledger_ratings_recorded_total",
				Help: "Count of accepted speaker ratings.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.sessionsCreated,
			ledgerRegistry.sessionsCompleted,
			ledgerRegistry.participantsJoin,
			ledgerRegistry.stakeEscrowed,
			ledgerRegistry.superchatVolume,
			ledgerRegistry.superchatFees,
			ledgerRegistry.yieldDistributed,
			ledgerRegistry.roundingDust,
			ledgerRegistry.ratingsRecorded,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveSessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *LedgerMetrics) ObserveSessionFinished(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.sessionsCompleted.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) ObserveParticipantJoined() {
	if m == nil {
		return
	}
	m.participantsJoin.Inc()
}

func (m *LedgerMetrics) AddStakeEscrowed(amount float64) {
	if m == nil {
		return
	}
	m.stakeEscrowed.Add(amount)
}

func (m *LedgerMetrics) ObserveSuperchat(attribution string, gross, fee float64) {
	if m == nil {
		return
	}
	if attribution == "" {
		attribution = "unknown"
	}
	m.superchatVolume.WithLabelValues(attribution).Add(gross)
	m.superchatFees.Add(fee)
}

func (m *LedgerMetrics) ObserveYieldDistributed(destination string, amount float64) {
	if m == nil {
		return
	}
	if destination == "" {
		destination = "unknown"
	}
	m.yieldDistributed.WithLabelValues(destination).Add(amount)
}

func (m *LedgerMetrics) ObserveRoundingDust(flow string, dust float64) {
	if m == nil {
		return
	}
	if flow == "" {
		flow = "unknown"
	}
	m.roundingDust.WithLabelValues(flow).Set(dust)
}

func (m *LedgerMetrics) ObserveRatingRecorded() {
	if m == nil {
		return
	}
	m.ratingsRecorded.Inc()
}
