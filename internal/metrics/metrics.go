package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paddlerl"

// Metrics groups the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	rewards     *prometheus.HistogramVec
	lastReward  *prometheus.GaugeVec
	fill        *prometheus.GaugeVec
	updates     *prometheus.CounterVec
	criticLoss  *prometheus.GaugeVec
	actorLoss   *prometheus.GaugeVec
	hardSyncs   *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	phaseEvents *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transitions pushed into an agent's experience buffer.",
		}, []string{"agent"}),
		rewards: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_reward",
			Help:      "Reward attached to collected transitions.",
			Buckets:   []float64{-1, -0.5, 0, 0.5, 1, 1.5},
		}, []string{"agent"}),
		lastReward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reward",
			Help:      "Reward of the most recent transition.",
		}, []string{"agent"}),
		fill: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fill_counter",
			Help:      "Transitions collected for an agent in the current collection phase.",
		}, []string{"agent"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Gradient updates applied to an agent.",
		}, []string{"agent"}),
		criticLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critic_loss",
			Help:      "Mean critic loss of the last training phase.",
		}, []string{"agent"}),
		actorLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_loss",
			Help:      "Mean actor loss of the last training phase.",
		}, []string{"agent"}),
		hardSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hard_syncs_total",
			Help:      "Target network hard syncs.",
		}, []string{"agent"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoints written.",
		}, []string{"agent"}),
		phaseEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_events_total",
			Help:      "Rally phase transitions by event.",
		}, []string{"event"}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.transitions, m.rewards, m.lastReward, m.fill, m.updates,
		m.criticLoss, m.actorLoss, m.hardSyncs, m.checkpoints, m.phaseEvents,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTransition(agent string, reward float64, filled int) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(agent).Inc()
	m.rewards.WithLabelValues(agent).Observe(reward)
	m.lastReward.WithLabelValues(agent).Set(reward)
	m.fill.WithLabelValues(agent).Set(float64(filled))
}

func (m *Metrics) SetFill(agent string, filled int) {
	if m == nil {
		return
	}
	m.fill.WithLabelValues(agent).Set(float64(filled))
}

func (m *Metrics) ObserveTraining(agent string, updates int, criticLoss, actorLoss float64) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(agent).Add(float64(updates))
	m.criticLoss.WithLabelValues(agent).Set(criticLoss)
	m.actorLoss.WithLabelValues(agent).Set(actorLoss)
}

func (m *Metrics) IncHardSync(agent string) {
	if m == nil {
		return
	}
	m.hardSyncs.WithLabelValues(agent).Inc()
}

func (m *Metrics) IncCheckpoint(agent string) {
	if m == nil {
		return
	}
	m.checkpoints.WithLabelValues(agent).Inc()
}

func (m *Metrics) IncPhaseEvent(event string) {
	if m == nil {
		return
	}
	m.phaseEvents.WithLabelValues(event).Inc()
}
