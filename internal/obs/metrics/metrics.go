// Package metrics provides Prometheus metric collection for the realm server.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors exposed by a realm server process.
type Metrics struct {
	// Network
	ConnectionsOpen   *prometheus.GaugeVec
	PacketsReceived   *prometheus.CounterVec
	PacketsSent       *prometheus.CounterVec
	PacketErrorsTotal *prometheus.CounterVec

	// Engine tick loop
	TickDuration  prometheus.Histogram
	TickOverruns  prometheus.Counter
	CommandsQueue prometheus.Gauge

	// World
	CreaturesOnline  *prometheus.GaugeVec
	SpawnsAlive      *prometheus.GaugeVec
	SpellsCastTotal  *prometheus.CounterVec
	DamageDealtTotal *prometheus.CounterVec

	// Login
	LoginAttemptsTotal *prometheus.CounterVec

	// Process
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(realmName string) *Metrics {
	return NewWithRegistry(realmName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer.
func NewWithRegistry(realmName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realm_connections_open",
				Help: "Current number of open network connections by server kind",
			},
			[]string{"realm", "server"},
		),
		PacketsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_packets_received_total",
				Help: "Total number of inbound packets processed",
			},
			[]string{"realm", "server", "opcode"},
		),
		PacketsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_packets_sent_total",
				Help: "Total number of outbound packets written",
			},
			[]string{"realm", "server"},
		),
		PacketErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_packet_errors_total",
				Help: "Total number of malformed or rejected packets",
			},
			[]string{"realm", "reason"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "realm_engine_tick_duration_seconds",
				Help:    "Time spent executing a single engine tick",
				Buckets: []float64{.001, .005, .01, .025, .05, .075, .1, .2, .5},
			},
		),
		TickOverruns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realm_engine_tick_overruns_total",
				Help: "Total number of ticks that exceeded the configured tick interval",
			},
		),
		CommandsQueue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realm_engine_command_queue_depth",
				Help: "Current depth of the engine's pending command queue",
			},
		),
		CreaturesOnline: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realm_creatures_online",
				Help: "Current number of live creatures by kind",
			},
			[]string{"realm", "kind"},
		),
		SpawnsAlive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realm_spawns_alive",
				Help: "Current number of alive spawn instances per spawn point group",
			},
			[]string{"realm", "spawn_group"},
		),
		SpellsCastTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_spells_cast_total",
				Help: "Total number of spells successfully cast",
			},
			[]string{"realm", "spell"},
		),
		DamageDealtTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_damage_dealt_total",
				Help: "Total damage dealt, by combat source",
			},
			[]string{"realm", "source"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_login_attempts_total",
				Help: "Total login attempts by outcome",
			},
			[]string{"realm", "outcome"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realm_uptime_seconds",
				Help: "Realm process uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "realm_info",
				Help: "Static realm build information",
			},
			[]string{"realm", "version"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ConnectionsOpen,
			m.PacketsReceived,
			m.PacketsSent,
			m.PacketErrorsTotal,
			m.TickDuration,
			m.TickOverruns,
			m.CommandsQueue,
			m.CreaturesOnline,
			m.SpawnsAlive,
			m.SpellsCastTotal,
			m.DamageDealtTotal,
			m.LoginAttemptsTotal,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(realmName, "dev").Set(1)

	return m
}

// RecordTick records the duration of a single engine tick, and bumps the
// overrun counter when the tick exceeded budget.
func (m *Metrics) RecordTick(duration, budget time.Duration) {
	m.TickDuration.Observe(duration.Seconds())
	if duration > budget {
		m.TickOverruns.Inc()
	}
}

// RecordPacketIn records an inbound packet for a server kind and opcode.
func (m *Metrics) RecordPacketIn(realm, server string, opcode byte) {
	m.PacketsReceived.WithLabelValues(realm, server, opcodeLabel(opcode)).Inc()
}

// RecordPacketOut records an outbound packet write.
func (m *Metrics) RecordPacketOut(realm, server string) {
	m.PacketsSent.WithLabelValues(realm, server).Inc()
}

// RecordPacketError records a rejected or malformed packet.
func (m *Metrics) RecordPacketError(realm, reason string) {
	m.PacketErrorsTotal.WithLabelValues(realm, reason).Inc()
}

// RecordSpellCast records a successful spell cast.
func (m *Metrics) RecordSpellCast(realm, spell string) {
	m.SpellsCastTotal.WithLabelValues(realm, spell).Inc()
}

// RecordDamage records damage dealt by a combat source ("melee", "spell", "condition").
func (m *Metrics) RecordDamage(realm, source string, amount int) {
	if amount <= 0 {
		return
	}
	m.DamageDealtTotal.WithLabelValues(realm, source).Add(float64(amount))
}

// RecordLoginAttempt records a login attempt outcome ("success", "invalid_credentials", etc).
func (m *Metrics) RecordLoginAttempt(realm, outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(realm, outcome).Inc()
}

// SetConnectionsOpen sets the current open connection count for a server kind.
func (m *Metrics) SetConnectionsOpen(realm, server string, count int) {
	m.ConnectionsOpen.WithLabelValues(realm, server).Set(float64(count))
}

// SetSpawnsAlive sets the current alive-count for a spawn group.
func (m *Metrics) SetSpawnsAlive(realm, spawnGroup string, count int) {
	m.SpawnsAlive.WithLabelValues(realm, spawnGroup).Set(float64(count))
}

// UpdateUptime updates the uptime gauge from a process start time.
func (m *Metrics) UpdateUptime(startedAt time.Time) {
	m.ServiceUptime.Set(time.Since(startedAt).Seconds())
}

func opcodeLabel(opcode byte) string {
	return "0x" + strings.ToUpper(hexByte(opcode))
}

func hexByte(b byte) string {
	const hex = "0123456789abcdef"
	return string([]byte{hex[b>>4], hex[b&0x0f]})
}

// Enabled reports whether the admin metrics endpoint should be exposed.
// Controlled by METRICS_ENABLED, defaulting to enabled.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return true
	}
	switch raw {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

// Init initializes and returns the global Metrics instance.
func Init(realmName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(realmName)
	}
	return global
}

// Global returns the global Metrics instance, creating a default one if absent.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("unknown")
	}
	return global
}
