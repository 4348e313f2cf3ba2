package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewWithRegistry("testrealm", reg)
}

func TestRecordTick_CountsOverrunsOnly(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordTick(10*time.Millisecond, 50*time.Millisecond)
	m.RecordTick(80*time.Millisecond, 50*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.TickOverruns))
}

func TestRecordPacketIn_LabelsByOpcodeHex(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordPacketIn("testrealm", "game", 0x64)

	count := testutil.ToFloat64(m.PacketsReceived.WithLabelValues("testrealm", "game", "0x64"))
	assert.Equal(t, float64(1), count)
}

func TestRecordDamage_IgnoresNonPositive(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordDamage("testrealm", "melee", 0)
	m.RecordDamage("testrealm", "melee", -5)
	m.RecordDamage("testrealm", "melee", 12)

	assert.Equal(t, float64(12), testutil.ToFloat64(m.DamageDealtTotal.WithLabelValues("testrealm", "melee")))
}

func TestGlobal_InitIsIdempotent(t *testing.T) {
	global = nil
	first := Init("realmA")
	second := Init("realmB")
	require.Same(t, first, second)
}
