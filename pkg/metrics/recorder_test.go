package metrics_test

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kbopts "github.com/goliatone/go-kbopts"
	"github.com/goliatone/go-kbopts/pkg/metrics"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, pair := range m.GetLabel() {
		out[pair.GetName()] = pair.GetValue()
	}
	return out
}

func counterValue(t *testing.T, reg *prometheus.Registry, op, status string) float64 {
	t.Helper()
	for _, m := range family(t, reg, "kbopts_operations_total").GetMetric() {
		l := labels(m)
		if l["op"] == op && l["status"] == status {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecorderCountsOperations(t *testing.T) {
	reg := metrics.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	opts := kbopts.New(kbopts.WithLogger(rec))
	require.NoError(t, opts.Update([]kbopts.Item{
		{Scope: kbopts.ScopeKeyboard, Key: "a", Value: "1"},
		{Scope: kbopts.ScopeKeyboard, Key: "b", Value: "2"},
	}))
	_, err = opts.Lookup(kbopts.ScopeKeyboard, "a")
	require.NoError(t, err)
	_, err = opts.Lookup(kbopts.ScopeKeyboard, "zz")
	require.Error(t, err)
	_, err = opts.Lookup(kbopts.ScopeEnvironment, "zz")
	require.Error(t, err)

	assert.Equal(t, float64(1), counterValue(t, reg, kbopts.OpUpdate, "ok"))
	assert.Equal(t, float64(1), counterValue(t, reg, kbopts.OpLookup, "ok"))
	assert.Equal(t, float64(2), counterValue(t, reg, kbopts.OpLookup, "key error"))

	applied := family(t, reg, "kbopts_update_items_applied_total").GetMetric()
	require.Len(t, applied, 1)
	assert.Equal(t, float64(2), applied[0].GetCounter().GetValue())

	var lookups uint64
	for _, m := range family(t, reg, "kbopts_operation_duration_seconds").GetMetric() {
		if labels(m)["op"] == kbopts.OpLookup {
			lookups = m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), lookups)
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := metrics.NewRegistry()
	_, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	_, err = metrics.NewRecorder(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *metrics.Recorder
	assert.NotPanics(t, func() {
		rec.LogOperation(kbopts.OperationEvent{Op: kbopts.OpLookup})
	})
}

func TestWriteText(t *testing.T) {
	reg := metrics.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	opts := kbopts.New(kbopts.WithLogger(rec))
	_, err = opts.Serialize(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "# TYPE kbopts_operations_total counter")
	assert.Contains(t, out, `kbopts_operations_total{op="serialize",status="ok"} 1`)
	assert.Contains(t, out, `kbopts_operation_duration_seconds_count{op="serialize"} 1`)
}
