package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunningsSubmitted.Inc()
	m.Contributions.WithLabelValues("challenge", "applied").Add(2)
	m.LockTimeouts.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunningsSubmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Contributions.WithLabelValues("challenge", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockTimeouts))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "runcrew_runnings_submitted_total")
	assert.Contains(t, names, "runcrew_contributions_total")
}

func TestNew_TwoRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
